package bridge

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

type bridgeKey struct {
	dt   datatype.DataType
	name string
}

// Combine joins graph descriptions into one. A sink bridge and a source
// bridge of the same data type and instance name are fused: every pipe that
// left the source bridge is re-pointed to the producer feeding the sink
// bridge, and both bridge instances are removed with their pipes. Bridges
// without a partner are kept so the combined graph can still be grafted at
// runtime.
func Combine(descs ...flow.Description) (flow.Description, error) {
	var out flow.Description
	names := make([]string, 0, len(descs))
	seen := make(map[uuid.UUID]string)
	for _, d := range descs {
		if d.Name != "" {
			names = append(names, d.Name)
		}
		for _, inst := range d.Instances {
			if other, dup := seen[inst.ID]; dup {
				return flow.Description{}, &flow.WiringError{
					Reason:   flow.ReasonDuplicate,
					Instance: inst.Name,
					Detail:   fmt.Sprintf("instance %s also used by %q", inst.ID, other),
				}
			}
			seen[inst.ID] = d.Name
			out.Instances = append(out.Instances, inst)
		}
		out.Pipes = append(out.Pipes, d.Pipes...)
	}
	out.Name = strings.Join(names, "+")

	sinks := make(map[bridgeKey]flow.Instance)
	var sources []flow.Instance
	for _, inst := range out.Instances {
		p, role, ok := Identify(inst.FilterID)
		if !ok {
			continue
		}
		key := bridgeKey{dt: p.Type, name: inst.Name}
		switch role {
		case RoleSink:
			if _, dup := sinks[key]; dup {
				return flow.Description{}, &flow.WiringError{
					Reason:   flow.ReasonDuplicate,
					Instance: inst.Name,
					Detail:   fmt.Sprintf("more than one %s sink bridge with this name", p.Type),
				}
			}
			sinks[key] = inst
		case RoleSource:
			sources = append(sources, inst)
		}
	}

	removed := make(map[uuid.UUID]bool)
	fused := make(map[uuid.UUID]bool)
	for _, src := range sources {
		p, _, _ := Identify(src.FilterID)
		sink, ok := sinks[bridgeKey{dt: p.Type, name: src.Name}]
		if !ok {
			diagf("combine %q: source bridge %q (%s) has no matching sink, kept", out.Name, src.Name, p.Type)
			continue
		}
		feed, ok := feeding(out.Pipes, sink.ID)
		if !ok {
			diagf("combine %q: sink bridge %q (%s) is not fed, source kept", out.Name, sink.Name, p.Type)
			continue
		}
		for i := range out.Pipes {
			if out.Pipes[i].Sender == src.ID {
				out.Pipes[i].Sender = feed.Sender
				out.Pipes[i].SenderConnector = feed.SenderConnector
			}
		}
		removed[src.ID] = true
		fused[sink.ID] = true
	}
	for key, sink := range sinks {
		if fused[sink.ID] {
			removed[sink.ID] = true
			continue
		}
		diagf("combine %q: sink bridge %q (%s) has no matching source, kept", out.Name, key.name, key.dt)
	}

	instances := out.Instances[:0]
	for _, inst := range out.Instances {
		if !removed[inst.ID] {
			instances = append(instances, inst)
		}
	}
	out.Instances = instances
	pipes := out.Pipes[:0]
	for _, p := range out.Pipes {
		if !removed[p.Sender] && !removed[p.Receiver] {
			pipes = append(pipes, p)
		}
	}
	out.Pipes = pipes
	if len(removed) > 0 {
		diagf("combine %q: fused %d bridge instances", out.Name, len(removed))
	}
	return out, nil
}

func feeding(pipes []flow.PipeLink, receiver uuid.UUID) (flow.PipeLink, bool) {
	for _, p := range pipes {
		if p.Receiver == receiver {
			return p, true
		}
	}
	return flow.PipeLink{}, false
}
