package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// sample is one line of the samples file: the value one source receives for
// a frame. Values carries a Double frame; Profiles carries a Line frame.
type sample struct {
	Counter  int         `json:"counter"`
	Position int64       `json:"position,omitempty"`
	Graph    string      `json:"graph,omitempty"`
	Source   uuid.UUID   `json:"source,omitzero"`
	Values   []float64   `json:"values,omitempty"`
	Ranks    []int       `json:"ranks,omitempty"`
	Profiles [][]float64 `json:"profiles,omitempty"`
}

const maxSampleLine = 4 * 1024 * 1024

func readSamplesFile(path string) ([]sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer f.Close()
	return readSamples(f)
}

// readSamples parses JSON lines. Blank lines and lines starting with '#' are
// skipped.
func readSamples(r io.Reader) ([]sample, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxSampleLine)

	var out []sample
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 || b[0] == '#' {
			continue
		}
		var s sample
		if err := json.Unmarshal(b, &s, json.RejectUnknownMembers(true)); err != nil {
			return nil, fmt.Errorf("samples line %d: %w", line, err)
		}
		if _, err := s.value(); err != nil {
			return nil, fmt.Errorf("samples line %d: %w", line, err)
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return out, nil
}

// value converts the sample payload into the pipe value its source expects.
func (s sample) value() (datatype.Value, error) {
	switch {
	case s.Profiles != nil && s.Values != nil:
		return nil, fmt.Errorf("counter %d: values and profiles are exclusive", s.Counter)
	case s.Profiles != nil:
		line := datatype.LineModel{Profiles: make([]datatype.Doublearray, len(s.Profiles))}
		for i, p := range s.Profiles {
			line.Profiles[i] = datatype.NewDoublearray(p...)
		}
		return line, nil
	}
	a := datatype.NewDoublearray(s.Values...)
	if s.Ranks != nil {
		if len(s.Ranks) != len(s.Values) {
			return nil, fmt.Errorf("counter %d: %d ranks for %d values", s.Counter, len(s.Ranks), len(s.Values))
		}
		for i, r := range s.Ranks {
			if r < datatype.BadRank || r > datatype.MaxRank {
				return nil, fmt.Errorf("counter %d: rank %d out of range", s.Counter, r)
			}
			a.Rank[i] = r
		}
	}
	return a, nil
}

// context returns the frame context the sample is pushed with.
func (s sample) context() flow.Context {
	return flow.Context{Counter: s.Counter, Position: s.Position}
}

// selectSamples returns the samples addressed to a graph. A sample naming a
// graph must match its name or identifier; otherwise a sample naming a source
// must name one of the graph's sources.
func selectSamples(all []sample, desc flow.Description, g *flow.Graph) []sample {
	sources := make(map[uuid.UUID]bool)
	for _, s := range g.Sources() {
		sources[s.FilterBase().Instance()] = true
	}
	var out []sample
	for _, s := range all {
		if s.Graph != "" {
			if s.Graph == desc.Name || s.Graph == g.ID().String() {
				out = append(out, s)
			}
			continue
		}
		if s.Source == uuid.Nil || sources[s.Source] {
			out = append(out, s)
		}
	}
	return out
}

// frameInput gathers every sample addressed to one frame counter.
type frameInput struct {
	ctx    flow.Context
	inputs []flow.Input
}

// groupFrames folds samples sharing a counter into one frame, in order of
// each counter's first appearance. The frame takes the first sample's
// context.
func groupFrames(samples []sample) ([]frameInput, error) {
	var out []frameInput
	index := make(map[int]int)
	for _, s := range samples {
		v, err := s.value()
		if err != nil {
			return nil, err
		}
		in := flow.Input{Source: s.Source, Value: v}
		if i, ok := index[s.Counter]; ok {
			out[i].inputs = append(out[i].inputs, in)
			continue
		}
		index[s.Counter] = len(out)
		out = append(out, frameInput{ctx: s.context(), inputs: []flow.Input{in}})
	}
	return out, nil
}
