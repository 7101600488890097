package flow

import "sort"

// DefaultMaxInFlight is the number of frame counters a group keeps pending
// state for before the oldest incomplete frames are evicted.
const DefaultMaxInFlight = 8

const maxGroupMembers = 64

// groupState tracks arrivals for one input group of one filter. Pending
// records are keyed by frame counter; a record is deleted the moment it
// completes, and records older than the in-flight window are evicted.
// Completed counters are remembered for the same window so that a late
// re-arrival cannot fire the group a second time.
type groupState struct {
	id      int
	members []InPort
	full    uint64
	pending map[int]uint64
	fired   map[int]struct{}
	newest  int
	started bool
	evicted int
}

func newGroupState(id int) *groupState {
	return &groupState{id: id, pending: make(map[int]uint64), fired: make(map[int]struct{})}
}

func (g *groupState) add(in InPort) {
	g.full |= 1 << uint(len(g.members))
	g.members = append(g.members, in)
}

// arrive records slot for counter. It reports whether the group is now
// complete for that counter, whether the group already fired for it, and
// which counters were evicted on the way. A connector arriving twice for the
// same counter sets the same bit, so the arrival count never exceeds one per
// member.
func (g *groupState) arrive(slot, counter, window int) (complete, duplicate bool, stale []int) {
	if _, ok := g.fired[counter]; ok {
		return false, true, nil
	}
	bit := uint64(1) << uint(slot)
	if !g.started || counter > g.newest {
		g.newest, g.started = counter, true
		if window > 0 {
			for c := range g.pending {
				if c <= g.newest-window {
					delete(g.pending, c)
					stale = append(stale, c)
				}
			}
			sort.Ints(stale)
		}
		g.prune(window)
	} else if window > 0 && counter <= g.newest-window && bit != g.full {
		g.evicted++
		return false, false, append(stale, counter)
	}
	g.evicted += len(stale)

	mask := g.pending[counter] | bit
	if mask == g.full {
		delete(g.pending, counter)
		g.fired[counter] = struct{}{}
		return true, false, stale
	}
	g.pending[counter] = mask
	return false, false, stale
}

// prune forgets completed counters that fell out of the in-flight window.
// Without a window the default depth bounds the set.
func (g *groupState) prune(window int) {
	keep := window
	if keep <= 0 {
		keep = DefaultMaxInFlight
	}
	for c := range g.fired {
		if c <= g.newest-keep {
			delete(g.fired, c)
		}
	}
}

// arrived returns how many distinct members have delivered for counter.
func (g *groupState) arrived(counter int) int {
	n := 0
	for m := g.pending[counter]; m != 0; m &= m - 1 {
		n++
	}
	return n
}

func (g *groupState) release(counter int) {
	for _, in := range g.members {
		in.release(counter)
	}
}

// drop forgets counter entirely, so a failed frame may be pushed again.
func (g *groupState) drop(counter int) {
	delete(g.pending, counter)
	delete(g.fired, counter)
	g.release(counter)
}

func (g *groupState) flush(upTo int) int {
	n := 0
	for c := range g.pending {
		if c <= upTo {
			delete(g.pending, c)
			g.release(c)
			n++
		}
	}
	g.evicted += n
	return n
}

func (g *groupState) reset() {
	for c := range g.pending {
		g.release(c)
	}
	g.pending = make(map[int]uint64)
	g.fired = make(map[int]struct{})
	g.started = false
	g.newest = 0
}
