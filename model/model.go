package model

import (
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type ContestState string

const (
	StateEditing  ContestState = "EDITING"
	StateRunning  ContestState = "RUNNING"
	StateFinished ContestState = "FINISHED"
)

func (s ContestState) Valid() bool {
	return s == StateEditing || s == StateRunning || s == StateFinished
}

// IDSet is a set of node ids. It serializes as a sorted JSON array so that
// snapshots are stable across saves.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool { _, ok := s[id]; return ok }

func (s IDSet) Add(id string) { s[id] = struct{}{} }

func (s IDSet) Remove(id string) { delete(s, id) }

func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s IDSet) Sorted() []string {
	ids := maps.Keys(s)
	slices.Sort(ids)
	return ids
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// Position is an (x, y) pair on the graph layout. The x coordinate doubles as
// the progress axis for scoring.
type Position [2]int

func (p Position) X() int { return p[0] }

func (p Position) Y() int { return p[1] }

// Node is one problem in the skill tree. Neighbors are outgoing edges: solving
// this node unlocks them.
type Node struct {
	ID        string   `json:"id"`
	PID       string   `json:"pid"`
	Rating    int      `json:"rating"`
	Position  Position `json:"position"`
	Neighbors IDSet    `json:"neighbors"`
}

// Clone returns a deep copy so callers cannot alias the stored neighbor set.
func (n *Node) Clone() *Node {
	out := *n
	out.Neighbors = n.Neighbors.Clone()
	return &out
}

type Team struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	CFHandles  []string `json:"cf_handles"`
	Solved     IDSet    `json:"solved"`
	Available  IDSet    `json:"available"`
	AccessCode string   `json:"access_code"`
}

type Contest struct {
	Name      string           `json:"name"`
	Nodes     map[string]*Node `json:"nodes"`
	Teams     []*Team          `json:"teams"`
	StartTime int64            `json:"start_time"`
	Duration  int64            `json:"duration"`
	State     ContestState     `json:"state"`
}

// Validate checks structural consistency of an imported contest. A failure
// means the document must not replace the live contest.
func (c *Contest) Validate() error {
	if !c.State.Valid() {
		return errors.Errorf("invalid contest state %q", c.State)
	}
	pids := make(map[string]string, len(c.Nodes))
	for key, n := range c.Nodes {
		if n == nil {
			return errors.Errorf("node %q is null", key)
		}
		if n.ID != key {
			return errors.Errorf("node key %q does not match node id %q", key, n.ID)
		}
		if n.Neighbors.Has(n.ID) {
			return errors.Errorf("node %q has a self-loop", n.ID)
		}
		if n.PID != "" {
			if other, ok := pids[n.PID]; ok {
				return errors.Errorf("problem id %q used by both %q and %q", n.PID, other, n.ID)
			}
			pids[n.PID] = n.ID
		}
	}
	names := make(map[string]struct{}, len(c.Teams))
	handles := make(map[string]string, len(c.Teams))
	for _, t := range c.Teams {
		if t == nil {
			return errors.New("team list contains a null entry")
		}
		if _, ok := names[t.Name]; ok {
			return errors.Errorf("duplicate team name %q", t.Name)
		}
		names[t.Name] = struct{}{}
		for _, h := range t.CFHandles {
			if owner, ok := handles[h]; ok && owner != t.ID {
				return errors.Errorf("handle %q claimed by more than one team", h)
			}
			handles[h] = t.ID
		}
	}
	return nil
}

// Normalize fills nil collections after deserialization so the engine never
// touches a nil map or set.
func (c *Contest) Normalize() {
	if c.Nodes == nil {
		c.Nodes = make(map[string]*Node)
	}
	for _, n := range c.Nodes {
		if n.Neighbors == nil {
			n.Neighbors = make(IDSet)
		}
	}
	for _, t := range c.Teams {
		if t.Solved == nil {
			t.Solved = make(IDSet)
		}
		if t.Available == nil {
			t.Available = make(IDSet)
		}
		if t.CFHandles == nil {
			t.CFHandles = []string{}
		}
	}
}
