package contest

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"graphway/model"
)

// Logic is the pure in-memory engine over a single contest. It performs no
// I/O and takes no locks; serialization is the Manager's job.
//
// After every mutation the derived indices (starting nodes, pid lookup,
// handle lookup) are rebuilt from scratch and team availability is restored
// to its invariant:
//
//	available = (neighbors of solved ∪ starting nodes) − solved
type Logic struct {
	contest *model.Contest

	starting     model.IDSet
	pidToNode    map[string]*model.Node
	handleToTeam map[string]*model.Team
}

func NewLogic() *Logic {
	return &Logic{
		starting:     make(model.IDSet),
		pidToNode:    make(map[string]*model.Node),
		handleToTeam: make(map[string]*model.Team),
	}
}

func (l *Logic) Contest() *model.Contest { return l.contest }

// Load replaces the engine's contest and rebuilds every derived structure.
func (l *Logic) Load(c *model.Contest) {
	c.Normalize()
	l.contest = c
	l.rebuildGraph()
	l.rebuildHandles()
}

func (l *Logic) Rename(name string) { l.contest.Name = name }

// Graph mutation

func (l *Logic) AddNode(n *model.Node) error {
	if _, ok := l.contest.Nodes[n.ID]; ok {
		return errors.Errorf("node id %q already exists", n.ID)
	}
	if err := l.assertPIDFree(n.PID, n.ID); err != nil {
		return err
	}
	clean := n.Clone()
	if clean.Neighbors == nil {
		clean.Neighbors = make(model.IDSet)
	}
	l.contest.Nodes[clean.ID] = clean
	l.rebuildGraph()
	return nil
}

func (l *Logic) UpdateNode(n *model.Node) error {
	if err := l.assertNodeExists(n.ID); err != nil {
		return err
	}
	if err := l.assertPIDFree(n.PID, n.ID); err != nil {
		return err
	}
	clean := n.Clone()
	if clean.Neighbors == nil {
		clean.Neighbors = make(model.IDSet)
	}
	l.contest.Nodes[clean.ID] = clean
	l.rebuildGraph()
	return nil
}

// DeleteNode removes the node, strips it from every other node's neighbor set
// and from every team's solved set, then recomputes availability.
func (l *Logic) DeleteNode(id string) error {
	if err := l.assertNodeExists(id); err != nil {
		return err
	}
	delete(l.contest.Nodes, id)
	for _, n := range l.contest.Nodes {
		n.Neighbors.Remove(id)
	}
	for _, t := range l.contest.Teams {
		t.Solved.Remove(id)
	}
	l.rebuildGraph()
	return nil
}

func (l *Logic) AddEdge(from, to string) error {
	if err := l.assertNodeExists(from); err != nil {
		return err
	}
	if err := l.assertNodeExists(to); err != nil {
		return err
	}
	if from == to {
		return errors.New("self-loops are not allowed")
	}
	l.contest.Nodes[from].Neighbors.Add(to)
	l.rebuildGraph()
	return nil
}

func (l *Logic) DeleteEdge(from, to string) error {
	if err := l.assertNodeExists(from); err != nil {
		return err
	}
	if err := l.assertNodeExists(to); err != nil {
		return err
	}
	l.contest.Nodes[from].Neighbors.Remove(to)
	l.rebuildGraph()
	return nil
}

// Team mutation

func (l *Logic) AddTeam(t *model.Team) error {
	t.CFHandles = lo.Uniq(t.CFHandles)
	for _, existing := range l.contest.Teams {
		if existing.Name == t.Name {
			return errors.Errorf("team %q already exists", t.Name)
		}
	}
	for _, h := range t.CFHandles {
		if _, taken := l.handleToTeam[h]; taken {
			return errors.Errorf("handle %q is already taken by another team", h)
		}
	}
	if t.Solved == nil {
		t.Solved = make(model.IDSet)
	}
	if t.Available == nil {
		t.Available = make(model.IDSet)
	}
	l.contest.Teams = append(l.contest.Teams, t)
	l.rebuildHandles()
	l.recomputeAvailable(t)
	return nil
}

// UpdateTeam renames a team and/or replaces its handle list. An empty name
// leaves the name unchanged; a nil handle slice leaves the handles unchanged
// (an empty non-nil slice clears them).
func (l *Logic) UpdateTeam(id, name string, handles []string) error {
	team := l.TeamByID(id)
	if team == nil {
		return errors.Errorf("team %q not found", id)
	}

	if name != "" {
		for _, t := range l.contest.Teams {
			if t.ID != id && t.Name == name {
				return errors.Errorf("team name %q already exists", name)
			}
		}
		team.Name = name
	}

	if handles != nil {
		handles = lo.Uniq(handles)
		for _, h := range handles {
			if owner, taken := l.handleToTeam[h]; taken && owner.ID != id {
				return errors.Errorf("handle %q is already taken by another team", h)
			}
		}
		team.CFHandles = handles
		l.rebuildHandles()
	}
	return nil
}

// DeleteTeam is idempotent: deleting an unknown id is a no-op.
func (l *Logic) DeleteTeam(id string) {
	l.contest.Teams = lo.Filter(l.contest.Teams, func(t *model.Team, _ int) bool {
		return t.ID != id
	})
	l.rebuildHandles()
}

// Administrative overrides; these bypass the submission time-window check.

func (l *Logic) ForceSolve(teamID, nodeID string) error {
	team := l.TeamByID(teamID)
	if team == nil {
		return errors.Errorf("team %q not found", teamID)
	}
	if err := l.assertNodeExists(nodeID); err != nil {
		return err
	}
	team.Solved.Add(nodeID)
	l.recomputeAvailable(team)
	return nil
}

func (l *Logic) ForceUnsolve(teamID, nodeID string) error {
	team := l.TeamByID(teamID)
	if team == nil {
		return errors.Errorf("team %q not found", teamID)
	}
	if err := l.assertNodeExists(nodeID); err != nil {
		return err
	}
	if team.Solved.Has(nodeID) {
		team.Solved.Remove(nodeID)
		l.recomputeAvailable(team)
	}
	return nil
}

// Submission reconciliation

// ProcessSubmission folds one judge record into team state. It reports
// whether the record counted; every gate failure (wrong verdict, unknown
// handle, unmapped problem, node not available, outside the contest window,
// malformed record) is silently skipped, never an error.
func (l *Logic) ProcessSubmission(sub model.Submission) bool {
	if sub.Verdict != model.VerdictAccepted {
		return false
	}
	team, ok := l.handleToTeam[sub.Handle()]
	if !ok {
		return false
	}
	node, ok := l.pidToNode[sub.Problem.PID()]
	if !ok {
		return false
	}
	if !team.Available.Has(node.ID) {
		return false
	}
	ts := sub.CreationTimeSeconds
	if ts < l.contest.StartTime || ts > l.contest.StartTime+l.contest.Duration {
		return false
	}

	team.Solved.Add(node.ID)
	l.recomputeAvailable(team)
	return true
}

// ApplySubmissions processes a batch in order and returns how many counted.
// The batch is not iterated to a fixed point: an unlock caused by an earlier
// record in the same batch only benefits records that follow it; anything
// missed is picked up on the next poll cycle.
func (l *Logic) ApplySubmissions(subs []model.Submission) int {
	accepted := 0
	for _, sub := range subs {
		if l.ProcessSubmission(sub) {
			accepted++
		}
	}
	return accepted
}

// TeamProgress scores a team as 1 + the largest x-offset (relative to the
// leftmost node in the layout) among its solved nodes, or 0 if it has solved
// nothing.
func (l *Logic) TeamProgress(teamID string) int {
	if len(l.contest.Nodes) == 0 {
		return 0
	}
	lowest := 0
	first := true
	for _, n := range l.contest.Nodes {
		if first || n.Position.X() < lowest {
			lowest = n.Position.X()
			first = false
		}
	}

	team := l.TeamByID(teamID)
	if team == nil || len(team.Solved) == 0 {
		return 0
	}
	best := 0
	for id := range team.Solved {
		if n, ok := l.contest.Nodes[id]; ok && n.Position.X()-lowest > best {
			best = n.Position.X() - lowest
		}
	}
	return best + 1
}

// Lookups

func (l *Logic) TeamByID(id string) *model.Team {
	for _, t := range l.contest.Teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (l *Logic) TeamByAccessCode(code string) *model.Team {
	for _, t := range l.contest.Teams {
		if t.AccessCode == code {
			return t
		}
	}
	return nil
}

// Derived-structure maintenance

func (l *Logic) rebuildGraph() {
	idx := model.BuildIndices(l.contest.Nodes)
	l.starting = idx.Starting
	l.pidToNode = idx.PIDToNode
	for _, t := range l.contest.Teams {
		l.recomputeAvailable(t)
	}
}

func (l *Logic) rebuildHandles() {
	l.handleToTeam = make(map[string]*model.Team)
	for _, t := range l.contest.Teams {
		for _, h := range t.CFHandles {
			l.handleToTeam[h] = t
		}
	}
}

func (l *Logic) recomputeAvailable(t *model.Team) {
	unlocked := l.starting.Clone()
	for id := range t.Solved {
		if n, ok := l.contest.Nodes[id]; ok {
			for nb := range n.Neighbors {
				unlocked.Add(nb)
			}
		}
	}
	for id := range t.Solved {
		unlocked.Remove(id)
	}
	t.Available = unlocked
}

// Assertions

func (l *Logic) assertNodeExists(id string) error {
	if _, ok := l.contest.Nodes[id]; !ok {
		return errors.Errorf("node %q does not exist", id)
	}
	return nil
}

func (l *Logic) assertPIDFree(pid, exceptNodeID string) error {
	if pid == "" {
		return nil
	}
	for id, n := range l.contest.Nodes {
		if id == exceptNodeID {
			continue
		}
		if n.PID == pid {
			return errors.Errorf("problem id %q is already used by node %q", pid, id)
		}
	}
	return nil
}
