package contest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/disk"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"graphway/metrics"
	"graphway/model"
	"graphway/utils"
)

// ErrNotFound marks lookups for teams or access codes that match nothing.
var ErrNotFound = errors.New("not found")

// errGraphLocked is returned for graph mutations outside the editing phase.
var errGraphLocked = errors.New("cannot modify graph during contest (must be in EDITING state)")

const (
	defaultContestName = "New Contest"
	defaultStartDelay  = time.Hour
	defaultDuration    = 5 * time.Hour
)

// Manager owns the single live contest behind one mutex. Every public method,
// read or write, holds the lock for its full duration; contest-scale traffic
// is small enough that serializing everything beats reasoning about partial
// visibility. Mutating methods persist a snapshot before returning; snapshot
// failures are logged and swallowed (persistence is best effort).
type Manager struct {
	mu    sync.Mutex
	logic *Logic

	snapshotPath string
	sugar        *zap.SugaredLogger
	now          func() time.Time
}

func NewManager(logger *zap.Logger, snapshotPath string) *Manager {
	return &Manager{
		logic:        NewLogic(),
		snapshotPath: snapshotPath,
		sugar:        logger.Sugar().With("snapshot", snapshotPath),
		now:          time.Now,
	}
}

// StartContest brings up the live contest: the snapshot file if one loads
// cleanly, otherwise a fresh default. It never fails outward.
func (m *Manager) StartContest() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir := filepath.Dir(m.snapshotPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			m.sugar.With("err", err).Error("failed to prepare snapshot directory")
		}
	}

	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.sugar.With("err", err).Error("failed to read snapshot, starting fresh")
		}
		m.initDefaultLocked()
		return
	}

	contest, err := decodeContest(data)
	if err != nil {
		m.sugar.With("err", err).Error("failed to load snapshot, starting fresh")
		m.initDefaultLocked()
		return
	}

	m.logic.Load(contest)
	m.sugar.Infof("loaded contest %q from snapshot", contest.Name)
}

// ResetContest discards everything and reinstates the default empty contest.
func (m *Manager) ResetContest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initDefaultLocked()
	m.saveLocked()
}

func (m *Manager) initDefaultLocked() {
	m.logic.Load(&model.Contest{
		Name:      defaultContestName,
		Nodes:     make(map[string]*model.Node),
		Teams:     []*model.Team{},
		StartTime: m.now().Unix() + int64(defaultStartDelay/time.Second),
		Duration:  int64(defaultDuration / time.Second),
		State:     model.StateEditing,
	})
}

// SaveState writes a snapshot outside of any other operation, e.g. the final
// flush on shutdown.
func (m *Manager) SaveState() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	data, err := json.MarshalIndent(m.logic.Contest(), "", "  ")
	if err == nil {
		err = os.WriteFile(m.snapshotPath, data, 0644)
	}
	if err != nil {
		metrics.SnapshotErrors.Inc()
		m.sugar.With("err", err).Error("failed to write contest snapshot")
		return errors.WithMessage(err, "failed to write contest snapshot")
	}
	metrics.SnapshotWrites.Inc()
	return nil
}

// ImportContest validates a whole-contest JSON document and swaps it in as
// the live contest. On any failure the live contest is left untouched.
func (m *Manager) ImportContest(data []byte) error {
	contest, err := decodeContest(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.logic.Load(contest)
	m.saveLocked()
	return nil
}

func decodeContest(data []byte) (*model.Contest, error) {
	contest := new(model.Contest)
	if err := json.Unmarshal(data, contest); err != nil {
		return nil, errors.WithMessage(err, "invalid contest file format")
	}
	if err := contest.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid contest file format")
	}
	return contest, nil
}

// ExportData serializes the live contest. The output is byte-compatible with
// the autosave snapshot and with ImportContest.
func (m *Manager) ExportData() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.MarshalIndent(m.logic.Contest(), "", "  ")
}

// Contest configuration

func (m *Manager) SetState(state model.ContestState) error {
	if !state.Valid() {
		return errors.Errorf("invalid contest state %q", state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logic.Contest().State = state
	m.saveLocked()
	return nil
}

func (m *Manager) UpdateConfig(startTime, duration int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.logic.Contest()
	c.StartTime = startTime
	c.Duration = duration
	if name != "" {
		m.logic.Rename(name)
	}
	m.saveLocked()
}

// Graph mutation; gated on the editing phase so the graph is frozen once the
// contest starts.

func (m *Manager) AddOrUpdateNode(n *model.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.assertEditingLocked(); err != nil {
		return err
	}
	var err error
	if _, ok := m.logic.Contest().Nodes[n.ID]; ok {
		err = m.logic.UpdateNode(n)
	} else {
		err = m.logic.AddNode(n)
	}
	if err != nil {
		return err
	}
	m.saveLocked()
	return nil
}

func (m *Manager) DeleteNode(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.assertEditingLocked(); err != nil {
		return err
	}
	if err := m.logic.DeleteNode(id); err != nil {
		return err
	}
	m.saveLocked()
	return nil
}

func (m *Manager) AddEdge(from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.assertEditingLocked(); err != nil {
		return err
	}
	if err := m.logic.AddEdge(from, to); err != nil {
		return err
	}
	m.saveLocked()
	return nil
}

func (m *Manager) DeleteEdge(from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.assertEditingLocked(); err != nil {
		return err
	}
	if err := m.logic.DeleteEdge(from, to); err != nil {
		return err
	}
	m.saveLocked()
	return nil
}

func (m *Manager) assertEditingLocked() error {
	if m.logic.Contest().State != model.StateEditing {
		return errGraphLocked
	}
	return nil
}

// Team management

// AddTeam registers a new team and returns its full record, including the
// generated access code the team will authenticate with.
func (m *Manager) AddTeam(name string, handles []string) (*TeamInfo, error) {
	team := &model.Team{
		ID:         uuid.NewString(),
		Name:       name,
		CFHandles:  handles,
		Solved:     make(model.IDSet),
		Available:  make(model.IDSet),
		AccessCode: utils.NewAccessCode(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.logic.AddTeam(team); err != nil {
		return nil, err
	}
	m.saveLocked()
	info := teamInfo(team)
	return &info, nil
}

func (m *Manager) UpdateTeam(id, name string, handles []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.logic.UpdateTeam(id, name, handles); err != nil {
		return err
	}
	m.saveLocked()
	return nil
}

func (m *Manager) RemoveTeam(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logic.DeleteTeam(id)
	m.saveLocked()
}

func (m *Manager) ForceSolve(teamID, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.logic.ForceSolve(teamID, nodeID); err != nil {
		return err
	}
	m.saveLocked()
	return nil
}

func (m *Manager) ForceUnsolve(teamID, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.logic.ForceUnsolve(teamID, nodeID); err != nil {
		return err
	}
	m.saveLocked()
	return nil
}

// ProcessSubmissions folds a poll batch into team state and returns how many
// records counted. A snapshot is written only when something changed.
func (m *Manager) ProcessSubmissions(subs []model.Submission) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	accepted := m.logic.ApplySubmissions(subs)
	if accepted > 0 {
		metrics.SubmissionsAccepted.Add(float64(accepted))
		m.saveLocked()
	}
	return accepted
}

// Read projections

func (m *Manager) ContestInfo() ContestInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contestInfoLocked()
}

func (m *Manager) contestInfoLocked() ContestInfo {
	c := m.logic.Contest()
	return ContestInfo{
		Name:      c.Name,
		StartTime: c.StartTime,
		Duration:  c.Duration,
		State:     c.State,
	}
}

func (m *Manager) TeamNodeStates(teamID string) (*TeamNodeStates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team := m.logic.TeamByID(teamID)
	if team == nil {
		return nil, ErrNotFound
	}
	return &TeamNodeStates{
		Name:      team.Name,
		Solved:    team.Solved.Sorted(),
		Available: team.Available.Sorted(),
	}, nil
}

// LeaderboardData returns one row per team, sorted by score then solved
// count, both descending.
func (m *Manager) LeaderboardData() []LeaderboardRow {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]LeaderboardRow, 0, len(m.logic.Contest().Teams))
	for _, t := range m.logic.Contest().Teams {
		rows = append(rows, LeaderboardRow{
			Name:   t.Name,
			Solved: len(t.Solved),
			Score:  m.logic.TeamProgress(t.ID),
		})
	}
	slices.SortStableFunc(rows, func(a, b LeaderboardRow) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Solved > b.Solved
	})
	return rows
}

// TeamView resolves a team by its access code and projects everything that
// team is allowed to see.
func (m *Manager) TeamView(accessCode string) (*TeamView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	team := m.logic.TeamByAccessCode(accessCode)
	if team == nil {
		return nil, ErrNotFound
	}

	c := m.logic.Contest()
	nodes := make([]TeamNodeView, 0, len(c.Nodes))
	for _, id := range sortedNodeIDs(c.Nodes) {
		n := c.Nodes[id]
		state := NodeLocked
		switch {
		case team.Solved.Has(id):
			state = NodeSolved
		case team.Available.Has(id):
			state = NodeAvailable
		}
		nodes = append(nodes, TeamNodeView{
			ID:        id,
			PID:       n.PID,
			Position:  n.Position,
			State:     state,
			Neighbors: n.Neighbors.Sorted(),
		})
	}

	return &TeamView{
		TeamName:    team.Name,
		CFHandles:   append([]string{}, team.CFHandles...),
		SolvedCount: len(team.Solved),
		Score:       m.logic.TeamProgress(team.ID),
		Nodes:       nodes,
		Contest:     m.contestInfoLocked(),
	}, nil
}

func (m *Manager) GraphData() GraphData {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.logic.Contest()
	nodes := make([]GraphNode, 0, len(c.Nodes))
	for _, id := range sortedNodeIDs(c.Nodes) {
		n := c.Nodes[id]
		nodes = append(nodes, GraphNode{
			ID:        id,
			PID:       n.PID,
			Rating:    n.Rating,
			Position:  n.Position,
			Neighbors: n.Neighbors.Sorted(),
		})
	}
	return GraphData{Nodes: nodes, IsDAG: model.IsDAG(c.Nodes)}
}

func (m *Manager) AdminStatus() AdminStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := AdminStatus{
		Status:  "ok",
		Role:    "admin",
		Contest: m.contestInfoLocked(),
	}
	if usage, err := disk.Usage(filepath.Dir(m.snapshotPath)); err == nil {
		status.Disk = &DiskInfo{
			Path:        usage.Path,
			TotalBytes:  usage.Total,
			FreeBytes:   usage.Free,
			UsedPercent: usage.UsedPercent,
		}
	}
	return status
}

func (m *Manager) AllTeams() []TeamInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	teams := make([]TeamInfo, 0, len(m.logic.Contest().Teams))
	for _, t := range m.logic.Contest().Teams {
		teams = append(teams, teamInfo(t))
	}
	return teams
}

func teamInfo(t *model.Team) TeamInfo {
	return TeamInfo{
		ID:         t.ID,
		Name:       t.Name,
		CFHandles:  append([]string{}, t.CFHandles...),
		Solved:     t.Solved.Sorted(),
		Available:  t.Available.Sorted(),
		AccessCode: t.AccessCode,
	}
}

func sortedNodeIDs(nodes map[string]*model.Node) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
