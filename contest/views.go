package contest

import "graphway/model"

// Response-shaped projections of the internal model. These are what the HTTP
// layer serializes; none of them alias live engine state.

type ContestInfo struct {
	Name      string             `json:"name"`
	StartTime int64              `json:"start_time"`
	Duration  int64              `json:"duration"`
	State     model.ContestState `json:"state"`
}

type NodeState string

const (
	NodeLocked    NodeState = "locked"
	NodeAvailable NodeState = "available"
	NodeSolved    NodeState = "solved"
)

type TeamNodeView struct {
	ID        string         `json:"id"`
	PID       string         `json:"pid"`
	Position  model.Position `json:"position"`
	State     NodeState      `json:"state"`
	Neighbors []string       `json:"neighbors"`
}

type TeamView struct {
	TeamName    string         `json:"team_name"`
	CFHandles   []string       `json:"cf_handles"`
	SolvedCount int            `json:"solved_count"`
	Score       int            `json:"score"`
	Nodes       []TeamNodeView `json:"nodes"`
	Contest     ContestInfo    `json:"contest"`
}

type TeamNodeStates struct {
	Name      string   `json:"name"`
	Solved    []string `json:"solved"`
	Available []string `json:"available"`
}

type LeaderboardRow struct {
	Name   string `json:"name"`
	Solved int    `json:"solved"`
	Score  int    `json:"score"`
}

type GraphNode struct {
	ID        string         `json:"id"`
	PID       string         `json:"pid"`
	Rating    int            `json:"rating"`
	Position  model.Position `json:"position"`
	Neighbors []string       `json:"neighbors"`
}

type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	IsDAG bool        `json:"is_dag"`
}

type TeamInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	CFHandles  []string `json:"cf_handles"`
	Solved     []string `json:"solved"`
	Available  []string `json:"available"`
	AccessCode string   `json:"access_code"`
}

type DiskInfo struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type AdminStatus struct {
	Status  string      `json:"status"`
	Role    string      `json:"role"`
	Contest ContestInfo `json:"contest"`
	Disk    *DiskInfo   `json:"disk,omitempty"`
}
