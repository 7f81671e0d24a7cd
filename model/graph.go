package model

// Indices are the derived lookup structures over a contest graph. They are
// rebuilt wholesale after every mutation rather than maintained incrementally;
// contest graphs are small enough that recomputation is the simpler invariant.
type Indices struct {
	// Starting holds every node with in-degree zero. These are unlocked for
	// all teams from the beginning of the contest.
	Starting IDSet
	// PIDToNode maps an external problem id to its node.
	PIDToNode map[string]*Node
}

// BuildIndices computes the derived indices from scratch.
func BuildIndices(nodes map[string]*Node) *Indices {
	in := make(map[string]int, len(nodes))
	for id := range nodes {
		in[id] = 0
	}
	for _, n := range nodes {
		for nb := range n.Neighbors {
			if _, ok := in[nb]; ok {
				in[nb]++
			}
		}
	}

	idx := &Indices{
		Starting:  make(IDSet, len(nodes)),
		PIDToNode: make(map[string]*Node, len(nodes)),
	}
	for id, deg := range in {
		if deg == 0 {
			idx.Starting.Add(id)
		}
	}
	for _, n := range nodes {
		if n.PID != "" {
			idx.PIDToNode[n.PID] = n
		}
	}
	return idx
}

// IsDAG reports whether the graph is acyclic, by Kahn's algorithm: peel
// zero-in-degree nodes until none remain; leftovers form cycles. Cycles are
// not rejected on edit, but nodes trapped in one with no outside entry can
// never unlock, so the flag is exposed to admins as a diagnostic.
func IsDAG(nodes map[string]*Node) bool {
	in := make(map[string]int, len(nodes))
	for id := range nodes {
		in[id] = 0
	}
	for _, n := range nodes {
		for nb := range n.Neighbors {
			if _, ok := in[nb]; ok {
				in[nb]++
			}
		}
	}

	queue := make([]string, 0, len(nodes))
	for id, deg := range in {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	seen := 0
	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		seen++
		for nb := range nodes[id].Neighbors {
			if _, ok := in[nb]; !ok {
				continue
			}
			in[nb]--
			if in[nb] == 0 {
				queue = append(queue, nb)
			}
		}
	}
	return seen == len(nodes)
}
