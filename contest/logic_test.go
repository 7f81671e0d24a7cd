package contest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphway/model"
)

const (
	testStart    = int64(1_700_000_000)
	testDuration = int64(18_000)
)

func newTestLogic() *Logic {
	l := NewLogic()
	l.Load(&model.Contest{
		Name:      "test",
		Nodes:     make(map[string]*model.Node),
		Teams:     []*model.Team{},
		StartTime: testStart,
		Duration:  testDuration,
		State:     model.StateRunning,
	})
	return l
}

func node(id, pid string, x int, neighbors ...string) *model.Node {
	return &model.Node{
		ID:        id,
		PID:       pid,
		Rating:    800,
		Position:  model.Position{x, 0},
		Neighbors: model.NewIDSet(neighbors...),
	}
}

func team(id, name string, handles ...string) *model.Team {
	return &model.Team{ID: id, Name: name, CFHandles: handles}
}

func okSubmission(handle, pid string, ts int64) model.Submission {
	var contestID int
	var index string
	for i := 0; i < len(pid); i++ {
		if pid[i] == '/' {
			for j := 0; j < i; j++ {
				contestID = contestID*10 + int(pid[j]-'0')
			}
			index = pid[i+1:]
			break
		}
	}
	return model.Submission{
		Verdict:             model.VerdictAccepted,
		CreationTimeSeconds: ts,
		Problem:             model.SubmissionProblem{ContestID: contestID, Index: index},
		Author:              model.SubmissionAuthor{Members: []model.SubmissionMember{{Handle: handle}}},
	}
}

// availableFromScratch recomputes a team's availability directly from the
// invariant definition, independent of the engine's cached indices.
func availableFromScratch(c *model.Contest, t *model.Team) model.IDSet {
	in := make(map[string]int, len(c.Nodes))
	for id := range c.Nodes {
		in[id] = 0
	}
	for _, n := range c.Nodes {
		for nb := range n.Neighbors {
			if _, ok := in[nb]; ok {
				in[nb]++
			}
		}
	}
	unlocked := make(model.IDSet)
	for id, deg := range in {
		if deg == 0 {
			unlocked.Add(id)
		}
	}
	for solved := range t.Solved {
		if n, ok := c.Nodes[solved]; ok {
			for nb := range n.Neighbors {
				unlocked.Add(nb)
			}
		}
	}
	for solved := range t.Solved {
		unlocked.Remove(solved)
	}
	return unlocked
}

func assertInvariant(t *testing.T, l *Logic) {
	t.Helper()
	for _, tm := range l.Contest().Teams {
		assert.Equal(t, availableFromScratch(l.Contest(), tm), tm.Available,
			"availability invariant broken for team %s", tm.Name)
	}
}

func TestAvailabilityInvariant(t *testing.T) {
	l := newTestLogic()
	require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
	require.NoError(t, l.AddTeam(team("t2", "two", "bob")))

	steps := []func() error{
		func() error { return l.AddNode(node("a", "1/A", 0)) },
		func() error { return l.AddNode(node("b", "1/B", 5)) },
		func() error { return l.AddNode(node("c", "1/C", 10)) },
		func() error { return l.AddEdge("a", "b") },
		func() error { return l.AddEdge("b", "c") },
		func() error { return l.ForceSolve("t1", "a") },
		func() error { return l.AddEdge("a", "c") },
		func() error { return l.DeleteEdge("b", "c") },
		func() error { return l.ForceSolve("t2", "a") },
		func() error { return l.ForceSolve("t2", "b") },
		func() error { return l.DeleteNode("b") },
		func() error { return l.UpdateNode(node("c", "2/C", 10)) },
		func() error { return l.ForceUnsolve("t1", "a") },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assertInvariant(t, l)
	}
}

func TestAddNode(t *testing.T) {
	t.Run("duplicate-id", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0)))
		assert.Error(t, l.AddNode(node("a", "1/B", 0)))
	})

	t.Run("duplicate-pid", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0)))
		assert.Error(t, l.AddNode(node("b", "1/A", 0)))
	})

	t.Run("defensive-copy", func(t *testing.T) {
		l := newTestLogic()
		n := node("a", "1/A", 0)
		require.NoError(t, l.AddNode(n))
		require.NoError(t, l.AddNode(node("b", "1/B", 1)))

		// Mutating the caller's set must not touch the stored node.
		n.Neighbors.Add("b")
		assert.Empty(t, l.Contest().Nodes["a"].Neighbors)
	})
}

func TestUpdateNode(t *testing.T) {
	l := newTestLogic()
	require.NoError(t, l.AddNode(node("a", "1/A", 0)))
	require.NoError(t, l.AddNode(node("b", "1/B", 5)))

	t.Run("unknown-id", func(t *testing.T) {
		assert.Error(t, l.UpdateNode(node("z", "9/Z", 0)))
	})

	t.Run("pid-collision-with-other", func(t *testing.T) {
		assert.Error(t, l.UpdateNode(node("b", "1/A", 5)))
	})

	t.Run("keeping-own-pid", func(t *testing.T) {
		updated := node("b", "1/B", 7)
		require.NoError(t, l.UpdateNode(updated))
		assert.Equal(t, 7, l.Contest().Nodes["b"].Position.X())
	})
}

func TestDeleteNode(t *testing.T) {
	l := newTestLogic()
	require.NoError(t, l.AddNode(node("a", "1/A", 0, "b")))
	require.NoError(t, l.AddNode(node("b", "1/B", 5, "c")))
	require.NoError(t, l.AddNode(node("c", "1/C", 10)))
	require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
	require.NoError(t, l.ForceSolve("t1", "a"))
	require.NoError(t, l.ForceSolve("t1", "b"))

	require.NoError(t, l.DeleteNode("b"))

	tm := l.TeamByID("t1")
	assert.False(t, l.Contest().Nodes["a"].Neighbors.Has("b"))
	assert.False(t, tm.Solved.Has("b"))
	assertInvariant(t, l)

	// c lost its only in-edge, so it is a starting node now, available again.
	assert.True(t, tm.Available.Has("c"))

	assert.Error(t, l.DeleteNode("b"), "deleting twice fails the existence check")
}

func TestEdges(t *testing.T) {
	t.Run("self-loop-rejected", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0)))
		assert.Error(t, l.AddEdge("a", "a"))
	})

	t.Run("unknown-endpoints", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0)))
		assert.Error(t, l.AddEdge("a", "z"))
		assert.Error(t, l.AddEdge("z", "a"))
		assert.Error(t, l.DeleteEdge("a", "z"))
	})

	t.Run("add-unlocks-target-for-solver", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0)))
		require.NoError(t, l.AddNode(node("b", "1/B", 5)))
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		require.NoError(t, l.ForceSolve("t1", "a"))

		require.NoError(t, l.AddEdge("a", "b"))
		assert.True(t, l.TeamByID("t1").Available.Has("b"))
		assertInvariant(t, l)
	})

	t.Run("idempotent", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0)))
		require.NoError(t, l.AddNode(node("b", "1/B", 5)))

		require.NoError(t, l.AddEdge("a", "b"))
		require.NoError(t, l.AddEdge("a", "b"))
		assert.Equal(t, model.NewIDSet("b"), l.Contest().Nodes["a"].Neighbors)

		require.NoError(t, l.DeleteEdge("a", "b"))
		require.NoError(t, l.DeleteEdge("a", "b"))
		assert.Empty(t, l.Contest().Nodes["a"].Neighbors)
	})
}

func TestTeams(t *testing.T) {
	t.Run("duplicate-name", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		assert.Error(t, l.AddTeam(team("t2", "one", "bob")))
	})

	t.Run("handle-taken", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		assert.Error(t, l.AddTeam(team("t2", "two", "alice")))
	})

	t.Run("handles-deduplicated", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddTeam(team("t1", "one", "alice", "alice", "bob")))
		assert.Equal(t, []string{"alice", "bob"}, l.TeamByID("t1").CFHandles)
	})

	t.Run("starting-baseline", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0, "b")))
		require.NoError(t, l.AddNode(node("b", "1/B", 5)))
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		assert.Equal(t, model.NewIDSet("a"), l.TeamByID("t1").Available)
	})

	t.Run("update", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		require.NoError(t, l.AddTeam(team("t2", "two", "bob")))

		assert.Error(t, l.UpdateTeam("zzz", "three", nil))
		assert.Error(t, l.UpdateTeam("t2", "one", nil))
		assert.Error(t, l.UpdateTeam("t2", "", []string{"alice"}))

		// A team may keep its own handles in the replacement list.
		require.NoError(t, l.UpdateTeam("t1", "renamed", []string{"alice", "carol"}))
		assert.Equal(t, "renamed", l.TeamByID("t1").Name)
		assert.Equal(t, []string{"alice", "carol"}, l.TeamByID("t1").CFHandles)

		// Nil leaves handles alone; empty clears them.
		require.NoError(t, l.UpdateTeam("t1", "", nil))
		assert.Len(t, l.TeamByID("t1").CFHandles, 2)
		require.NoError(t, l.UpdateTeam("t1", "", []string{}))
		assert.Empty(t, l.TeamByID("t1").CFHandles)
	})

	t.Run("delete-idempotent", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		l.DeleteTeam("t1")
		l.DeleteTeam("t1")
		assert.Empty(t, l.Contest().Teams)

		// Freed handle is reusable.
		assert.NoError(t, l.AddTeam(team("t2", "two", "alice")))
	})
}

func TestProcessSubmission(t *testing.T) {
	setup := func(t *testing.T) *Logic {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0, "b")))
		require.NoError(t, l.AddNode(node("b", "1/B", 5)))
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		return l
	}
	inWindow := testStart + 100

	t.Run("accepted", func(t *testing.T) {
		l := setup(t)
		assert.True(t, l.ProcessSubmission(okSubmission("alice", "1/A", inWindow)))
		tm := l.TeamByID("t1")
		assert.True(t, tm.Solved.Has("a"))
		assert.Equal(t, model.NewIDSet("b"), tm.Available)
	})

	t.Run("wrong-verdict", func(t *testing.T) {
		l := setup(t)
		sub := okSubmission("alice", "1/A", inWindow)
		sub.Verdict = "WRONG_ANSWER"
		assert.False(t, l.ProcessSubmission(sub))
		assert.Empty(t, l.TeamByID("t1").Solved)
	})

	t.Run("unknown-handle", func(t *testing.T) {
		l := setup(t)
		assert.False(t, l.ProcessSubmission(okSubmission("mallory", "1/A", inWindow)))
	})

	t.Run("unmapped-problem", func(t *testing.T) {
		l := setup(t)
		assert.False(t, l.ProcessSubmission(okSubmission("alice", "9/Z", inWindow)))
	})

	t.Run("node-not-available", func(t *testing.T) {
		l := setup(t)
		assert.False(t, l.ProcessSubmission(okSubmission("alice", "1/B", inWindow)))
	})

	t.Run("outside-window", func(t *testing.T) {
		l := setup(t)
		assert.False(t, l.ProcessSubmission(okSubmission("alice", "1/A", testStart-1)))
		assert.False(t, l.ProcessSubmission(okSubmission("alice", "1/A", testStart+testDuration+1)))
		// Boundaries are inclusive.
		assert.True(t, l.ProcessSubmission(okSubmission("alice", "1/A", testStart)))
	})

	t.Run("malformed-no-author", func(t *testing.T) {
		l := setup(t)
		sub := okSubmission("alice", "1/A", inWindow)
		sub.Author.Members = nil
		assert.False(t, l.ProcessSubmission(sub))
	})

	t.Run("idempotent-re-solve", func(t *testing.T) {
		l := setup(t)
		require.True(t, l.ProcessSubmission(okSubmission("alice", "1/A", inWindow)))
		before := l.TeamByID("t1")
		solved, available := before.Solved.Clone(), before.Available.Clone()

		// The node is solved, hence no longer available, so the gate drops it.
		assert.False(t, l.ProcessSubmission(okSubmission("alice", "1/A", inWindow)))
		assert.Equal(t, solved, before.Solved)
		assert.Equal(t, available, before.Available)
	})
}

func TestApplySubmissions(t *testing.T) {
	setup := func(t *testing.T) *Logic {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0, "b")))
		require.NoError(t, l.AddNode(node("b", "1/B", 5)))
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		return l
	}
	inWindow := testStart + 100

	t.Run("in-order-cascade", func(t *testing.T) {
		l := setup(t)
		accepted := l.ApplySubmissions([]model.Submission{
			okSubmission("alice", "1/A", inWindow),
			okSubmission("alice", "1/B", inWindow),
		})
		assert.Equal(t, 2, accepted)
		assert.Equal(t, model.NewIDSet("a", "b"), l.TeamByID("t1").Solved)
	})

	t.Run("out-of-order-no-fixed-point", func(t *testing.T) {
		l := setup(t)
		accepted := l.ApplySubmissions([]model.Submission{
			okSubmission("alice", "1/B", inWindow),
			okSubmission("alice", "1/A", inWindow),
		})
		// b was not yet available when its record was seen; it waits for the
		// next poll cycle.
		assert.Equal(t, 1, accepted)
		assert.Equal(t, model.NewIDSet("a"), l.TeamByID("t1").Solved)
	})
}

func TestTeamProgress(t *testing.T) {
	t.Run("scenario", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0, "b")))
		require.NoError(t, l.AddNode(node("b", "1/B", 5)))
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		inWindow := testStart + 100

		assert.Equal(t, 0, l.TeamProgress("t1"))

		require.True(t, l.ProcessSubmission(okSubmission("alice", "1/A", inWindow)))
		assert.Equal(t, model.NewIDSet("a"), l.TeamByID("t1").Solved)
		assert.Equal(t, model.NewIDSet("b"), l.TeamByID("t1").Available)
		assert.Equal(t, 1, l.TeamProgress("t1"))

		require.True(t, l.ProcessSubmission(okSubmission("alice", "1/B", inWindow)))
		assert.Equal(t, model.NewIDSet("a", "b"), l.TeamByID("t1").Solved)
		assert.Empty(t, l.TeamByID("t1").Available)
		assert.Equal(t, 6, l.TeamProgress("t1"))
	})

	t.Run("negative-min-x", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", -3)))
		require.NoError(t, l.AddNode(node("b", "1/B", 4)))
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		require.NoError(t, l.ForceSolve("t1", "b"))
		assert.Equal(t, 8, l.TeamProgress("t1"))
	})

	t.Run("empty-graph", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddTeam(team("t1", "one", "alice")))
		assert.Equal(t, 0, l.TeamProgress("t1"))
	})

	t.Run("unknown-team", func(t *testing.T) {
		l := newTestLogic()
		require.NoError(t, l.AddNode(node("a", "1/A", 0)))
		assert.Equal(t, 0, l.TeamProgress("zzz"))
	})
}

func TestForceSolveUnsolve(t *testing.T) {
	l := newTestLogic()
	require.NoError(t, l.AddNode(node("a", "1/A", 0, "b")))
	require.NoError(t, l.AddNode(node("b", "1/B", 5)))
	require.NoError(t, l.AddTeam(team("t1", "one", "alice")))

	assert.Error(t, l.ForceSolve("zzz", "a"))
	assert.Error(t, l.ForceSolve("t1", "zzz"))

	// Force solve skips availability gating entirely: b is locked, solve it.
	require.NoError(t, l.ForceSolve("t1", "b"))
	assert.True(t, l.TeamByID("t1").Solved.Has("b"))
	assertInvariant(t, l)

	require.NoError(t, l.ForceUnsolve("t1", "b"))
	assert.False(t, l.TeamByID("t1").Solved.Has("b"))
	assertInvariant(t, l)

	// Unsolving an unsolved node is a no-op.
	require.NoError(t, l.ForceUnsolve("t1", "b"))
}
