package poller

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"graphway/contest"
	"graphway/model"
)

type fakeFetcher struct {
	subs  []model.Submission
	err   error
	calls int
	count int
}

func (f *fakeFetcher) RecentStatus(_ context.Context, count int) ([]model.Submission, error) {
	f.calls++
	f.count = count
	return f.subs, f.err
}

func newTestManager(t *testing.T) *contest.Manager {
	t.Helper()
	m := contest.NewManager(zap.NewNop(), filepath.Join(t.TempDir(), "snap.json"))
	m.StartContest()
	return m
}

func openWindow(t *testing.T, m *contest.Manager) (start, duration int64) {
	t.Helper()
	start = time.Now().Unix() - 100
	duration = int64(1000)
	m.UpdateConfig(start, duration, "")
	return start, duration
}

func TestCycleSkipsWhenNotRunning(t *testing.T) {
	m := newTestManager(t)
	openWindow(t, m)
	fetcher := &fakeFetcher{}
	p := New(zap.NewNop(), m, fetcher, time.Second, 500)

	p.cycle(context.Background())
	assert.Zero(t, fetcher.calls, "no fetch outside the running phase")
	assert.Equal(t, model.StateEditing, m.ContestInfo().State)
}

func TestCycleHealsFinishedContest(t *testing.T) {
	m := newTestManager(t)
	openWindow(t, m)
	require.NoError(t, m.SetState(model.StateFinished))
	fetcher := &fakeFetcher{}
	p := New(zap.NewNop(), m, fetcher, time.Second, 500)

	p.cycle(context.Background())
	assert.Equal(t, model.StateRunning, m.ContestInfo().State,
		"finished while the window is still open flips back to running")
	assert.Zero(t, fetcher.calls, "healing cycle does not fetch; the next one will")
}

func TestCycleFetchesAndIngests(t *testing.T) {
	m := newTestManager(t)
	start, _ := openWindow(t, m)
	require.NoError(t, m.AddOrUpdateNode(&model.Node{
		ID: "a", PID: "1/A", Neighbors: model.NewIDSet(),
	}))
	info, err := m.AddTeam("one", []string{"alice"})
	require.NoError(t, err)
	require.NoError(t, m.SetState(model.StateRunning))

	fetcher := &fakeFetcher{subs: []model.Submission{{
		Verdict:             model.VerdictAccepted,
		CreationTimeSeconds: start + 10,
		Problem:             model.SubmissionProblem{ContestID: 1, Index: "A"},
		Author:              model.SubmissionAuthor{Members: []model.SubmissionMember{{Handle: "alice"}}},
	}}}
	p := New(zap.NewNop(), m, fetcher, time.Second, 250)

	p.cycle(context.Background())
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 250, fetcher.count)

	states, err := m.TeamNodeStates(info.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, states.Solved)
}

func TestCycleFinishesElapsedContest(t *testing.T) {
	m := newTestManager(t)
	m.UpdateConfig(time.Now().Unix()-1000, 100, "")
	require.NoError(t, m.SetState(model.StateRunning))
	fetcher := &fakeFetcher{}
	p := New(zap.NewNop(), m, fetcher, time.Second, 500)

	p.cycle(context.Background())
	assert.Equal(t, model.StateFinished, m.ContestInfo().State)
	assert.Zero(t, fetcher.calls, "no fetch once the window has elapsed")
}

func TestCycleSurvivesFetchFailure(t *testing.T) {
	m := newTestManager(t)
	openWindow(t, m)
	require.NoError(t, m.SetState(model.StateRunning))
	fetcher := &fakeFetcher{err: errors.New("judge is down")}
	p := New(zap.NewNop(), m, fetcher, time.Second, 500)

	p.cycle(context.Background())
	p.cycle(context.Background())
	assert.Equal(t, 2, fetcher.calls, "keeps retrying at the fixed interval")
	assert.Equal(t, model.StateRunning, m.ContestInfo().State)
}

func TestRunStopsOnCancel(t *testing.T) {
	m := newTestManager(t)
	p := New(zap.NewNop(), m, &fakeFetcher{}, 10*time.Millisecond, 500)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
