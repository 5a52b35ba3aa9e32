package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleo-screening/internal/checkpoint"
	"cleo-screening/internal/session"
	"cleo-screening/pkg"
)

// testGraph asks a question, stores the reply, and either loops or ends
// depending on how many replies have arrived.
func testGraph(limit int) Graph {
	return Graph{
		Entry: "ask",
		Nodes: map[string]NodeFunc{
			"ask": func(_ context.Context, s *session.State) error {
				s.AppendAssistant("question?", time.Now())
				return nil
			},
			"store": func(_ context.Context, s *session.State) error {
				s.Answers[fmt.Sprintf("q%d", s.QuestionIndex)] = s.LastApplicantMessage()
				s.QuestionIndex++
				return nil
			},
		},
		Edges: map[string]string{"ask": "store"},
		Routers: map[string]RouterFunc{
			"store": func(s *session.State) string {
				if s.QuestionIndex >= limit {
					return End
				}
				return "ask"
			},
		},
		Allowed: map[string][]string{"store": {"ask", End}},
		Suspend: map[string]bool{"ask": true},
	}
}

func newTestEngine(t *testing.T, g Graph) (*Engine, *checkpoint.MemoryStore) {
	t.Helper()
	store := checkpoint.NewMemoryStore()
	eng, err := New(g, store, zerolog.Nop())
	require.NoError(t, err)
	return eng, store
}

func TestBeginRunsToFirstSuspend(t *testing.T) {
	eng, store := newTestEngine(t, testGraph(2))

	res, err := eng.Begin(context.Background(), "t1", pkg.JobContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{"question?"}, res.Messages)
	assert.False(t, res.Terminal)

	state, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "ask", state.PendingNode)
}

func TestBeginTwiceFails(t *testing.T) {
	eng, _ := newTestEngine(t, testGraph(2))
	_, err := eng.Begin(context.Background(), "t1", pkg.JobContext{})
	require.NoError(t, err)
	_, err = eng.Begin(context.Background(), "t1", pkg.JobContext{})
	assert.ErrorIs(t, err, ErrExists)
}

func TestResumeAdvancesAndTerminates(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t, testGraph(2))

	_, err := eng.Begin(ctx, "t1", pkg.JobContext{})
	require.NoError(t, err)

	res, err := eng.Resume(ctx, "t1", "first answer")
	require.NoError(t, err)
	assert.Equal(t, []string{"question?"}, res.Messages)
	assert.False(t, res.Terminal)

	res, err = eng.Resume(ctx, "t1", "second answer")
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
	assert.True(t, res.Terminal)

	state, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, state.Terminal)
	assert.Equal(t, "first answer", state.Answers["q0"])
	assert.Equal(t, "second answer", state.Answers["q1"])

	_, err = eng.Resume(ctx, "t1", "anything")
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestResumeUnknownThread(t *testing.T) {
	eng, _ := newTestEngine(t, testGraph(1))
	_, err := eng.Resume(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestMessageLogGrowsAcrossResume(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t, testGraph(3))
	_, err := eng.Begin(ctx, "t1", pkg.JobContext{})
	require.NoError(t, err)

	prev := 0
	for i := 0; i < 3; i++ {
		before, err := store.Load(ctx, "t1")
		require.NoError(t, err)
		require.Greater(t, len(before.MessageLog), prev)
		prev = len(before.MessageLog)

		if _, err := eng.Resume(ctx, "t1", "answer"); err != nil {
			break
		}
	}
}

func TestNodeFailureKeepsSessionResumable(t *testing.T) {
	ctx := context.Background()
	fail := true
	g := Graph{
		Entry: "ask",
		Nodes: map[string]NodeFunc{
			"ask": func(_ context.Context, s *session.State) error {
				s.AppendAssistant("question?", time.Now())
				return nil
			},
			"store": func(_ context.Context, s *session.State) error {
				if fail {
					return errors.New("collaborator down")
				}
				return nil
			},
		},
		Edges:   map[string]string{"ask": "store", "store": End},
		Suspend: map[string]bool{"ask": true},
	}
	eng, store := newTestEngine(t, g)

	_, err := eng.Begin(ctx, "t1", pkg.JobContext{})
	require.NoError(t, err)

	_, err = eng.Resume(ctx, "t1", "answer")
	require.Error(t, err)

	state, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, state.Terminal)

	fail = false
	res, err := eng.Resume(ctx, "t1", "answer again")
	require.NoError(t, err)
	assert.True(t, res.Terminal)
}

func TestRouterFallbackOnInvalidTarget(t *testing.T) {
	g := testGraph(1)
	g.Routers["store"] = func(*session.State) string { return "nowhere" }
	eng, _ := newTestEngine(t, g)

	// Falls back to "ask" (first allowed) instead of crashing.
	res, err := eng.Begin(context.Background(), "t1", pkg.JobContext{})
	require.NoError(t, err)
	assert.NotNil(t, res)

	_, err = eng.Resume(context.Background(), "t1", "answer")
	require.NoError(t, err)
}

func TestConcurrentResumesSerialize(t *testing.T) {
	ctx := context.Background()
	eng, store := newTestEngine(t, testGraph(50))
	_, err := eng.Begin(ctx, "t1", pkg.JobContext{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = eng.Resume(ctx, "t1", fmt.Sprintf("answer %d", i))
		}(i)
	}
	wg.Wait()

	state, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	// Every resume stored exactly one answer at a distinct index.
	assert.Equal(t, 20, state.QuestionIndex)
	assert.Len(t, state.Answers, 20)
}

func TestGraphValidate(t *testing.T) {
	g := testGraph(1)
	require.NoError(t, g.Validate())

	bad := testGraph(1)
	bad.Edges["ask"] = "ghost"
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "ghost"))

	noSucc := Graph{
		Entry: "a",
		Nodes: map[string]NodeFunc{"a": func(context.Context, *session.State) error { return nil }},
	}
	assert.Error(t, noSucc.Validate())
}
