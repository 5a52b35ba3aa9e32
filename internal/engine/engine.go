package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cleo-screening/internal/checkpoint"
	"cleo-screening/internal/session"
	"cleo-screening/pkg"
)

// End is the sentinel successor that terminates a workflow.
const End = "__end__"

// maxStepsPerRun bounds a single advance so a miswired graph cannot
// spin forever between two suspend points.
const maxStepsPerRun = 100

var (
	// ErrExists is returned by Begin when the thread already has a
	// checkpoint.
	ErrExists = errors.New("session already exists")
	// ErrTerminal is returned by Resume once the workflow has finished.
	ErrTerminal = errors.New("session is terminal")
)

// NodeFunc runs one node against the session state.
type NodeFunc func(ctx context.Context, s *session.State) error

// RouterFunc picks the successor of a node. It must return a name from
// the node's allowed set; anything else falls back to the first entry.
type RouterFunc func(s *session.State) string

// Graph is a declarative workflow: named nodes, unconditional edges,
// routers with fixed allowed sets, and the suspend set naming nodes
// that wait for applicant input after running.
type Graph struct {
	Entry   string
	Nodes   map[string]NodeFunc
	Edges   map[string]string
	Routers map[string]RouterFunc
	Allowed map[string][]string
	Suspend map[string]bool
}

// Validate checks that every edge, router target and the entry point
// resolve to known nodes.
func (g Graph) Validate() error {
	resolve := func(name string) error {
		if name == End {
			return nil
		}
		if _, ok := g.Nodes[name]; !ok {
			return fmt.Errorf("unknown node %q", name)
		}
		return nil
	}
	if err := resolve(g.Entry); err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	for from, to := range g.Edges {
		if err := resolve(to); err != nil {
			return fmt.Errorf("edge from %q: %w", from, err)
		}
	}
	for from, targets := range g.Allowed {
		if len(targets) == 0 {
			return fmt.Errorf("router for %q has an empty allowed set", from)
		}
		for _, to := range targets {
			if err := resolve(to); err != nil {
				return fmt.Errorf("router for %q: %w", from, err)
			}
		}
	}
	for name := range g.Nodes {
		_, hasEdge := g.Edges[name]
		_, hasRouter := g.Routers[name]
		if !hasEdge && !hasRouter {
			return fmt.Errorf("node %q has no successor", name)
		}
		if hasEdge && hasRouter {
			return fmt.Errorf("node %q has both an edge and a router", name)
		}
	}
	return nil
}

// Result is what one advance of the workflow produced.
type Result struct {
	Messages []string
	Terminal bool
}

// Engine drives a Graph over a checkpoint store. Each thread advances
// under its own mutex so concurrent resumes never interleave.
type Engine struct {
	graph  Graph
	store  checkpoint.Store
	logger zerolog.Logger
	now    func() time.Time

	locks sync.Map // threadID -> *sync.Mutex
}

// New builds an engine. The graph must validate.
func New(graph Graph, store checkpoint.Store, logger zerolog.Logger) (*Engine, error) {
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return &Engine{graph: graph, store: store, logger: logger, now: time.Now}, nil
}

func (e *Engine) lock(threadID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(threadID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Begin seeds a fresh session and runs from the entry node to the
// first suspend point.
func (e *Engine) Begin(ctx context.Context, threadID string, job pkg.JobContext) (*Result, error) {
	mu := e.lock(threadID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := e.store.Load(ctx, threadID); err == nil {
		return nil, ErrExists
	} else if !errors.Is(err, checkpoint.ErrNotFound) {
		return nil, err
	}

	state := session.New(threadID, job)
	return e.advance(ctx, state, e.graph.Entry)
}

// Resume appends one applicant turn and runs from the pending suspend
// point's successor to the next suspend point or the end.
func (e *Engine) Resume(ctx context.Context, threadID, text string) (*Result, error) {
	mu := e.lock(threadID)
	mu.Lock()
	defer mu.Unlock()

	state, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if state.Terminal {
		return nil, ErrTerminal
	}

	state.AppendApplicant(text, e.now())
	next := e.successor(state, state.PendingNode)
	return e.advance(ctx, state, next)
}

// successor resolves the node that follows from, through its edge or
// router. A router return outside the allowed set falls back to the
// first allowed target.
func (e *Engine) successor(state *session.State, from string) string {
	if to, ok := e.graph.Edges[from]; ok {
		return to
	}
	router, ok := e.graph.Routers[from]
	if !ok {
		return End
	}
	to := router(state)
	allowed := e.graph.Allowed[from]
	for _, a := range allowed {
		if to == a {
			return to
		}
	}
	e.logger.Warn().
		Str("thread_id", state.ThreadID).
		Str("node", from).
		Str("returned", to).
		Msg("router returned a target outside its allowed set")
	return allowed[0]
}

// advance runs nodes starting at node until a suspend point or End,
// then persists the state. Messages appended during the run are
// returned in order.
func (e *Engine) advance(ctx context.Context, state *session.State, node string) (*Result, error) {
	mark := len(state.MessageLog)

	for steps := 0; node != End; steps++ {
		if steps >= maxStepsPerRun {
			return nil, fmt.Errorf("thread %s: exceeded %d steps in one run", state.ThreadID, maxStepsPerRun)
		}

		fn := e.graph.Nodes[node]
		if err := fn(ctx, state); err != nil {
			// Persist progress so the session stays resumable.
			e.logger.Error().Err(err).
				Str("thread_id", state.ThreadID).
				Str("node", node).
				Msg("node failed")
			if saveErr := e.store.Save(ctx, state); saveErr != nil {
				e.logger.Error().Err(saveErr).
					Str("thread_id", state.ThreadID).
					Msg("failed to checkpoint after node failure")
			}
			return nil, fmt.Errorf("node %s: %w", node, err)
		}

		if e.graph.Suspend[node] {
			state.PendingNode = node
			break
		}
		node = e.successor(state, node)
	}

	if node == End {
		state.Terminal = true
		state.PendingNode = ""
	}

	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to checkpoint thread %s: %w", state.ThreadID, err)
	}

	res := &Result{Terminal: state.Terminal}
	for _, msg := range state.MessageLog[mark:] {
		if msg.Role == session.RoleAssistant {
			res.Messages = append(res.Messages, msg.Content)
		}
	}
	return res, nil
}
