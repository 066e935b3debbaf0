package pipeline

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

// Generations tracks the latest run per client. Beginning a run cancels the
// client's previous run, and a run that is no longer current cannot commit.
type Generations struct {
	mu   sync.Mutex
	seq  uint64
	runs map[string]*generation
}

type generation struct {
	n      uint64
	cancel context.CancelFunc
}

func NewGenerations() *Generations {
	return &Generations{runs: make(map[string]*generation)}
}

// Ticket identifies one run of one client.
type Ticket struct {
	g   *Generations
	key string
	n   uint64
}

// Begin starts a new generation for key and cancels the previous one.
func (g *Generations) Begin(ctx context.Context, key string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.runs[key]; ok {
		prev.cancel()
	}
	g.seq++
	g.runs[key] = &generation{n: g.seq, cancel: cancel}
	return ctx, Ticket{g: g, key: key, n: g.seq}
}

// Current reports whether no newer run has started for the ticket's key.
func (t Ticket) Current() bool {
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	cur, ok := t.g.runs[t.key]
	return ok && cur.n == t.n
}

// Done releases the run. The entry is removed only if still current.
func (t Ticket) Done() {
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	if cur, ok := t.g.runs[t.key]; ok && cur.n == t.n {
		cur.cancel()
		delete(t.g.runs, t.key)
	}
}

// RunLatest is Run scoped to a client: a newer upload from the same client
// cancels this one, and a superseded run reports Failure instead of its own
// result.
func (p *Orchestrator) RunLatest(ctx context.Context, g *Generations, clientID string, data []byte, mimeType string, cfg trackingid.Config) Result {
	if g == nil || clientID == "" {
		return p.Run(ctx, data, mimeType, cfg)
	}
	ctx, ticket := g.Begin(ctx, clientID)
	defer ticket.Done()

	res := p.Run(ctx, data, mimeType, cfg)
	if !ticket.Current() {
		p.logger.Info("stale run discarded", "client_id", clientID, "kind", res.Kind)
		return Failure(MsgSuperseded)
	}
	return res
}
