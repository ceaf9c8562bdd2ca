// Package batcher merges bursts of pickup events registered by one staff
// member into per-guardian digests.
//
// Each actor has a buffer and a debounce timer. Every event resets the
// timer; when it finally fires the buffer is flushed: one event becomes an
// individual notice, two or more become one digest per recipient. Buffers
// live in memory only. Events still buffered when the process stops are
// lost, and Close logs how many.
package batcher

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"scoda_backend/internals/helpers/clock"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Debounce  time.Duration
	Cooldown  time.Duration
	Workers   int
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = 10 * time.Second
	}
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.QueueSize < 1 {
		c.QueueSize = 256
	}
	return c
}

type actorBuffer struct {
	// held for the whole flush so flushes of one actor never overlap
	flushMu sync.Mutex

	mu     sync.Mutex
	events []bufferedEvent
	timer  *clock.Timer
	gen    uint64
}

type intakeJob struct {
	actor uuid.UUID
	event PickupEvent
}

type flushJob struct {
	actor uuid.UUID
	buf   *actorBuffer
	gen   uint64
}

type Batcher struct {
	cfg      Config
	clock    clock.Clock
	sender   Sender
	resolver RecipientResolver
	cooldown *cooldownGuard

	// lock order: mu, then actorBuffer.mu
	mu     sync.Mutex
	actors map[uuid.UUID]*actorBuffer

	intake  chan intakeJob
	flushes chan flushJob
	done    chan struct{}

	started   atomic.Bool
	closeOnce sync.Once
	baseCtx   context.Context
	group     *errgroup.Group

	stats counters
}

func New(cfg Config, sender Sender, resolver RecipientResolver, clk clock.Clock) *Batcher {
	cfg = cfg.withDefaults()
	if clk == nil {
		clk = clock.Real()
	}
	return &Batcher{
		cfg:      cfg,
		clock:    clk,
		sender:   sender,
		resolver: resolver,
		cooldown: newCooldownGuard(clk, cfg.Cooldown),
		actors:   make(map[uuid.UUID]*actorBuffer),
		intake:   make(chan intakeJob, cfg.QueueSize),
		flushes:  make(chan flushJob, cfg.QueueSize),
		done:     make(chan struct{}),
		baseCtx:  context.Background(),
	}
}

// Start launches the worker pool. Deliveries run under ctx; cancelling it
// aborts in-flight sends. Calling Start twice is a no-op.
func (b *Batcher) Start(ctx context.Context) {
	if !b.started.CompareAndSwap(false, true) {
		return
	}
	b.baseCtx = ctx
	g := &errgroup.Group{}
	for i := 0; i < b.cfg.Workers; i++ {
		g.Go(b.worker)
	}
	b.group = g
	log.Printf("[NOTIFY] batcher started workers=%d debounce=%s cooldown=%s queue=%d",
		b.cfg.Workers, b.cfg.Debounce, b.cfg.Cooldown, b.cfg.QueueSize)
}

func (b *Batcher) worker() error {
	for {
		select {
		case <-b.done:
			return nil
		case j := <-b.intake:
			b.Enqueue(j.actor, j.event)
		case j := <-b.flushes:
			b.flush(j.actor, j.buf, j.gen)
		}
	}
}

func (b *Batcher) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Submit hands an event to the worker pool without blocking. It reports
// false when the event was dropped because the queue is full or the
// batcher is closed.
func (b *Batcher) Submit(actor uuid.UUID, ev PickupEvent) bool {
	if b.closed() {
		b.stats.queueDropped.Add(1)
		return false
	}
	select {
	case b.intake <- intakeJob{actor: actor, event: ev}:
		return true
	default:
		b.stats.queueDropped.Add(1)
		log.Printf("[NOTIFY] intake queue full, dropped record=%s actor=%s", ev.RecordID, actor)
		return false
	}
}

// Enqueue buffers ev for actor and restarts the actor's debounce timer.
func (b *Batcher) Enqueue(actor uuid.UUID, ev PickupEvent) {
	if b.closed() {
		b.stats.queueDropped.Add(1)
		return
	}

	b.mu.Lock()
	ab := b.actors[actor]
	if ab == nil {
		ab = &actorBuffer{}
		b.actors[actor] = ab
	}
	ab.mu.Lock()
	b.mu.Unlock()
	defer ab.mu.Unlock()

	ab.events = append(ab.events, bufferedEvent{event: ev, bufferedAt: b.clock.Now()})
	ab.gen++
	gen := ab.gen
	ab.timer.Stop()
	ab.timer = b.clock.AfterFunc(b.cfg.Debounce, func() { b.fire(actor, ab, gen) })
	b.stats.enqueued.Add(1)
}

// fire runs on the timer goroutine; the flush itself runs on a worker.
func (b *Batcher) fire(actor uuid.UUID, ab *actorBuffer, gen uint64) {
	select {
	case b.flushes <- flushJob{actor: actor, buf: ab, gen: gen}:
	case <-b.done:
	}
}

// Flush delivers actor's buffer now, ignoring the timer. It returns the
// number of events taken from the buffer.
func (b *Batcher) Flush(actor uuid.UUID) int {
	b.mu.Lock()
	ab := b.actors[actor]
	b.mu.Unlock()
	if ab == nil {
		return 0
	}
	return b.flush(actor, ab, 0)
}

// flush snapshots and clears the buffer, then delivers outside the buffer
// lock. gen 0 forces the flush; otherwise a generation older than the
// buffer's means a later Enqueue re-armed the timer and this job is stale.
//
// The buffer stays registered until delivery returns, so an Enqueue that
// lands meanwhile reuses it and its next flush waits on the same flushMu.
func (b *Batcher) flush(actor uuid.UUID, ab *actorBuffer, gen uint64) int {
	ab.flushMu.Lock()
	defer ab.flushMu.Unlock()

	ab.mu.Lock()
	if gen != 0 && gen != ab.gen {
		ab.mu.Unlock()
		return 0
	}
	batch := ab.events
	ab.events = nil
	ab.timer.Stop()
	ab.timer = nil
	ab.mu.Unlock()

	b.deliver(b.baseCtx, actor, batch)
	b.releaseIfIdle(actor, ab)
	return len(batch)
}

func (b *Batcher) releaseIfIdle(actor uuid.UUID, ab *actorBuffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.actors[actor] != ab {
		return
	}
	ab.mu.Lock()
	idle := len(ab.events) == 0 && ab.timer == nil
	ab.mu.Unlock()
	if idle {
		delete(b.actors, actor)
	}
}

type digestGroup struct {
	to     Recipient
	events []PickupEvent
}

func (b *Batcher) deliver(ctx context.Context, actor uuid.UUID, batch []bufferedEvent) {
	switch len(batch) {
	case 0:
		return
	case 1:
		ev := batch[0].event
		to, err := b.resolver.RecipientFor(ctx, ev.StudentID)
		if err != nil {
			b.stats.unresolved.Add(1)
			log.Printf("[NOTIFY] no recipient for student=%s record=%s: %v", ev.StudentID, ev.RecordID, err)
			return
		}
		if err := b.sender.SendIndividual(ctx, to, ev); err != nil {
			b.stats.sendFailures.Add(1)
			log.Printf("[NOTIFY] individual to %s failed record=%s: %v", to.PersonID, ev.RecordID, err)
			return
		}
		b.stats.individual.Add(1)
		return
	}

	for _, g := range b.groupByRecipient(ctx, batch) {
		if !b.cooldown.Allow(g.to.PersonID) {
			b.stats.digestsDropped.Add(1)
			log.Printf("[WARN] [NOTIFY] digest to %s dropped inside cool-down, actor=%s records=%v",
				g.to.PersonID, actor, recordIDs(g.events))
			continue
		}
		if err := b.sender.SendDigest(ctx, g.to, g.events); err != nil {
			b.stats.sendFailures.Add(1)
			log.Printf("[NOTIFY] digest to %s failed (%d events): %v", g.to.PersonID, len(g.events), err)
			continue
		}
		b.stats.digests.Add(1)
	}
}

// groupByRecipient buckets events by recipient, keeping first-seen order.
func (b *Batcher) groupByRecipient(ctx context.Context, batch []bufferedEvent) []*digestGroup {
	var (
		order     []*digestGroup
		byPerson  = make(map[uuid.UUID]*digestGroup)
		byStudent = make(map[uuid.UUID]*digestGroup)
	)
	for _, be := range batch {
		ev := be.event
		g, seen := byStudent[ev.StudentID]
		if !seen {
			to, err := b.resolver.RecipientFor(ctx, ev.StudentID)
			if err != nil {
				b.stats.unresolved.Add(1)
				log.Printf("[NOTIFY] no recipient for student=%s record=%s: %v", ev.StudentID, ev.RecordID, err)
				byStudent[ev.StudentID] = nil
				continue
			}
			g = byPerson[to.PersonID]
			if g == nil {
				g = &digestGroup{to: to}
				byPerson[to.PersonID] = g
				order = append(order, g)
			}
			byStudent[ev.StudentID] = g
		}
		if g == nil {
			continue
		}
		g.events = append(g.events, ev)
	}
	return order
}

func recordIDs(events []PickupEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.RecordID.String())
	}
	return out
}

// Close stops the workers and every pending timer. Buffered and queued
// events are abandoned; their count is logged and kept in Stats.
func (b *Batcher) Close(ctx context.Context) error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)

		if b.group != nil {
			waited := make(chan error, 1)
			go func() { waited <- b.group.Wait() }()
			select {
			case err = <-waited:
			case <-ctx.Done():
				err = ctx.Err()
			}
		}

		var abandoned int
		b.mu.Lock()
		for actor, ab := range b.actors {
			ab.mu.Lock()
			ab.timer.Stop()
			ab.timer = nil
			abandoned += len(ab.events)
			ab.events = nil
			ab.mu.Unlock()
			delete(b.actors, actor)
		}
		b.mu.Unlock()

	drain:
		for {
			select {
			case <-b.intake:
				abandoned++
			default:
				break drain
			}
		}

		b.stats.abandoned.Add(uint64(abandoned))
		if abandoned > 0 {
			log.Printf("[WARN] [NOTIFY] batcher closed with %d undelivered pickup events", abandoned)
		} else {
			log.Println("[NOTIFY] batcher closed")
		}
	})
	return err
}

func (b *Batcher) Stats() Stats {
	s := b.stats.snapshot()
	b.mu.Lock()
	s.PendingActors = len(b.actors)
	b.mu.Unlock()
	s.QueueDepth = len(b.intake)
	return s
}
