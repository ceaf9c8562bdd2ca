package batcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scoda_backend/internals/helpers/clock"

	"github.com/google/uuid"
)

var epoch = time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)

type sentDigest struct {
	to     Recipient
	events []PickupEvent
}

type recordingSender struct {
	mu         sync.Mutex
	individual []PickupEvent
	digests    []sentDigest
	fail       bool
}

func (s *recordingSender) SendIndividual(_ context.Context, to Recipient, ev PickupEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.individual = append(s.individual, ev)
	return nil
}

func (s *recordingSender) SendDigest(_ context.Context, to Recipient, events []PickupEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.digests = append(s.digests, sentDigest{to: to, events: append([]PickupEvent(nil), events...)})
	return nil
}

func (s *recordingSender) counts() (individual, digests int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.individual), len(s.digests)
}

type mapResolver map[uuid.UUID]Recipient

func (m mapResolver) RecipientFor(_ context.Context, studentID uuid.UUID) (Recipient, error) {
	to, ok := m[studentID]
	if !ok {
		return Recipient{}, errors.New("no contact")
	}
	return to, nil
}

type harness struct {
	b        *Batcher
	clock    *clock.FakeClock
	sender   *recordingSender
	resolver mapResolver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.Fake(epoch),
		sender:   &recordingSender{},
		resolver: mapResolver{},
	}
	h.b = New(Config{Debounce: 10 * time.Second, Cooldown: 5 * time.Second, Workers: 2, QueueSize: 16}, h.sender, h.resolver, h.clock)
	h.b.Start(context.Background())
	t.Cleanup(func() { _ = h.b.Close(context.Background()) })
	return h
}

// student registers a student whose notices go to guardian.
func (h *harness) student(guardian Recipient) uuid.UUID {
	id := uuid.New()
	h.resolver[id] = guardian
	return id
}

func guardian(name string) Recipient {
	return Recipient{PersonID: uuid.New(), Name: name, Email: name + "@example.com"}
}

func pickup(studentID uuid.UUID) PickupEvent {
	return PickupEvent{RecordID: uuid.New(), StudentID: studentID, Day: epoch}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// settle gives workers a moment to act on anything they could act on.
func settle() { time.Sleep(50 * time.Millisecond) }

func TestBurstBecomesOneDigestPerRecipient(t *testing.T) {
	h := newHarness(t)
	actor := uuid.New()
	ana, beto := guardian("ana"), guardian("beto")

	students := []uuid.UUID{h.student(ana), h.student(ana), h.student(beto), h.student(ana), h.student(beto)}
	for _, s := range students {
		h.b.Enqueue(actor, pickup(s))
		h.clock.Advance(2 * time.Second)
	}
	settle()
	if i, d := h.sender.counts(); i+d != 0 {
		t.Fatalf("sent before the window closed: individual=%d digests=%d", i, d)
	}

	h.clock.Advance(10 * time.Second)
	waitFor(t, "two digests", func() bool { _, d := h.sender.counts(); return d == 2 })
	settle()

	individual, digests := h.sender.counts()
	if individual != 0 || digests != 2 {
		t.Fatalf("individual=%d digests=%d, want 0 and 2", individual, digests)
	}
	got := map[uuid.UUID]int{}
	for _, d := range h.sender.digests {
		got[d.to.PersonID] = len(d.events)
	}
	if got[ana.PersonID] != 3 || got[beto.PersonID] != 2 {
		t.Errorf("digest sizes = %v, want ana=3 beto=2", got)
	}

	st := h.b.Stats()
	if st.Enqueued != 5 || st.Digests != 2 || st.PendingActors != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSingleEventSendsIndividual(t *testing.T) {
	h := newHarness(t)
	ev := pickup(h.student(guardian("carla")))
	h.b.Enqueue(uuid.New(), ev)

	h.clock.Advance(10 * time.Second)
	waitFor(t, "individual notice", func() bool { i, _ := h.sender.counts(); return i == 1 })

	if _, d := h.sender.counts(); d != 0 {
		t.Errorf("digests = %d, want 0", d)
	}
	if h.sender.individual[0].RecordID != ev.RecordID {
		t.Error("individual notice carries the wrong event")
	}
}

func TestEnqueueResetsTheWindow(t *testing.T) {
	h := newHarness(t)
	actor := uuid.New()
	g := guardian("diana")

	h.b.Enqueue(actor, pickup(h.student(g)))
	h.clock.Advance(9 * time.Second)
	h.b.Enqueue(actor, pickup(h.student(g)))
	h.clock.Advance(9 * time.Second)
	settle()
	if i, d := h.sender.counts(); i+d != 0 {
		t.Fatalf("first timer was not reset: individual=%d digests=%d", i, d)
	}

	h.clock.Advance(time.Second)
	waitFor(t, "merged digest", func() bool { _, d := h.sender.counts(); return d == 1 })
	if n := len(h.sender.digests[0].events); n != 2 {
		t.Errorf("digest has %d events, want 2", n)
	}
	if n := h.clock.PendingCount(); n != 0 {
		t.Errorf("pending timers = %d, want 0", n)
	}
}

func TestStaleGenerationDoesNotSplitBurst(t *testing.T) {
	b := New(Config{Debounce: 10 * time.Second}, &recordingSender{}, mapResolver{}, clock.Fake(epoch))
	actor := uuid.New()

	b.Enqueue(actor, pickup(uuid.New()))
	ab := b.actors[actor]
	staleGen := ab.gen
	b.Enqueue(actor, pickup(uuid.New()))

	// the first timer fired just before the second Enqueue re-armed it
	if n := b.flush(actor, ab, staleGen); n != 0 {
		t.Fatalf("stale flush took %d events", n)
	}
	ab.mu.Lock()
	buffered := len(ab.events)
	ab.mu.Unlock()
	if buffered != 2 {
		t.Fatalf("buffer = %d events after stale flush, want 2", buffered)
	}
	if n := b.flush(actor, ab, ab.gen); n != 2 {
		t.Fatalf("current flush took %d events, want 2", n)
	}
}

func TestCooldownDropsSecondDigestForSameRecipient(t *testing.T) {
	h := newHarness(t)
	g := guardian("elena")
	first, second := uuid.New(), uuid.New()

	for _, actor := range []uuid.UUID{first, second} {
		h.b.Enqueue(actor, pickup(h.student(g)))
		h.b.Enqueue(actor, pickup(h.student(g)))
	}
	h.clock.Advance(10 * time.Second)
	waitFor(t, "one digest and one drop", func() bool {
		st := h.b.Stats()
		return st.Digests == 1 && st.DigestsDropped == 1
	})

	// outside the window the recipient can be reached again
	h.clock.Advance(5 * time.Second)
	h.b.Enqueue(first, pickup(h.student(g)))
	h.b.Enqueue(first, pickup(h.student(g)))
	h.clock.Advance(10 * time.Second)
	waitFor(t, "digest after cool-down", func() bool { return h.b.Stats().Digests == 2 })
}

func TestCooldownDoesNotApplyToIndividualNotices(t *testing.T) {
	h := newHarness(t)
	g := guardian("fabiola")

	h.b.Enqueue(uuid.New(), pickup(h.student(g)))
	h.b.Enqueue(uuid.New(), pickup(h.student(g)))
	h.clock.Advance(10 * time.Second)
	waitFor(t, "two individual notices", func() bool { i, _ := h.sender.counts(); return i == 2 })
}

func TestActorsAreIndependent(t *testing.T) {
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	h.b.Enqueue(a, pickup(h.student(guardian("g1"))))
	h.clock.Advance(6 * time.Second)
	h.b.Enqueue(b, pickup(h.student(guardian("g2"))))
	h.clock.Advance(4 * time.Second)

	waitFor(t, "first actor flush", func() bool { i, _ := h.sender.counts(); return i == 1 })
	if st := h.b.Stats(); st.PendingActors != 1 {
		t.Errorf("pending actors = %d, want 1", st.PendingActors)
	}
	h.clock.Advance(6 * time.Second)
	waitFor(t, "second actor flush", func() bool { i, _ := h.sender.counts(); return i == 2 })
}

func TestSendFailureIsCountedOnly(t *testing.T) {
	h := newHarness(t)
	h.sender.fail = true
	actor := uuid.New()
	g := guardian("gabriel")

	h.b.Enqueue(actor, pickup(h.student(g)))
	h.b.Enqueue(actor, pickup(h.student(g)))
	h.clock.Advance(10 * time.Second)
	waitFor(t, "send failure", func() bool { return h.b.Stats().SendFailures == 1 })

	if st := h.b.Stats(); st.Digests != 0 || st.PendingActors != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestUnresolvedRecipientIsSkipped(t *testing.T) {
	h := newHarness(t)
	actor := uuid.New()
	g := guardian("hugo")

	h.b.Enqueue(actor, pickup(uuid.New()))
	h.b.Enqueue(actor, pickup(h.student(g)))
	h.clock.Advance(10 * time.Second)
	waitFor(t, "digest for the resolvable student", func() bool { _, d := h.sender.counts(); return d == 1 })

	if st := h.b.Stats(); st.Unresolved != 1 {
		t.Errorf("unresolved = %d, want 1", st.Unresolved)
	}
}

func TestSubmitGoesThroughWorkers(t *testing.T) {
	h := newHarness(t)
	actor := uuid.New()
	if !h.b.Submit(actor, pickup(h.student(guardian("ines")))) {
		t.Fatal("Submit returned false")
	}
	waitFor(t, "event buffered", func() bool { return h.b.Stats().Enqueued == 1 })
	h.clock.WaitForTimers(1)
	h.clock.Advance(10 * time.Second)
	waitFor(t, "individual", func() bool { i, _ := h.sender.counts(); return i == 1 })
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	b := New(Config{QueueSize: 1}, &recordingSender{}, mapResolver{}, clock.Fake(epoch))
	actor := uuid.New()

	if !b.Submit(actor, pickup(uuid.New())) {
		t.Fatal("first Submit dropped")
	}
	if b.Submit(actor, pickup(uuid.New())) {
		t.Fatal("second Submit should drop on a full queue")
	}
	if st := b.Stats(); st.QueueDropped != 1 || st.QueueDepth != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestFlushNow(t *testing.T) {
	h := newHarness(t)
	actor := uuid.New()
	h.b.Enqueue(actor, pickup(h.student(guardian("jorge"))))

	if n := h.b.Flush(actor); n != 1 {
		t.Fatalf("Flush = %d, want 1", n)
	}
	if i, _ := h.sender.counts(); i != 1 {
		t.Errorf("individual = %d, want 1", i)
	}
	if n := h.clock.PendingCount(); n != 0 {
		t.Errorf("timer still pending after Flush")
	}
	if n := h.b.Flush(actor); n != 0 {
		t.Errorf("second Flush = %d, want 0", n)
	}
}

func TestCloseAbandonsBufferedEvents(t *testing.T) {
	fc := clock.Fake(epoch)
	sender := &recordingSender{}
	b := New(Config{Debounce: 10 * time.Second}, sender, mapResolver{}, fc)
	b.Start(context.Background())

	actor := uuid.New()
	b.Enqueue(actor, pickup(uuid.New()))
	b.Enqueue(actor, pickup(uuid.New()))

	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	st := b.Stats()
	if st.Abandoned != 2 || st.PendingActors != 0 {
		t.Errorf("stats after close = %+v", st)
	}
	if fc.PendingCount() != 0 {
		t.Error("timers left armed after Close")
	}
	if b.Submit(actor, pickup(uuid.New())) {
		t.Error("Submit accepted after Close")
	}
	if err := b.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if i, d := sender.counts(); i+d != 0 {
		t.Errorf("sent after close: %d/%d", i, d)
	}
}

func TestCooldownGuardWindow(t *testing.T) {
	fc := clock.Fake(epoch)
	g := newCooldownGuard(fc, 5*time.Second)
	r := uuid.New()

	if !g.Allow(r) {
		t.Fatal("first Allow = false")
	}
	fc.Advance(4 * time.Second)
	if g.Allow(r) {
		t.Fatal("Allow inside window = true")
	}
	if !g.Allow(uuid.New()) {
		t.Fatal("other recipient blocked")
	}
	fc.Advance(time.Second)
	if !g.Allow(r) {
		t.Fatal("Allow at window end = false")
	}
}

// gatedSender holds every send until release is closed and tracks how many
// sends were in flight at once.
type gatedSender struct {
	release chan struct{}

	mu       sync.Mutex
	inFlight int
	maxSeen  int
	sent     []uuid.UUID
}

func (s *gatedSender) enter() {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()
}

func (s *gatedSender) leave(ids ...uuid.UUID) {
	s.mu.Lock()
	s.inFlight--
	s.sent = append(s.sent, ids...)
	s.mu.Unlock()
}

func (s *gatedSender) SendIndividual(_ context.Context, _ Recipient, ev PickupEvent) error {
	s.enter()
	<-s.release
	s.leave(ev.RecordID)
	return nil
}

func (s *gatedSender) SendDigest(_ context.Context, _ Recipient, events []PickupEvent) error {
	s.enter()
	<-s.release
	s.leave(recordIDsOf(events)...)
	return nil
}

func (s *gatedSender) snapshot() (inFlight, maxSeen int, sent []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight, s.maxSeen, append([]uuid.UUID(nil), s.sent...)
}

func recordIDsOf(events []PickupEvent) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		out = append(out, e.RecordID)
	}
	return out
}

func TestFlushesOfOneActorNeverOverlap(t *testing.T) {
	fc := clock.Fake(epoch)
	sender := &gatedSender{release: make(chan struct{})}
	resolver := mapResolver{}
	b := New(Config{Debounce: 10 * time.Second, Workers: 4, QueueSize: 16}, sender, resolver, fc)
	b.Start(context.Background())
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	actor := uuid.New()
	first := pickup(uuid.New())
	second := pickup(uuid.New())
	resolver[first.StudentID] = guardian("paula")
	resolver[second.StudentID] = guardian("jorge")

	b.Enqueue(actor, first)
	fc.Advance(10 * time.Second)
	waitFor(t, "first delivery to start", func() bool {
		n, _, _ := sender.snapshot()
		return n == 1
	})

	// lands while the first delivery is stuck in the sender
	b.Enqueue(actor, second)
	flushed := make(chan int, 1)
	go func() { flushed <- b.Flush(actor) }()
	settle()

	if _, maxSeen, _ := sender.snapshot(); maxSeen != 1 {
		t.Fatalf("concurrent sends for one actor = %d, want 1", maxSeen)
	}

	close(sender.release)
	select {
	case n := <-flushed:
		if n != 1 {
			t.Errorf("Flush = %d, want 1", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Flush never returned")
	}

	_, maxSeen, sent := sender.snapshot()
	if maxSeen != 1 {
		t.Errorf("concurrent sends for one actor = %d, want 1", maxSeen)
	}
	if len(sent) != 2 || sent[0] != first.RecordID || sent[1] != second.RecordID {
		t.Errorf("delivery order = %v, want [%s %s]", sent, first.RecordID, second.RecordID)
	}
	if st := b.Stats(); st.PendingActors != 0 {
		t.Errorf("pending actors = %d, want 0", st.PendingActors)
	}
}
