package batcher

import "sync/atomic"

// Stats is a point-in-time copy of the batcher counters.
type Stats struct {
	Enqueued       uint64 `json:"enqueued"`
	Individual     uint64 `json:"individual_sent"`
	Digests        uint64 `json:"digests_sent"`
	DigestsDropped uint64 `json:"digests_dropped"`
	QueueDropped   uint64 `json:"queue_dropped"`
	SendFailures   uint64 `json:"send_failures"`
	Unresolved     uint64 `json:"unresolved_recipients"`
	Abandoned      uint64 `json:"abandoned"`
	PendingActors  int    `json:"pending_actors"`
	QueueDepth     int    `json:"queue_depth"`
}

type counters struct {
	enqueued       atomic.Uint64
	individual     atomic.Uint64
	digests        atomic.Uint64
	digestsDropped atomic.Uint64
	queueDropped   atomic.Uint64
	sendFailures   atomic.Uint64
	unresolved     atomic.Uint64
	abandoned      atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Enqueued:       c.enqueued.Load(),
		Individual:     c.individual.Load(),
		Digests:        c.digests.Load(),
		DigestsDropped: c.digestsDropped.Load(),
		QueueDropped:   c.queueDropped.Load(),
		SendFailures:   c.sendFailures.Load(),
		Unresolved:     c.unresolved.Load(),
		Abandoned:      c.abandoned.Load(),
	}
}
