// Package worker runs rule collection evaluation off the interactive
// goroutine so large event batches do not block display updates.
package worker

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/rules"
)

// ErrHostClosed is returned by Submit after the host has shut down.
// Callers should surface it as "preview unavailable"; it never blocks
// the data-level categorization path.
var ErrHostClosed = errors.New("worker host is closed")

// Result is a completed run. RunID correlates it with the Submit call
// that requested it; runIDs are strictly increasing, so a caller that
// fires overlapping runs keeps the highest runID it has seen and drops
// results tagged with a lower one.
type Result struct {
	Results []model.EventMatchResult
	RunID   uint64
}

type request struct {
	events     []model.Event
	collection model.RuleCollection
	mode       model.RunMode
	runID      uint64
}

// Host owns a single evaluation goroutine. Each submitted run is
// evaluated with a fresh snapshot of the collection and event batch, so
// the caller may keep mutating its own copies while a run is in flight.
// There is no cancellation; a new request simply queues behind the old
// one.
type Host struct {
	runner    *rules.Runner
	requests  chan request
	results   chan Result
	done      chan struct{}
	closeOnce sync.Once
	nextRunID atomic.Uint64
}

// NewHost starts the evaluation goroutine. The buffer bounds how many
// runs may queue before Submit blocks.
func NewHost(buffer int) *Host {
	if buffer < 1 {
		buffer = 1
	}

	h := &Host{
		runner:   rules.NewRunner(),
		requests: make(chan request, buffer),
		results:  make(chan Result, buffer),
		done:     make(chan struct{}),
	}

	go h.loop()
	return h
}

// Submit snapshots the collection and events and queues a run. It
// returns the run's correlation id, or ErrHostClosed if the host has
// shut down.
func (h *Host) Submit(collection model.RuleCollection, events []model.Event, mode model.RunMode) (uint64, error) {
	req := request{
		runID:      h.nextRunID.Add(1),
		collection: snapshotCollection(collection),
		events:     snapshotEvents(events),
		mode:       mode,
	}

	// Checked separately first: the send below can succeed into the
	// buffer even after the loop has exited, and a combined select
	// would pick between the two cases at random.
	select {
	case <-h.done:
		return 0, ErrHostClosed
	default:
	}

	select {
	case <-h.done:
		return 0, ErrHostClosed
	case h.requests <- req:
		return req.runID, nil
	}
}

// Results returns the channel run results are posted on. The channel
// is closed when the host shuts down.
func (h *Host) Results() <-chan Result {
	return h.results
}

// Close stops the evaluation goroutine. A run that is mid-evaluation
// finishes and is posted; queued runs that have not started are
// dropped. The results channel closes once the goroutine exits.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func (h *Host) loop() {
	defer close(h.results)

	for {
		select {
		case <-h.done:
			return
		case req := <-h.requests:
			result := Result{
				RunID:   req.runID,
				Results: h.runner.Run(req.collection, req.events, req.mode),
			}
			select {
			case <-h.done:
				return
			case h.results <- result:
			}
		}
	}
}

// snapshotCollection deep-copies the mutable parts of a collection:
// the rules slice, each rule's conditions, and set operands.
func snapshotCollection(collection model.RuleCollection) model.RuleCollection {
	snapshot := collection
	snapshot.Rules = make([]model.Rule, len(collection.Rules))

	for i, rule := range collection.Rules {
		ruleCopy := rule
		ruleCopy.Conditions = make([]model.Condition, len(rule.Conditions))
		for j, cond := range rule.Conditions {
			condCopy := cond
			if cond.Set != nil {
				condCopy.Set = append([]string(nil), cond.Set...)
			}
			if cond.Number != nil {
				number := *cond.Number
				condCopy.Number = &number
			}
			ruleCopy.Conditions[j] = condCopy
		}
		snapshot.Rules[i] = ruleCopy
	}

	return snapshot
}

// snapshotEvents copies the batch slice. Event variants are value
// types, so copying the interface values copies the payloads.
func snapshotEvents(events []model.Event) []model.Event {
	return append([]model.Event(nil), events...)
}
