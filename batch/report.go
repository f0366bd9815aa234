package batch

import (
	"fmt"
	"sync"
)

// Aggregator is a thread-safe sink for task outcomes. Workers call Record
// concurrently; each identity is written exactly once and the derived counts
// change atomically with the outcome map, so a reader never observes counts
// inconsistent with the recorded set.
type Aggregator struct {
	mu        sync.Mutex
	order     []string
	tasks     map[string]Task
	outcomes  map[string]Outcome
	successes int
	failures  int
	done      chan struct{}
}

// NewAggregator prepares an aggregator for the given tasks. The slice order
// defines the batch's requested order. Duplicate identities are rejected.
func NewAggregator(tasks []Task) (*Aggregator, error) {
	a := &Aggregator{
		order:    make([]string, 0, len(tasks)),
		tasks:    make(map[string]Task, len(tasks)),
		outcomes: make(map[string]Outcome, len(tasks)),
		done:     make(chan struct{}),
	}
	for _, t := range tasks {
		if _, ok := a.tasks[t.Identity]; ok {
			return nil, fmt.Errorf("duplicate task identity %q", t.Identity)
		}
		a.tasks[t.Identity] = t
		a.order = append(a.order, t.Identity)
	}
	if len(tasks) == 0 {
		close(a.done)
	}
	return a, nil
}

// Record stores one outcome. It fails on identities outside the batch and on
// second outcomes for the same identity; both indicate a dispatcher bug.
func (a *Aggregator) Record(o Outcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.tasks[o.Identity]; !ok {
		return fmt.Errorf("outcome for unknown identity %q", o.Identity)
	}
	if _, ok := a.outcomes[o.Identity]; ok {
		return fmt.Errorf("duplicate outcome for identity %q", o.Identity)
	}
	a.outcomes[o.Identity] = o
	if o.Failed() {
		a.failures++
	} else {
		a.successes++
	}
	if len(a.outcomes) == len(a.order) {
		close(a.done)
	}
	return nil
}

// Counts returns the current success and failure tallies.
func (a *Aggregator) Counts() (successes, failures int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.successes, a.failures
}

// Complete reports whether every requested identity has a recorded outcome.
func (a *Aggregator) Complete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outcomes) == len(a.order)
}

// Done returns a channel closed once the batch is complete.
func (a *Aggregator) Done() <-chan struct{} { return a.done }

// Report freezes the aggregator into an immutable batch report. It fails if
// outcomes are still missing.
func (a *Aggregator) Report() (*Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.outcomes) != len(a.order) {
		return nil, fmt.Errorf("batch incomplete: %d of %d outcomes recorded", len(a.outcomes), len(a.order))
	}
	r := &Report{
		order:     append([]string(nil), a.order...),
		tasks:     make(map[string]Task, len(a.tasks)),
		outcomes:  make(map[string]Outcome, len(a.outcomes)),
		successes: a.successes,
		failures:  a.failures,
	}
	for id, t := range a.tasks {
		r.tasks[id] = t
	}
	for id, o := range a.outcomes {
		r.outcomes[id] = o
	}
	return r, nil
}

// Report is the frozen, order-preserving record of all outcomes in one batch.
// It is read-only after creation and safe for concurrent use.
type Report struct {
	order     []string
	tasks     map[string]Task
	outcomes  map[string]Outcome
	successes int
	failures  int
}

// RequestedOrder returns the identities in their original discovery order.
func (r *Report) RequestedOrder() []string {
	return append([]string(nil), r.order...)
}

// Task returns the descriptor recorded for an identity.
func (r *Report) Task(identity string) (Task, bool) {
	t, ok := r.tasks[identity]
	return t, ok
}

// Outcome returns the outcome recorded for an identity.
func (r *Report) Outcome(identity string) (Outcome, bool) {
	o, ok := r.outcomes[identity]
	return o, ok
}

// Size returns the number of tasks in the batch.
func (r *Report) Size() int { return len(r.order) }

// SuccessCount returns the number of successful outcomes.
func (r *Report) SuccessCount() int { return r.successes }

// FailureCount returns the number of failed outcomes, skipped tasks included.
func (r *Report) FailureCount() int { return r.failures }

// Successes returns successful outcomes in requested order.
func (r *Report) Successes() []Outcome {
	out := make([]Outcome, 0, r.successes)
	for _, id := range r.order {
		if o := r.outcomes[id]; !o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// Failures returns failed outcomes in requested order.
func (r *Report) Failures() []Outcome {
	out := make([]Outcome, 0, r.failures)
	for _, id := range r.order {
		if o := r.outcomes[id]; o.Failed() {
			out = append(out, o)
		}
	}
	return out
}
