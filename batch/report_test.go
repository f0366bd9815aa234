package batch

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func testTasks(n int) []Task {
	tasks := make([]Task, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("doc-%02d.pdf", i)
		tasks = append(tasks, Task{
			Identity: "/in/" + name,
			Name:     name,
			Kind:     KindPassthroughPDF,
			Source:   "/in/" + name,
		})
	}
	return tasks
}

func TestAggregatorRejectsDuplicateIdentity(t *testing.T) {
	tasks := testTasks(2)
	tasks[1].Identity = tasks[0].Identity
	if _, err := NewAggregator(tasks); err == nil {
		t.Fatalf("expected duplicate identity error")
	}
}

func TestAggregatorRecordsExactlyOnce(t *testing.T) {
	tasks := testTasks(2)
	agg, err := NewAggregator(tasks)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	o := Outcome{Identity: tasks[0].Identity, Artifact: tasks[0].Source}
	if err := agg.Record(o); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := agg.Record(o); err == nil {
		t.Fatalf("expected duplicate outcome error")
	}
	if err := agg.Record(Outcome{Identity: "/elsewhere/x.pdf"}); err == nil {
		t.Fatalf("expected unknown identity error")
	}
	if agg.Complete() {
		t.Fatalf("batch should not be complete with one outcome of two")
	}
}

func TestAggregatorCountsMatchOutcomes(t *testing.T) {
	tasks := testTasks(8)
	agg, err := NewAggregator(tasks)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			o := Outcome{Identity: task.Identity}
			if i%3 == 0 {
				o.Err = &TaskError{Kind: ErrorKindConversion, Message: "simulated"}
			} else {
				o.Artifact = task.Source
			}
			if err := agg.Record(o); err != nil {
				t.Errorf("record %s: %v", task.Identity, err)
			}
		}(i, task)
	}
	wg.Wait()

	select {
	case <-agg.Done():
	case <-time.After(time.Second):
		t.Fatalf("completion signal never fired")
	}

	report, err := agg.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if got := report.SuccessCount() + report.FailureCount(); got != len(tasks) {
		t.Fatalf("success+failure = %d, want %d", got, len(tasks))
	}
	if report.Size() != len(tasks) {
		t.Fatalf("report size = %d, want %d", report.Size(), len(tasks))
	}
	if report.FailureCount() != 3 {
		t.Fatalf("failures = %d, want 3", report.FailureCount())
	}
}

func TestReportPreservesRequestedOrder(t *testing.T) {
	tasks := []Task{
		{Identity: "/in/z.pdf", Name: "z.pdf"},
		{Identity: "/in/a.pdf", Name: "a.pdf"},
		{Identity: "/in/m.pdf", Name: "m.pdf"},
	}
	agg, err := NewAggregator(tasks)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	// Complete in reverse to prove order reconstruction is independent of
	// completion order.
	for i := len(tasks) - 1; i >= 0; i-- {
		if err := agg.Record(Outcome{Identity: tasks[i].Identity, Artifact: tasks[i].Identity}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	report, err := agg.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	got := report.RequestedOrder()
	want := []string{"/in/z.pdf", "/in/a.pdf", "/in/m.pdf"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("requested order[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReportIncompleteBatch(t *testing.T) {
	agg, err := NewAggregator(testTasks(3))
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	if _, err := agg.Report(); err == nil {
		t.Fatalf("expected error freezing incomplete batch")
	}
}
