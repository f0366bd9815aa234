package batch

import (
	"reflect"
	"testing"
	"time"
)

// reportFor builds a frozen report where every task succeeded except those
// named in failed.
func reportFor(t *testing.T, tasks []Task, failed ...string) *Report {
	t.Helper()
	agg, err := NewAggregator(tasks)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	isFailed := make(map[string]bool, len(failed))
	for _, name := range failed {
		isFailed[name] = true
	}
	for _, task := range tasks {
		o := Outcome{Identity: task.Identity}
		if isFailed[task.Name] {
			o.Err = &TaskError{Kind: ErrorKindConversion, Message: "simulated"}
		} else {
			o.Artifact = task.Source
		}
		if err := agg.Record(o); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	report, err := agg.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	return report
}

func orderingTasks() []Task {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Task{
		{Identity: "/in/b.pdf", Name: "b.pdf", Source: "/in/b.pdf", Size: 300, ModTime: base.Add(2 * time.Hour)},
		{Identity: "/in/a.pdf", Name: "a.pdf", Source: "/in/a.pdf", Size: 100, ModTime: base.Add(3 * time.Hour)},
		{Identity: "/in/c.pdf", Name: "c.pdf", Source: "/in/c.pdf", Size: 200, ModTime: base.Add(time.Hour)},
	}
}

func TestOrderByName(t *testing.T) {
	report := reportFor(t, orderingTasks())
	got := Key{Mode: ByName}.Order(report)
	want := []string{"/in/a.pdf", "/in/b.pdf", "/in/c.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ByName order = %v, want %v", got, want)
	}
}

func TestOrderByModTimeNewestFirst(t *testing.T) {
	report := reportFor(t, orderingTasks())
	got := Key{Mode: ByModTime}.Order(report)
	want := []string{"/in/a.pdf", "/in/b.pdf", "/in/c.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ByModTime order = %v, want %v", got, want)
	}
}

func TestOrderBySizeLargestFirst(t *testing.T) {
	report := reportFor(t, orderingTasks())
	got := Key{Mode: BySize}.Order(report)
	want := []string{"/in/b.pdf", "/in/c.pdf", "/in/a.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BySize order = %v, want %v", got, want)
	}
}

func TestOrderTieBreaksByIdentity(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []Task{
		{Identity: "/in/y.pdf", Name: "y.pdf", Size: 100, ModTime: base},
		{Identity: "/in/x.pdf", Name: "x.pdf", Size: 100, ModTime: base},
	}
	report := reportFor(t, tasks)
	want := []string{"/in/x.pdf", "/in/y.pdf"}
	if got := (Key{Mode: BySize}).Order(report); !reflect.DeepEqual(got, want) {
		t.Fatalf("BySize tie break = %v, want %v", got, want)
	}
	if got := (Key{Mode: ByModTime}).Order(report); !reflect.DeepEqual(got, want) {
		t.Fatalf("ByModTime tie break = %v, want %v", got, want)
	}
}

func TestOrderExcludesFailures(t *testing.T) {
	report := reportFor(t, orderingTasks(), "b.pdf")
	got := Key{Mode: ByName}.Order(report)
	want := []string{"/in/a.pdf", "/in/c.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want successes only %v", got, want)
	}
}

func TestOrderExplicitList(t *testing.T) {
	report := reportFor(t, orderingTasks())
	key := Key{
		Mode: ExplicitList,
		// c listed by name, b listed by identity, ghost ignored, a unlisted.
		Explicit: []string{"c.pdf", "ghost.pdf", "/in/b.pdf", "c.pdf"},
	}
	got := key.Order(report)
	want := []string{"/in/c.pdf", "/in/b.pdf", "/in/a.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExplicitList order = %v, want %v", got, want)
	}
}

func TestOrderExplicitListDropsFailedEntries(t *testing.T) {
	report := reportFor(t, orderingTasks(), "c.pdf")
	key := Key{Mode: ExplicitList, Explicit: []string{"c.pdf", "b.pdf"}}
	got := key.Order(report)
	want := []string{"/in/b.pdf", "/in/a.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExplicitList with failed entry = %v, want %v", got, want)
	}
}

func TestOrderDeterministic(t *testing.T) {
	report := reportFor(t, orderingTasks())
	keys := []Key{
		{Mode: ByName},
		{Mode: ByModTime},
		{Mode: BySize},
		{Mode: ExplicitList, Explicit: []string{"b.pdf"}},
	}
	for _, key := range keys {
		first := key.Order(report)
		for i := 0; i < 5; i++ {
			if again := key.Order(report); !reflect.DeepEqual(first, again) {
				t.Fatalf("key mode %d not deterministic: %v then %v", key.Mode, first, again)
			}
		}
		seen := make(map[string]bool, len(first))
		for _, id := range first {
			if seen[id] {
				t.Fatalf("duplicate identity %s in mode %d", id, key.Mode)
			}
			seen[id] = true
		}
		if len(first) != report.SuccessCount() {
			t.Fatalf("mode %d emitted %d identities, want %d", key.Mode, len(first), report.SuccessCount())
		}
	}
}
