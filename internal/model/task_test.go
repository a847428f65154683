package model

import (
	"errors"
	"testing"
)

func TestNewTaskDerivesTargetNameOnce(t *testing.T) {
	task := NewTask("Day 1", "Jane Doe", "https://example.com/a.jpg", nil)
	if task.TargetName != "Doe.Jane" {
		t.Fatalf("TargetName = %q, want Doe.Jane", task.TargetName)
	}
	if task.ID == "" {
		t.Fatal("ID should not be empty")
	}
	if task.State != StatePending || !task.Selected {
		t.Fatalf("new task should be pending and selected, got %s/%v", task.State, task.Selected)
	}

	task.DisplayName = "John Smith"
	started, err := task.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.TargetName != "Doe.Jane" {
		t.Errorf("TargetName changed after DisplayName edit: %q", started.TargetName)
	}
}

func TestTransitions(t *testing.T) {
	pending := NewTask("g", "Jane Doe", "https://example.com/a.jpg", nil)

	if _, err := pending.Complete([]byte("x")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending -> completed should fail, got %v", err)
	}
	if _, err := pending.Fail("boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending -> failed should fail, got %v", err)
	}

	downloading, err := pending.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if pending.State != StatePending {
		t.Errorf("Start mutated the receiver: %s", pending.State)
	}
	if _, err := downloading.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("downloading -> downloading should fail, got %v", err)
	}
	if _, err := downloading.Skip(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("downloading -> skipped should fail, got %v", err)
	}

	done, err := downloading.Complete([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.State != StateCompleted || len(done.Payload) != 3 || done.ErrorDetail != "" {
		t.Errorf("unexpected completed task: %+v", done)
	}
	if _, err := done.Fail("late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed -> failed should fail, got %v", err)
	}

	failed, err := downloading.Fail("")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if failed.ErrorDetail == "" || failed.Payload != nil {
		t.Errorf("failed task must carry a cause and no payload: %+v", failed)
	}

	if _, err := downloading.Complete(nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("complete without payload should fail, got %v", err)
	}
}

func TestSkipOnlyFromPending(t *testing.T) {
	task := NewTask("g", "Jane Doe", "n/a", nil)
	skipped, err := task.Skip()
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if !skipped.Terminal() || skipped.Eligible() {
		t.Errorf("skipped task should be terminal and not eligible")
	}
	if _, err := skipped.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("skipped -> downloading should fail, got %v", err)
	}
}

func TestWithSelectedKeepsState(t *testing.T) {
	task := NewTask("g", "Jane Doe", "https://example.com/a.jpg", nil)
	task, _ = task.Start()
	task, _ = task.Complete([]byte("img"))

	off := task.WithSelected(false)
	if off.State != StateCompleted || string(off.Payload) != "img" {
		t.Errorf("WithSelected changed state or payload: %+v", off)
	}
	if off.Selected || !task.Selected {
		t.Errorf("WithSelected should only affect the returned copy")
	}
}

func TestCollectionReplaceIsCopyOnWrite(t *testing.T) {
	a := NewTask("g", "Jane Doe", "https://example.com/a.jpg", nil)
	b := NewTask("g", "John Roe", "https://example.com/b.jpg", nil)
	c := Collection{a, b}

	started, _ := b.Start()
	next, ok := c.Replace(started)
	if !ok {
		t.Fatal("Replace should find task b")
	}
	if c[1].State != StatePending {
		t.Errorf("original collection mutated: %s", c[1].State)
	}
	if next[1].State != StateDownloading {
		t.Errorf("replacement missing: %s", next[1].State)
	}

	ghost := NewTask("g", "Ghost", "https://example.com/c.jpg", nil)
	if _, ok := c.Replace(ghost); ok {
		t.Error("Replace of unknown id should report false")
	}

	ids := next.Eligible()
	if len(ids) != 1 || ids[0] != a.ID {
		t.Errorf("Eligible = %v, want [%s]", ids, a.ID)
	}
}
