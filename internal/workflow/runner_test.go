package workflow

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRunnerCommitsCurrentTask(t *testing.T) {
	r := NewRunner()
	done := make(chan string, 1)

	r.Run(context.Background(), CategoryScan, func(ctx context.Context, commit func(func())) {
		commit(func() { done <- "first" })
	})

	select {
	case got := <-done:
		if got != "first" {
			t.Errorf("unexpected commit: %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("commit never ran")
	}
}

func TestRunnerSupersedesOlderTask(t *testing.T) {
	r := NewRunner()

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var commits []string

	r.Run(context.Background(), CategoryScan, func(ctx context.Context, commit func(func())) {
		close(started)
		<-release
		commit(func() {
			mu.Lock()
			commits = append(commits, "old")
			mu.Unlock()
		})
	})
	<-started

	second := make(chan struct{})
	r.Run(context.Background(), CategoryScan, func(ctx context.Context, commit func(func())) {
		commit(func() {
			mu.Lock()
			commits = append(commits, "new")
			mu.Unlock()
		})
		close(second)
	})
	<-second

	// Let the superseded task finish; its commit must be discarded.
	close(release)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(commits) != 1 || commits[0] != "new" {
		t.Errorf("expected only the new commit, got %v", commits)
	}
}

func TestRunnerCancelsPreviousContext(t *testing.T) {
	r := NewRunner()

	cancelled := make(chan struct{})
	started := make(chan struct{})

	r.Run(context.Background(), CategoryScan, func(ctx context.Context, commit func(func())) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})
	<-started

	r.Run(context.Background(), CategoryScan, func(ctx context.Context, commit func(func())) {})

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("previous task context was not cancelled")
	}
}

func TestRunnerCategoriesAreIndependent(t *testing.T) {
	r := NewRunner()

	scanDone := make(chan struct{})
	authDone := make(chan struct{})

	r.Run(context.Background(), CategoryScan, func(ctx context.Context, commit func(func())) {
		commit(func() { close(scanDone) })
	})
	r.Run(context.Background(), CategoryAuth, func(ctx context.Context, commit func(func())) {
		commit(func() { close(authDone) })
	})

	for name, ch := range map[string]chan struct{}{"scan": scanDone, "auth": authDone} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("%s commit never ran", name)
		}
	}
}

func TestRunnerCancelCategory(t *testing.T) {
	r := NewRunner()

	done := make(chan struct{})
	committed := false

	r.Run(context.Background(), CategoryScan, func(ctx context.Context, commit func(func())) {
		<-ctx.Done()
		commit(func() { committed = true })
		close(done)
	})

	r.Cancel(CategoryScan)
	<-done

	if committed {
		t.Error("cancelled task must not commit")
	}
}
