package cmd

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestProgressModelStepAccumulation(t *testing.T) {
	m := newProgressModel("model-diff: orders")

	next, _ := m.Update(stepStartMsg(StepWorktrees))
	next, _ = next.Update(stepStartMsg(StepCompare))
	pm := next.(progressModel)

	if len(pm.steps) != 2 {
		t.Fatalf("steps = %v", pm.steps)
	}
	view := pm.View()
	if !strings.Contains(view, StepWorktrees) || !strings.Contains(view, StepCompare) {
		t.Errorf("view missing steps:\n%s", view)
	}
	// Finished steps render a check mark; the active step does not.
	if !strings.Contains(view, "✓ "+StepWorktrees) {
		t.Errorf("finished step not checked:\n%s", view)
	}
	if strings.Contains(view, "✓ "+StepCompare) {
		t.Errorf("active step rendered as finished:\n%s", view)
	}
}

func TestProgressModelDoneQuits(t *testing.T) {
	m := newProgressModel("t")
	wantErr := errors.New("run failed")

	next, cmd := m.Update(runDoneMsg{err: wantErr})
	pm := next.(progressModel)
	if !pm.done || !errors.Is(pm.err, wantErr) {
		t.Errorf("model = %+v", pm)
	}
	if cmd == nil {
		t.Fatal("done must quit the program")
	}
}

func TestProgressModelCtrlCCancels(t *testing.T) {
	m := newProgressModel("t")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	pm := next.(progressModel)
	if !pm.canceled {
		t.Error("ctrl+c must mark the model canceled")
	}
	if cmd == nil {
		t.Fatal("ctrl+c must quit the program")
	}
}

// blockingAdapter parks Connect on its context so a run can be interrupted
// mid-flight.
type blockingAdapter struct {
	warehouseStub
	connectStarted chan struct{}
}

func (a *blockingAdapter) Connect(ctx context.Context, _ ConnectionInfo) (*sql.DB, error) {
	close(a.connectStarted)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDifferRunAbortCancelsAndWaits(t *testing.T) {
	a := &blockingAdapter{connectStarted: make(chan struct{})}
	cfg := &Config{Model: "orders", BaseRef: "main", HeadRef: "HEAD"}
	d := NewDiffer(cfg, a, ConnectionInfo{}, newTestLogger())

	run := startDifferRun(context.Background(), d, nil)
	<-a.connectStarted

	// abort must cancel the run's context and block until Run has fully
	// returned, so its deferred teardown is guaranteed to have fired.
	run.abort()

	rep, err := run.wait()
	if rep != nil {
		t.Errorf("rep = %+v, want nil after abort", rep)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDifferRunReportsCompletion(t *testing.T) {
	a := &blockingAdapter{connectStarted: make(chan struct{})}
	cfg := &Config{Model: "orders", BaseRef: "main", HeadRef: "HEAD"}
	d := NewDiffer(cfg, a, ConnectionInfo{}, newTestLogger())

	notified := make(chan error, 1)
	run := startDifferRun(context.Background(), d, func(err error) { notified <- err })
	<-a.connectStarted
	run.abort()

	if err := <-notified; !errors.Is(err, context.Canceled) {
		t.Errorf("completion callback got %v, want context.Canceled", err)
	}
}

func TestProgressModelDoneStepAllChecked(t *testing.T) {
	m := newProgressModel("t")
	next, _ := m.Update(stepStartMsg(StepCompare))
	next, _ = next.Update(runDoneMsg{})
	pm := next.(progressModel)

	if !strings.Contains(pm.View(), "✓ "+StepCompare) {
		t.Errorf("all steps should be checked after completion:\n%s", pm.View())
	}
}
