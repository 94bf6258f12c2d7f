package cmd

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dataops-tools/model-diff/cmd/report"
)

var (
	stepDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	stepRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D9FF"))
	stepTitleStyle   = lipgloss.NewStyle().Bold(true)
)

type stepStartMsg string

type runDoneMsg struct {
	err error
}

// progressModel is a minimal step ticker: each step the differ reports
// becomes a line, the active one gets a spinner, finished ones a check mark.
type progressModel struct {
	spinner  spinner.Model
	title    string
	steps    []string
	done     bool
	err      error
	canceled bool
}

func newProgressModel(title string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = stepRunningStyle
	return progressModel{spinner: s, title: title}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case stepStartMsg:
		m.steps = append(m.steps, string(msg))
		return m, nil
	case runDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.canceled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	out := stepTitleStyle.Render(m.title) + "\n"
	for i, step := range m.steps {
		last := i == len(m.steps)-1
		if last && !m.done {
			out += m.spinner.View() + " " + step + "\n"
		} else {
			out += stepDoneStyle.Render("✓") + " " + step + "\n"
		}
	}
	return out
}

// differRun executes Differ.Run on its own cancelable context, so an
// interactive cancel can stop the run and then block until Run has returned,
// which includes its deferred worktree and schema teardown.
type differRun struct {
	cancel context.CancelFunc
	done   chan struct{}
	rep    *report.Report
	err    error
}

func startDifferRun(ctx context.Context, differ *Differ, onDone func(err error)) *differRun {
	runCtx, cancel := context.WithCancel(ctx)
	r := &differRun{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.rep, r.err = differ.Run(runCtx)
		if onDone != nil {
			onDone(r.err)
		}
	}()
	return r
}

// abort cancels the run and waits for it to finish unwinding.
func (r *differRun) abort() {
	r.cancel()
	<-r.done
}

// wait blocks until the run has finished and returns its result.
func (r *differRun) wait() (*report.Report, error) {
	<-r.done
	r.cancel()
	return r.rep, r.err
}

// runDifferWithProgress runs the differ under an interactive step display.
// Used only for text output on a terminal; other formats log steps instead.
func runDifferWithProgress(ctx context.Context, differ *Differ, title string) (*report.Report, error) {
	program := tea.NewProgram(newProgressModel(title), tea.WithContext(ctx))

	differ.OnStep = func(step string) {
		program.Send(stepStartMsg(step))
	}

	run := startDifferRun(ctx, differ, func(err error) {
		program.Send(runDoneMsg{err: err})
	})

	finalModel, err := program.Run()
	if err != nil {
		run.abort()
		return nil, err
	}
	if m, ok := finalModel.(progressModel); ok && m.canceled {
		// Raw mode turns Ctrl-C into a key event instead of SIGINT, so the
		// signal-aware parent ctx stays live. Cancel the run here and wait
		// for its teardown before returning.
		run.abort()
		return nil, context.Canceled
	}
	return run.wait()
}
