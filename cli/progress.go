package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/santiagomed/patchwork/core"
	"github.com/santiagomed/patchwork/pkg/logger"
	"github.com/santiagomed/patchwork/utils"
)

type state int

const (
	Running state = iota
	Cancelling
	Finished
)

var (
	checkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))
)

type runModel struct {
	spinner    spinner.Model
	progress   progress.Model
	state      state
	recipe     string
	steps      []*core.Step
	records    []*core.StepRecord
	publisher  *CliStepPublisher
	resultChan chan RunResult
	result     *RunResult
	cancel     context.CancelFunc
	logger     logger.Logger
}

func newRunModel(recipe string, steps []*core.Step, pub *CliStepPublisher, resultChan chan RunResult, cancel context.CancelFunc, l logger.Logger) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return runModel{
		spinner:    s,
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		state:      Running,
		recipe:     recipe,
		steps:      steps,
		records:    make([]*core.StepRecord, len(steps)),
		publisher:  pub,
		resultChan: resultChan,
		cancel:     cancel,
		logger:     l,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForNextStep, m.waitForResult)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleQuit(msg)
	case core.StepRecord:
		return m.handleStep(msg)
	case stepFailure:
		m.logger.Error(fmt.Sprintf("Step %s failed: %v", msg.Record.Name, msg.Err))
		return m.handleStep(msg.Record)
	case RunResult:
		m.result = &msg
		m.state = Finished
		return m, tea.Quit
	case spinner.TickMsg:
		if m.state == Finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m runModel) View() string {
	if m.state == Finished {
		return ""
	}

	current := m.current()
	enumerator := func(l list.Items, i int) string {
		if rec := m.records[i]; rec != nil {
			switch rec.State {
			case core.Succeeded:
				return checkStyle.Render("✓")
			case core.Skipped:
				return faintStyle.Render("↷")
			case core.Failed:
				return failStyle.Render("✗")
			}
		}
		if i == current {
			return m.spinner.View()
		}
		return " "
	}

	l := list.New().Enumerator(enumerator)
	for i, step := range m.steps {
		label := step.Name
		if rec := m.records[i]; rec != nil && rec.State == core.Failed {
			label += "  " + errorStyle.Render(utils.TruncateString(rec.Outcome, 80))
		} else if rec != nil && rec.State == core.Skipped {
			label = faintStyle.Render(label)
		} else if i == current && step.Description != "" {
			label += "  " + faintStyle.Render(step.Description)
		} else if rec == nil && i != current {
			label = faintStyle.Render(label)
		}
		l.Item(label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Applying %s\n\n", nameStyle.Render(m.recipe))
	b.WriteString(l.String())
	b.WriteString("\n\n")
	b.WriteString(m.progress.ViewAs(m.ratio()))
	b.WriteString("\n")
	if m.state == Cancelling {
		b.WriteString(faintStyle.Render("Cancelling after the current step..."))
	} else {
		b.WriteString(faintStyle.Render("(ctrl+c to stop after the current step)"))
	}
	b.WriteString("\n")
	return b.String()
}

// current is the index of the first step without a record.
func (m runModel) current() int {
	for i, rec := range m.records {
		if rec == nil {
			return i
		}
	}
	return -1
}

func (m runModel) ratio() float64 {
	if len(m.steps) == 0 {
		return 1
	}
	done := 0
	for _, rec := range m.records {
		if rec != nil {
			done++
		}
	}
	return float64(done) / float64(len(m.steps))
}

func (m runModel) listenForNextStep() tea.Msg {
	select {
	case step := <-m.publisher.stepChan:
		return step
	case failure := <-m.publisher.errorChan:
		return failure
	}
}

func (m runModel) waitForResult() tea.Msg {
	return <-m.resultChan
}

func (m runModel) handleStep(rec core.StepRecord) (tea.Model, tea.Cmd) {
	m.logger.Debug(fmt.Sprintf("Received step: %s (%s)", rec.Name, rec.State))
	if rec.Index >= 0 && rec.Index < len(m.records) {
		m.records[rec.Index] = &rec
	}
	return m, m.listenForNextStep
}

// handleQuit asks the pipeline to stop. The view stays up until the step
// in flight has finished and the result arrives.
func (m runModel) handleQuit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyCtrlC && msg.Type != tea.KeyEsc {
		return m, nil
	}
	if m.state == Running {
		m.logger.Info("User requested cancellation")
		m.state = Cancelling
		m.cancel()
	}
	return m, nil
}
