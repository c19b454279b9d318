package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/santiagomed/patchwork/core"
	"github.com/santiagomed/patchwork/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(cancelled *int) runModel {
	steps := []*core.Step{
		{Name: "generate-app", Description: "rails new"},
		{Name: "setup-mysql", Description: "create the database user"},
		{Name: "setup-users"},
	}
	l := logger.NewNullLogger()
	return newRunModel("rails-devise", steps, NewCliStepPublisher(l), make(chan RunResult, 1), func() { *cancelled++ }, l)
}

func TestRunModel_TracksSteps(t *testing.T) {
	var cancelled int
	m := newTestModel(&cancelled)
	assert.Equal(t, 0, m.current())
	assert.Equal(t, 0.0, m.ratio())

	next, cmd := m.Update(core.StepRecord{Index: 0, Name: "generate-app", State: core.Succeeded})
	m = next.(runModel)
	assert.NotNil(t, cmd, "keeps listening for steps")
	assert.Equal(t, 1, m.current())

	next, _ = m.Update(stepFailure{Record: core.StepRecord{Index: 1, Name: "setup-mysql", State: core.Failed, Outcome: "mysql exited with status 1"}})
	m = next.(runModel)
	assert.Equal(t, 2, m.current())
	assert.InDelta(t, 2.0/3.0, m.ratio(), 0.001)

	view := m.View()
	assert.Contains(t, view, "rails-devise")
	assert.Contains(t, view, "generate-app")
	assert.Contains(t, view, "mysql exited with status 1")
	assert.Contains(t, view, "ctrl+c")
}

func TestRunModel_CancelKeepsViewUntilResult(t *testing.T) {
	var cancelled int
	m := newTestModel(&cancelled)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(runModel)
	assert.Nil(t, cmd)
	assert.Equal(t, Cancelling, m.state)
	assert.Equal(t, 1, cancelled)
	assert.Contains(t, m.View(), "Cancelling after the current step")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(runModel)
	assert.Equal(t, 1, cancelled, "cancel fires once")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, Cancelling, next.(runModel).state)

	report := &core.Report{State: core.Aborted, FailedStep: "setup-mysql"}
	next, cmd = m.Update(RunResult{Report: report})
	m = next.(runModel)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, Finished, m.state)
	require.NotNil(t, m.result)
	assert.Same(t, report, m.result.Report)
	assert.Empty(t, m.View())
}

func TestRunModel_ListensOnPublisher(t *testing.T) {
	var cancelled int
	m := newTestModel(&cancelled)

	m.publisher.PublishStep(core.StepRecord{Index: 0, Name: "generate-app", State: core.Succeeded})
	msg := m.listenForNextStep()
	rec, ok := msg.(core.StepRecord)
	require.True(t, ok)
	assert.Equal(t, "generate-app", rec.Name)

	m.resultChan <- RunResult{}
	_, ok = m.waitForResult().(RunResult)
	assert.True(t, ok)
}
