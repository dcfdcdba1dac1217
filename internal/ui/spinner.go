package ui

import (
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type spinnerDoneMsg struct{}

// spinnerModel shows a spinner until the work goroutine reports back.
type spinnerModel struct {
	spinner spinner.Model
	title   string
	done    bool
}

func newSpinnerModel(title string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)
	return spinnerModel{spinner: s, title: title}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + Dim.Render(m.title) + "\n"
}

// RunWithSpinner runs fn while showing a spinner on stderr. When stderr is not
// a terminal fn is called directly. The spinner does not capture input, so
// Ctrl+C still reaches the process signal handler.
func RunWithSpinner[T any](title string, fn func() (T, error)) (T, error) {
	if !IsTerminal(os.Stderr) {
		return fn()
	}

	var (
		result T
		err    error
	)
	p := tea.NewProgram(newSpinnerModel(title),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err = fn()
		p.Send(spinnerDoneMsg{})
	}()
	// The spinner is cosmetic; its errors are ignored and the work always completes.
	_, _ = p.Run()
	<-done
	return result, err
}
