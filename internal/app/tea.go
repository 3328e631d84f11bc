package app

import (
	"context"
	"errors"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/dshills/silverkey/internal/input/source"
)

// changedMsg reports that the feed changed outside of Update, for example
// after a reload.
type changedMsg struct{}

// teaModel is the Bubble Tea inspector.
type teaModel struct {
	app    *Application
	src    *source.Tea
	width  int
	height int
}

func newTeaModel(a *Application) *teaModel {
	return &teaModel{app: a, src: source.NewTea(a.log.Logger)}
}

func (m *teaModel) waitChanged() tea.Cmd {
	ch := m.app.Changed()
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func (m *teaModel) Init() tea.Cmd {
	return m.waitChanged()
}

func (m *teaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case changedMsg:
		return m, m.waitChanged()
	}

	m.src.Handle(msg)
	if m.app.quit.Load() {
		return m, tea.Quit
	}
	return m, nil
}

func (m *teaModel) View() tea.View {
	var v tea.View
	v.AltScreen = true
	v.ReportFocus = true
	v.KeyboardEnhancements.ReportEventTypes = true

	lines := m.app.inspect()
	if m.height > 0 && len(lines) > m.height {
		lines = lines[:m.height]
	}
	if m.width > 0 {
		for i, line := range lines {
			if r := []rune(line); len(r) > m.width {
				lines[i] = string(r[:m.width])
			}
		}
	}
	v.SetContent(strings.Join(lines, "\n"))
	return v
}

func (a *Application) runTea(ctx context.Context) error {
	m := newTeaModel(a)
	if err := a.engine.BindSource(m.src); err != nil {
		return err
	}
	defer a.engine.UnbindSource(m.src)
	a.bindQuit()
	stopPlayback := a.startPlayback(ctx)
	defer stopPlayback()

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(a.opts.Stdin),
		tea.WithOutput(a.opts.Stdout),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
