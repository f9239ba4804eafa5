package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/docmigrate/internal/formatter"
	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunningView ViewState = iota
	ResultView
)

// RunFunc starts an ingestion run that reports to progress. It must not close progress.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*models.Summary, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	title        string
	run          RunFunc
	view         ViewState
	width        int
	height       int
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	pending      <-chan runResult
	progress     tasks.ProgressUpdate
	last         *models.Outcome
	counts       map[models.OutcomeKind]int
	summary      *models.Summary
	err          error
	errorList    list.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model that runs fn once started.
func NewModel(ctx context.Context, title string, fn RunFunc) *Model {
	return &Model{
		ctx:    ctx,
		title:  title,
		run:    fn,
		view:   RunningView,
		bar:    progress.New(progress.WithDefaultGradient()),
		counts: map[models.OutcomeKind]int{},
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Run starts the program and returns the run's summary once the user quits.
func Run(ctx context.Context, title string, fn RunFunc) (*models.Summary, error) {
	m := NewModel(ctx, title, fn)
	if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}
	return m.summary, m.err
}

// Init starts the run in the background.
func (m *Model) Init() tea.Cmd {
	return m.start()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-4, 10)
		if m.view == ResultView {
			m.errorList.SetSize(max(msg.Width-4, 40), m.listHeight())
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		if m.view == ResultView {
			var cmd tea.Cmd
			m.errorList, cmd = m.errorList.Update(msg)
			return m, cmd
		}
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = update
			if o, ok := update.Data.(models.Outcome); ok {
				m.last = &o
				m.counts[o.Kind]++
			}
			return m, m.waitForProgress()

		case MsgRunComplete:
			res := msg.data.(runResult)
			m.summary, m.err = res.summary, res.err
			m.view = ResultView
			if m.summary != nil {
				m.errorList = list.New(errorItems(m.summary.Errors), list.NewDefaultDelegate(), max(m.width-4, 40), m.listHeight())
				m.errorList.Title = fmt.Sprintf("Failed files (%d)", len(m.summary.Errors))
			}
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	done := make(chan runResult, 1)

	go func() {
		summary, err := m.run(m.ctx, m.progressChan)
		done <- runResult{summary: summary, err: err}
		close(m.progressChan)
	}()

	return m.waitFor(done)
}

func (m *Model) waitFor(done <-chan runResult) tea.Cmd {
	m.pending = done
	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	ch, done := m.progressChan, m.pending
	return func() tea.Msg {
		if ch != nil {
			if update, ok := <-ch; ok {
				return progressUpdateMsg(update)
			}
		}
		res := <-done
		return runCompleteMsg(res.summary, res.err)
	}
}

func (m *Model) percent() float64 {
	if m.progress.Total <= 0 {
		return 0
	}
	return float64(m.progress.Step) / float64(m.progress.Total)
}

func (m *Model) listHeight() int {
	return max(m.height-16, 5)
}

func (m *Model) renderRunning() string {
	title := styles.Heading(m.title)
	counts := fmt.Sprintf("%s  %s  %s",
		styles.Count(models.OutcomeSuccess, m.counts[models.OutcomeSuccess]),
		styles.Count(models.OutcomeSkipped, m.counts[models.OutcomeSkipped]),
		styles.Count(models.OutcomeError, m.counts[models.OutcomeError]),
	)

	status := m.progress.Message
	if status == "" {
		status = "Starting..."
	}
	helpView := styles.help.Render(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n\n%s", title, m.bar.ViewAs(m.percent()), counts, status, helpView)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Run failed: %v\n\nPress q to quit", m.err))
	}
	if m.summary == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Run Complete")
	if m.summary.Errored > 0 {
		title = styles.warn.Render(fmt.Sprintf("Run complete with %d failed files", m.summary.Errored))
	}
	body := string(formatter.SummaryToText(m.summary))

	var failures string
	if len(m.summary.Errors) > 0 {
		failures = "\n" + m.errorList.View()
	}
	helpView := styles.help.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, body, failures, helpView)
}
