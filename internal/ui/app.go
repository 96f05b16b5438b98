// Package ui renders the cryptodash terminal interface: a login gate, the
// multi-symbol dashboard, and the per-symbol detail screen with the merged
// actual/forecast series. All data flows through the view models; the UI
// only reads snapshots on a refresh tick and forwards user intent.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"cryptodash/internal/session"
	"cryptodash/internal/view"
)

type screen int

const (
	screenLogin screen = iota
	screenDashboard
	screenDetail
)

// refreshMsg redraws the UI from the latest view-model snapshots. The poll
// cycles run on their own cadence; this tick only repaints.
type refreshMsg time.Time

func refreshCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// App is the root bubbletea model.
type App struct {
	session *session.Store
	dash    *view.DashboardModel
	detail  *view.DetailModel
	symbols []string

	screen screen
	width  int
	height int
	spin   spinner.Model
	form   loginForm
	cursor int
	status string
}

// NewApp creates the root model. The session store must already be
// initialized; an authenticated session skips the login screen.
func NewApp(sess *session.Store, dash *view.DashboardModel, detail *view.DetailModel, symbols []string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	a := &App{
		session: sess,
		dash:    dash,
		detail:  detail,
		symbols: symbols,
		spin:    sp,
		form:    newLoginForm(),
	}
	if sess.Snapshot().Authenticated {
		a.screen = screenDashboard
		a.dash.Start()
	}
	return a
}

// NewDetailApp creates the root model opened directly on one symbol's
// detail screen (the `watch` command).
func NewDetailApp(sess *session.Store, dash *view.DashboardModel, detail *view.DetailModel, symbols []string, symbol string) *App {
	a := NewApp(sess, dash, detail, symbols)
	if a.screen == screenDashboard {
		a.screen = screenDetail
		a.detail.SetSymbol(symbol)
	}
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, refreshCmd(), a.form.focusCmd())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case refreshMsg:
		return a, refreshCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case authResultMsg:
		return a.handleAuthResult(msg)

	case tea.KeyMsg:
		switch a.screen {
		case screenLogin:
			return a.updateLogin(msg)
		case screenDashboard:
			return a.updateDashboard(msg)
		case screenDetail:
			return a.updateDetail(msg)
		}
	}
	return a, nil
}

func (a *App) View() string {
	switch a.screen {
	case screenLogin:
		return a.viewLogin()
	case screenDashboard:
		return a.viewDashboard()
	case screenDetail:
		return a.viewDetail()
	}
	return ""
}

// logout tears down both poll cycles and returns to the login screen.
func (a *App) logout() {
	a.session.Logout()
	a.dash.Close()
	a.detail.Close()
	a.form = newLoginForm()
	a.status = "Logged out"
	a.screen = screenLogin
}

// quit stops polling before exiting so no timers outlive the program.
func (a *App) quit() tea.Cmd {
	a.dash.Close()
	a.detail.Close()
	return tea.Quit
}

// Run starts the bubbletea program in the alternate screen.
func Run(app *App) error {
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
