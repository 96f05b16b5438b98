package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const authTimeout = 15 * time.Second

// Form fields, in focus order. Email exists only in register mode.
const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
)

type loginForm struct {
	username   textinput.Model
	email      textinput.Model
	password   textinput.Model
	focus      int
	register   bool
	submitting bool
	errMsg     string
}

func newLoginForm() loginForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword

	return loginForm{
		username: username,
		email:    email,
		password: password,
	}
}

func (f *loginForm) focusCmd() tea.Cmd {
	return f.username.Focus()
}

func (f *loginForm) field(i int) *textinput.Model {
	switch i {
	case fieldUsername:
		return &f.username
	case fieldEmail:
		return &f.email
	default:
		return &f.password
	}
}

// next returns the index of the field after i, skipping email outside
// register mode.
func (f *loginForm) next(i int) int {
	if i == fieldUsername && !f.register {
		return fieldPassword
	}
	if i >= fieldPassword {
		return fieldUsername
	}
	return i + 1
}

// authResultMsg carries the outcome of a login or register attempt.
type authResultMsg struct {
	registered bool
	message    string
	err        error
}

func (a *App) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &a.form

	switch msg.String() {
	case "ctrl+c":
		return a, a.quit()

	case "ctrl+r":
		f.register = !f.register
		f.errMsg = ""
		if !f.register && f.focus == fieldEmail {
			f.setFocus(fieldUsername)
		}
		return a, nil

	case "tab", "shift+tab":
		f.setFocus(f.next(f.focus))
		return a, nil

	case "enter":
		if f.focus != fieldPassword {
			f.setFocus(f.next(f.focus))
			return a, nil
		}
		return a, a.submitAuth()
	}

	if f.submitting {
		return a, nil
	}
	var cmd tea.Cmd
	*f.field(f.focus), cmd = f.field(f.focus).Update(msg)
	return a, cmd
}

func (f *loginForm) setFocus(i int) {
	for _, idx := range []int{fieldUsername, fieldEmail, fieldPassword} {
		f.field(idx).Blur()
	}
	f.focus = i
	f.field(i).Focus()
}

// submitAuth runs the auth call off the UI loop and reports back as a
// message.
func (a *App) submitAuth() tea.Cmd {
	f := &a.form
	if f.submitting {
		return nil
	}
	username := strings.TrimSpace(f.username.Value())
	password := f.password.Value()
	email := strings.TrimSpace(f.email.Value())
	if username == "" || password == "" {
		f.errMsg = "Username and password are required"
		return nil
	}

	f.submitting = true
	f.errMsg = ""
	register := f.register

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		if register {
			msg, err := a.session.Register(ctx, username, email, password)
			return authResultMsg{registered: true, message: msg, err: err}
		}
		return authResultMsg{err: a.session.Login(ctx, username, password)}
	}
}

func (a *App) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	f := &a.form
	f.submitting = false

	if msg.err != nil {
		f.errMsg = msg.err.Error()
		return a, nil
	}

	if msg.registered {
		// Registration never authenticates; switch back to login mode.
		f.register = false
		f.password.SetValue("")
		f.setFocus(fieldPassword)
		a.status = msg.message
		return a, nil
	}

	a.status = ""
	a.screen = screenDashboard
	a.dash.Start()
	return a, nil
}

func (a *App) viewLogin() string {
	f := &a.form

	var b strings.Builder
	if f.register {
		b.WriteString(titleStyle.Render("cryptodash — register"))
	} else {
		b.WriteString(titleStyle.Render("cryptodash — login"))
	}
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Username") + "\n" + f.username.View() + "\n")
	if f.register {
		b.WriteString(labelStyle.Render("Email") + "\n" + f.email.View() + "\n")
	}
	b.WriteString(labelStyle.Render("Password") + "\n" + f.password.View() + "\n\n")

	if f.submitting {
		b.WriteString(a.spin.View() + " authenticating...\n")
	}
	if f.errMsg != "" {
		b.WriteString(errorStyle.Render(f.errMsg) + "\n")
	}
	if a.status != "" {
		b.WriteString(statusStyle.Render(a.status) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("enter submit · tab next field · ctrl+r toggle register · ctrl+c quit"))
	return cardStyle.Render(b.String())
}
