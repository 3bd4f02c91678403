// ABOUTME: Interactive huh forms for credentials and confirmations
// ABOUTME: Used by login/register when flags are missing and by destructive commands

package prompt

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/shelfhq/shelf/internal/client"
)

// Login collects the fields of a login form
type Login struct {
	Username string
	Password string
}

// Register collects the fields of a registration form
type Register struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(label + " is required")
		}
		return nil
	}
}

// LoginForm builds the login form. Prefilled values are kept as defaults.
func LoginForm(l *Login) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&l.Username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&l.Password).
				Validate(required("password")),
		),
	).WithTheme(huh.ThemeBase())
}

// RegisterForm builds the registration form with the client-side validators
func RegisterForm(r *Register) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&r.Username).
				Validate(client.ValidateUsername),
			huh.NewInput().
				Title("Email").
				Value(&r.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&r.Password).
				Validate(required("password")),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&r.Confirm).
				Validate(func(s string) error {
					if s != r.Password {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeBase())
}

func validateEmail(s string) error {
	if !client.ValidateEmail(s) {
		return errors.New("invalid email format")
	}
	return nil
}

// AskLogin runs the login form and returns credentials
func AskLogin(username string) (*client.Credentials, error) {
	l := &Login{Username: username}
	if err := LoginForm(l).Run(); err != nil {
		return nil, err
	}
	return &client.Credentials{Username: strings.TrimSpace(l.Username), Password: l.Password}, nil
}

// AskRegister runs the registration form
func AskRegister(username, email string) (*client.RegisterRequest, error) {
	r := &Register{Username: username, Email: email}
	if err := RegisterForm(r).Run(); err != nil {
		return nil, err
	}
	return &client.RegisterRequest{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
	}, nil
}

// Confirm asks a yes/no question. The default answer is no.
func Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeBase()).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
