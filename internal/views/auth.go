package views

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/validation"
)

// LoginFunc performs a session login
type LoginFunc interface {
	Login(ctx context.Context, username, password string) error
}

// LoginPage submits the login form
type LoginPage struct {
	session LoginFunc
	alert   string
}

// NewLoginPage creates the login page
func NewLoginPage(s LoginFunc) *LoginPage {
	return &LoginPage{session: s}
}

// Submit logs in. The session navigates on success; on failure the form
// message is set and the error returned.
func (p *LoginPage) Submit(ctx context.Context, username, password string) error {
	p.alert = ""
	req := models.LoginRequest{Username: username, Password: password}
	if err := validation.Validate.Struct(req); err != nil {
		p.alert = Message(err)
		return err
	}
	if err := p.session.Login(ctx, username, password); err != nil {
		p.alert = MsgLoginFailed
		return err
	}
	return nil
}

// Alert returns the current form message
func (p *LoginPage) Alert() string { return p.alert }

// Registrar creates accounts
type Registrar interface {
	Register(ctx context.Context, reg *models.Registration) (*models.User, error)
}

// SignupPage submits the self-registration form
type SignupPage struct {
	registrar Registrar
	nav       session.Navigator
	now       func() time.Time
	alert     string
}

// NewSignupPage creates the signup page
func NewSignupPage(r Registrar, nav session.Navigator) *SignupPage {
	return &SignupPage{registrar: r, nav: nav, now: time.Now}
}

// Submit validates the form and registers an employee account. New accounts
// always get the EMPLOYEE role and a generated employee id.
func (p *SignupPage) Submit(ctx context.Context, username, email, password string) (*models.User, error) {
	p.alert = ""
	reg := &models.Registration{
		Username:   validation.SanitizeText(username),
		Email:      validation.SanitizeText(email),
		Password:   password,
		Role:       string(session.RoleEmployee),
		EmployeeID: fmt.Sprintf("EMP-%d", p.now().UnixMilli()),
	}
	if err := validation.Validate.Struct(reg); err != nil {
		p.alert = Message(err)
		return nil, err
	}

	user, err := p.registrar.Register(ctx, reg)
	if err != nil {
		p.alert = MsgRegistrationFailed
		if apiclient.IsValidation(err) {
			p.alert = Message(err)
		}
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	p.alert = MsgRegistered
	p.nav.Navigate(RouteLogin)
	return user, nil
}

// Alert returns the current form message
func (p *SignupPage) Alert() string { return p.alert }
