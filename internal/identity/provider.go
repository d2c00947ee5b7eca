// Package identity wraps the user pool that owns operator accounts.
package identity

import (
	"context"
	"time"
)

type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Profile struct {
	Username   string `json:"username" yaml:"username"`
	Sub        string `json:"sub" yaml:"sub"`
	Email      string `json:"email" yaml:"email"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty" yaml:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty" yaml:"family_name,omitempty"`
}

type Registration struct {
	Username   string
	Email      string
	Password   string
	GivenName  string
	FamilyName string
}

type SignupResult struct {
	Username        string `json:"username" yaml:"username"`
	UserSub         string `json:"user_sub" yaml:"user_sub"`
	Confirmed       bool   `json:"confirmed" yaml:"confirmed"`
	CodeDestination string `json:"code_destination,omitempty" yaml:"code_destination,omitempty"`
}

// Provider is the set of identity operations the dashboard consumes.
type Provider interface {
	Authenticate(ctx context.Context, identifier, secret string) (*Tokens, error)
	Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error)
	Profile(ctx context.Context, accessToken string) (*Profile, error)
	Register(ctx context.Context, reg Registration) (*SignupResult, error)
	ConfirmRegistration(ctx context.Context, username, code string) error
	ResendCode(ctx context.Context, username string) (string, error)
	SignOut(ctx context.Context, accessToken string) error
	ForgotPassword(ctx context.Context, identifier string) (string, error)
	ConfirmForgotPassword(ctx context.Context, identifier, code, newSecret string) error
}
