package view

import (
	"net/mail"
	"net/url"
	"strings"
)

const MinPasswordLength = 8

// ValidationError is a form error shown next to one field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return invalid("email", "Invalid email address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return invalid("password", "Password is required")
	}
	if len(password) < MinPasswordLength {
		return invalid("password", "Must be at least 8 characters")
	}
	return nil
}

func ValidateLogin(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return invalid("password", "Password is required")
	}
	return nil
}

func ValidateSignup(email, password, confirm string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if password != confirm {
		return invalid("confirmPassword", "Passwords do not match")
	}
	return nil
}

func ValidateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return invalid("code", "Verification code is required")
	}
	return nil
}

// ValidateEndpointURL accepts absolute http and https URLs only.
func ValidateEndpointURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalid("url", "URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("url", "Enter a valid http or https URL")
	}
	return nil
}
