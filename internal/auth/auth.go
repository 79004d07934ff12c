// Package auth validates the task token the platform issues to each run.
//
// It intentionally avoids policy decisions and storage concerns.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates a task token.
type Validator interface {
	Validate(token string) error
}

// StaticToken accepts a single shared token. The dev backend uses it; a real
// deployment issues one token per task.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// AllowAll skips the check, for local runs without a token.
type AllowAll struct{}

func (AllowAll) Validate(string) error { return nil }

// FuncValidator adapts a function into a Validator.
type FuncValidator func(token string) error

func (f FuncValidator) Validate(token string) error {
	return f(token)
}
