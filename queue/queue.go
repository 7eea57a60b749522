// Package queue carries the deferred notification pipeline: durable jobs
// describing transactional emails, a broker abstraction with in-memory and
// AMQP implementations, and one worker per notification kind.
package queue

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
)

// Kind identifies which notification a job describes. Each kind is consumed
// by exactly one worker.
type Kind string

const (
	KindRegister      Kind = "register"
	KindLogin         Kind = "login"
	KindPasswordReset Kind = "password_reset"
	KindVerifyAccount Kind = "verify_account"
)

// Kinds lists every job kind, in the order workers are usually started.
func Kinds() []Kind {
	return []Kind{KindRegister, KindLogin, KindPasswordReset, KindVerifyAccount}
}

// IsValid reports whether k is a known job kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindRegister, KindLogin, KindPasswordReset, KindVerifyAccount:
		return true
	default:
		return false
	}
}

// Job is one durable unit of work: send the templated email of Kind to the
// account identified by Email. Token is only set for password reset jobs.
// Workers re-read the user by Email when processing, the job never embeds a
// user snapshot.
type Job struct {
	Kind  Kind   `json:"kind"`
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}

// Validate rejects jobs a broker should never accept.
func (j Job) Validate() error {
	if !j.Kind.IsValid() {
		return errors.New(fmt.Sprintf("unknown job kind %q", j.Kind), errors.CategoryBadInput)
	}
	if j.Email == "" {
		return errors.New("job requires a recipient email", errors.CategoryBadInput)
	}
	return nil
}

// Handler processes one delivered job. Returning an error requests
// redelivery; returning nil acknowledges the job.
type Handler func(ctx context.Context, job Job) error

// Broker moves jobs between the dispatcher and the workers. Delivery is at
// least once: a handler error leaves the job eligible for redelivery, so
// handlers must tolerate duplicates.
type Broker interface {
	Publish(ctx context.Context, job Job) error
	Consume(ctx context.Context, kind Kind, handler Handler) error
	Close() error
}

// Logger is the slice of logging the queue needs, kept local so the package
// does not depend on the root package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
