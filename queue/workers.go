package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
)

// ErrRecipientNotFound signals that the user a job refers to no longer
// exists. The worker drops the job instead of requesting redelivery.
var ErrRecipientNotFound = errors.New("notification recipient not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// Recipient is the slice of a user record the workers need to compose an
// email. It is always re-read at processing time; jobs never carry it.
type Recipient struct {
	Email            string
	FullName         string
	VerificationCode string
	LastLoginAt      *time.Time
	VerifiedAt       *time.Time
}

// Directory resolves the current user record for a job's email.
type Directory interface {
	LookupRecipient(ctx context.Context, email string) (*Recipient, error)
}

// Mailer is the outbound mail channel the workers emit on.
type Mailer interface {
	Send(to, subject, body string) error
}

// Worker consumes one job kind and turns each job into an email. Workers
// are idempotent under redelivery: a duplicate delivery simply sends the
// same templated email again, no dedup key is kept.
type Worker struct {
	kind   Kind
	dir    Directory
	mail   Mailer
	logger Logger
}

// NewWorker builds the worker for a job kind.
func NewWorker(kind Kind, dir Directory, mail Mailer, logger Logger) *Worker {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Worker{
		kind:   kind,
		dir:    dir,
		mail:   mail,
		logger: logger,
	}
}

// Kind returns the job kind this worker consumes.
func (w *Worker) Kind() Kind {
	return w.kind
}

// Run consumes jobs from the broker until ctx is done.
func (w *Worker) Run(ctx context.Context, broker Broker) error {
	return broker.Consume(ctx, w.kind, w.Handle)
}

// Handle processes a single job: re-fetch the user, compose the template,
// emit the email. A missing user drops the job; a mail failure returns the
// error so the broker redelivers.
func (w *Worker) Handle(ctx context.Context, job Job) error {
	if job.Kind != w.kind {
		w.logger.Error("worker received job of wrong kind", "want", w.kind, "got", job.Kind)
		return nil
	}

	recipient, err := w.dir.LookupRecipient(ctx, job.Email)
	if err != nil {
		if errors.IsNotFound(err) {
			// user deleted between enqueue and processing, nothing to send
			w.logger.Warn("dropping job, recipient no longer exists", "kind", w.kind, "email", job.Email)
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to look up recipient")
	}

	subject, body := Compose(job, recipient)

	if err := w.mail.Send(recipient.Email, subject, body); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to send notification email")
	}

	w.logger.Debug("notification sent", "kind", w.kind, "email", recipient.Email)

	return nil
}

// Compose renders the fixed template for a job kind.
func Compose(job Job, r *Recipient) (subject, body string) {
	switch job.Kind {
	case KindRegister:
		subject = "Welcome aboard"
		body = fmt.Sprintf(
			"Hello %s! Your account was created successfully. Confirm your email address with the code below:\n\n%s",
			r.FullName, r.VerificationCode,
		)
	case KindLogin:
		subject = "New login to your account"
		body = fmt.Sprintf(
			"%s, someone signed in to your account at %s. If this was not you, change your password immediately.",
			r.FullName, formatTime(r.LastLoginAt),
		)
	case KindPasswordReset:
		subject = "Password reset requested"
		body = fmt.Sprintf(
			"%s, we received a request to reset your password. Use the link below within 5 minutes:\n\n/auth/reset-password?token=%s\n\nIf you did not request this, you can ignore this email.",
			r.FullName, job.Token,
		)
	case KindVerifyAccount:
		subject = "Account verified"
		body = fmt.Sprintf(
			"%s, your account was verified successfully at %s.",
			r.FullName, formatTime(r.VerifiedAt),
		)
	}
	return subject, body
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "an unknown time"
	}
	return t.Format(time.RFC1123)
}

// NewWorkers builds the full worker set, one per job kind.
func NewWorkers(dir Directory, mail Mailer, logger Logger) []*Worker {
	kinds := Kinds()
	workers := make([]*Worker, 0, len(kinds))
	for _, kind := range kinds {
		workers = append(workers, NewWorker(kind, dir, mail, logger))
	}
	return workers
}

// Run starts every worker against the broker and blocks until ctx is done.
func Run(ctx context.Context, broker Broker, workers []*Worker) {
	done := make(chan struct{})

	for _, w := range workers {
		go func(w *Worker) {
			if err := w.Run(ctx, broker); err != nil && !errors.Is(err, context.Canceled) {
				if w.logger != nil {
					w.logger.Error("worker stopped", "kind", w.kind, "error", err)
				}
			}
		}(w)
	}

	go func() {
		<-ctx.Done()
		close(done)
	}()

	<-done
}
