package accounts

import (
	"context"

	"github.com/goliatone/go-accounts/queue"
	"github.com/google/uuid"
)

// Enqueuer hands notification jobs to whichever broker backs the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// Notifier decorates an AccountManager with the deferred notification
// pipeline: after a wrapped operation succeeds it enqueues one durable job
// of the matching kind. The wrapped operation's outcome is never affected,
// an enqueue failure is logged and left to the broker, the state change
// already committed stays committed.
type Notifier struct {
	svc    AccountManager
	users  UserStore
	tokens TokenIssuer
	jobs   Enqueuer
	logger Logger
}

var _ AccountManager = (*Notifier)(nil)

// NewNotifier wraps svc with notification dispatch.
func NewNotifier(svc AccountManager, users UserStore, tokens TokenIssuer, jobs Enqueuer) *Notifier {
	return &Notifier{
		svc:    svc,
		users:  users,
		tokens: tokens,
		jobs:   jobs,
		logger: defLogger{},
	}
}

func (n *Notifier) WithLogger(logger Logger) *Notifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

// Register triggers a welcome notification after a successful registration.
func (n *Notifier) Register(ctx context.Context, msg RegisterMessage) (string, error) {
	token, err := n.svc.Register(ctx, msg)
	if err != nil {
		return "", err
	}

	n.enqueue(ctx, queue.Job{Kind: queue.KindRegister, Email: msg.Email})

	return token, nil
}

// Login triggers a login alert notification after a successful login.
func (n *Notifier) Login(ctx context.Context, identifier, password string) (string, error) {
	token, err := n.svc.Login(ctx, identifier, password)
	if err != nil {
		return "", err
	}

	email := identifier
	if user, lookupErr := n.users.GetByIdentifier(ctx, identifier); lookupErr == nil {
		email = user.Email
	}

	n.enqueue(ctx, queue.Job{Kind: queue.KindLogin, Email: email})

	return token, nil
}

// RequestPasswordReset mints the actual reset token here, right before the
// email job is enqueued, binding token generation to the moment the email
// is sent rather than to the moment the request was validated.
func (n *Notifier) RequestPasswordReset(ctx context.Context, email string) error {
	if err := n.svc.RequestPasswordReset(ctx, email); err != nil {
		return err
	}

	resetToken, err := n.tokens.IssuePasswordResetToken(email)
	if err != nil {
		// the acknowledged request stands, the user can simply retry
		n.logger.Error("Notifier failed to mint password reset token", "error", err)
		return nil
	}

	n.enqueue(ctx, queue.Job{Kind: queue.KindPasswordReset, Email: email, Token: resetToken})

	return nil
}

// ResetPassword passes through, no notification is attached to the change
// itself.
func (n *Notifier) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return n.svc.ResetPassword(ctx, resetToken, newPassword)
}

// UpdateVerificationState triggers a verification notification when the
// account moves toward verified.
func (n *Notifier) UpdateVerificationState(ctx context.Context, userID uuid.UUID, verified bool) error {
	if err := n.svc.UpdateVerificationState(ctx, userID, verified); err != nil {
		return err
	}

	if !verified {
		return nil
	}

	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.logger.Error("Notifier could not resolve verified user", "user_id", userID, "error", err)
		return nil
	}

	n.enqueue(ctx, queue.Job{Kind: queue.KindVerifyAccount, Email: user.Email})

	return nil
}

// VerifyAccountByCode triggers the same verification notification as the
// administrative transition.
func (n *Notifier) VerifyAccountByCode(ctx context.Context, email, code string) error {
	if err := n.svc.VerifyAccountByCode(ctx, email, code); err != nil {
		return err
	}

	n.enqueue(ctx, queue.Job{Kind: queue.KindVerifyAccount, Email: email})

	return nil
}

// GetProfile passes through.
func (n *Notifier) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return n.svc.GetProfile(ctx, userID)
}

func (n *Notifier) enqueue(ctx context.Context, job queue.Job) {
	if err := n.jobs.Enqueue(ctx, job); err != nil {
		n.logger.Error("Notifier enqueue failed",
			"kind", job.Kind,
			"error", err,
		)
	}
}
