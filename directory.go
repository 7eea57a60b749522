package accounts

import (
	"context"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-accounts/queue"
)

// userDirectory adapts the UserStore to the queue's Directory so workers can
// re-read the current user record at processing time.
type userDirectory struct {
	users UserStore
}

// NewUserDirectory exposes the user store as a notification recipient
// directory.
func NewUserDirectory(users UserStore) queue.Directory {
	return &userDirectory{users: users}
}

func (d *userDirectory) LookupRecipient(ctx context.Context, email string) (*queue.Recipient, error) {
	user, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, queue.ErrRecipientNotFound
		}
		return nil, err
	}

	return &queue.Recipient{
		Email:            user.Email,
		FullName:         user.FullName,
		VerificationCode: user.VerificationCode,
		LastLoginAt:      user.LastLoginAt,
		VerifiedAt:       user.VerifiedAt,
	}, nil
}

// brokerEnqueuer adapts a queue.Broker to the Enqueuer the notifier expects.
type brokerEnqueuer struct {
	broker queue.Broker
}

// NewBrokerEnqueuer wraps a broker for use by the notification dispatcher.
func NewBrokerEnqueuer(broker queue.Broker) Enqueuer {
	return &brokerEnqueuer{broker: broker}
}

func (e *brokerEnqueuer) Enqueue(ctx context.Context, job queue.Job) error {
	return e.broker.Publish(ctx, job)
}
