package accounts

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type sessions struct {
	db *bun.DB
}

var _ SessionStore = (*sessions)(nil)

// NewSessionsRepository builds the bun backed session store.
func NewSessionsRepository(db *bun.DB) SessionStore {
	return &sessions{db: db}
}

// ReplaceForUser deletes every session the user holds and inserts the new
// one in a single transaction. At most one row per user survives any
// interleaving of calls.
func (s *sessions) ReplaceForUser(ctx context.Context, userID uuid.UUID, token string) error {
	now := time.Now()
	record := &Session{
		ID:        uuid.New(),
		Token:     token,
		UserID:    userID,
		CreatedAt: &now,
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*Session)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
}

func (s *sessions) GetByToken(ctx context.Context, token string) (*Session, error) {
	record := &Session{}

	err := s.db.NewSelect().
		Model(record).
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"token": token})
		}
		return nil, err
	}

	return record, nil
}

func (s *sessions) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.db.NewSelect().
		Model((*Session)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
}
