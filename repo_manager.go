package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Users() UserStore
	Sessions() SessionStore
	Categories() CategoryStore
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
}

type mngr struct {
	db         *bun.DB
	users      UserStore
	sessions   SessionStore
	categories CategoryStore
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:         db,
		users:      NewUsersRepository(db),
		sessions:   NewSessionsRepository(db),
		categories: NewCategoriesRepository(db),
	}
}

func (m mngr) Users() UserStore {
	return m.users
}

func (m mngr) Sessions() SessionStore {
	return m.sessions
}

func (m mngr) Categories() CategoryStore {
	return m.categories
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.categories == nil {
		return errors.New("repository categories should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}
