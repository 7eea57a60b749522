package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var setUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?;`

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ UserStore = (*users)(nil)

// NewUsersRepository builds the bun backed user store.
func NewUsersRepository(db *bun.DB) UserStore {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	prepareUserDefaults(record)

	if existing, err := a.findByColumn(ctx, "email", record.Email); err == nil && existing != nil {
		return nil, goerrors.New("email already exists", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeDuplicateUser)
	}

	if existing, err := a.findByColumn(ctx, "username", record.Username); err == nil && existing != nil {
		return nil, goerrors.New("username already exists", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeDuplicateUser)
	}

	created, err := a.repo.CreateTx(ctx, a.db, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user").
			WithCode(goerrors.CodeConflict)
	}

	return created, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.findByColumn(ctx, "id", id.String())
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.findByColumn(ctx, "email", strings.TrimSpace(email))
}

// GetByIdentifier resolves email first, then username, mirroring the login
// form accepting either.
func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)

	for _, column := range identifierColumns(identifier) {
		record, err := a.findByColumn(ctx, column, identifier)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}
		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.db.NewRaw(setUserPasswordSQL, passwordHash, id.String()).Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) SetVerificationCode(ctx context.Context, id uuid.UUID, code string) error {
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("verification_code = ?", code).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// UpdateVerificationState is the single mutation path for the verification
// pair: verified and verified_at always move together.
func (a *users) UpdateVerificationState(ctx context.Context, id uuid.UUID, verified bool) (*User, error) {
	if _, err := a.GetByID(ctx, id); err != nil {
		return nil, err
	}

	q := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_verified = ?", verified).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id)

	if verified {
		q = q.Set("verified_at = ?", time.Now())
	} else {
		q = q.Set("verified_at = NULL")
	}

	if _, err := q.Exec(ctx); err != nil {
		return nil, err
	}

	return a.GetByID(ctx, id)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"last_login_at" = ?,
			"updated_at" = CURRENT_TIMESTAMP
		WHERE
			("usr".id = ?);
	`, time.Now(), id).Exec(ctx)

	return err
}

// List returns one page of users plus the best effort total count. The two
// reads run independently, the count is not required to match the exact
// snapshot of the page.
func (a *users) List(ctx context.Context, page, limit int) ([]*User, int, error) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = 25
	}

	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Offset(page * limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err := a.db.NewSelect().Model((*User)(nil)).Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (a *users) findByColumn(ctx context.Context, column, value string) (*User, error) {
	record := &User{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}

	return record, nil
}

func identifierColumns(identifier string) []string {
	if strings.Contains(identifier, "@") {
		return []string{"email", "username"}
	}
	return []string{"username", "email"}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Username == "" {
		record.Username = getUsername("", record.Email)
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}
}
