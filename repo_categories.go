package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type categories struct {
	repo repository.Repository[*Category]
	db   *bun.DB
}

var _ CategoryStore = (*categories)(nil)

// NewCategoriesRepository builds the bun backed category store.
func NewCategoriesRepository(db *bun.DB) CategoryStore {
	repo := repository.NewRepository[*Category](db, repository.ModelHandlers[*Category]{
		NewRecord: func() *Category { return &Category{} },
		GetID: func(c *Category) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Category, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &categories{
		repo: repo,
		db:   db,
	}
}

func (c *categories) Create(ctx context.Context, record *Category) (*Category, error) {
	record.Name = strings.TrimSpace(record.Name)

	if existing, err := c.GetByName(ctx, record.Name); err == nil && existing != nil {
		return nil, goerrors.New("category name already exists", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	return c.repo.CreateTx(ctx, c.db, record)
}

func (c *categories) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	return c.repo.GetByID(ctx, id.String())
}

func (c *categories) GetByName(ctx context.Context, name string) (*Category, error) {
	return c.repo.GetByIdentifier(ctx, strings.TrimSpace(name))
}

func (c *categories) List(ctx context.Context, page, limit int) ([]*Category, int, error) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = 25
	}

	var records []*Category
	err := c.db.NewSelect().
		Model(&records).
		Order("name ASC").
		Limit(limit).
		Offset(page * limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err := c.db.NewSelect().Model((*Category)(nil)).Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (c *categories) Update(ctx context.Context, record *Category) (*Category, error) {
	now := time.Now()
	record.UpdatedAt = &now
	return c.repo.UpdateTx(ctx, c.db, record, repository.UpdateByID(record.ID.String()))
}

func (c *categories) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := c.db.NewDelete().
		Model((*Category)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}
