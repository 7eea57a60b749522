package accounts

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RegisterCategoryRoutes mounts the category CRUD endpoints.
func RegisterCategoryRoutes(app *fiber.App, categories CategoryStore, logger Logger, guard fiber.Handler) {
	if logger == nil {
		logger = defLogger{}
	}

	controller := &CategoriesController{
		Logger:     logger,
		Categories: categories,
	}

	group := app.Group("/categories", guard)

	group.Post("/", controller.Create).Name("categories.create")
	group.Get("/", controller.List).Name("categories.list")
	group.Get("/:id", controller.Show).Name("categories.show")
	group.Patch("/:id", controller.Update).Name("categories.update")
	group.Delete("/:id", controller.Delete).Name("categories.delete")
}

type CategoriesController struct {
	Logger     Logger
	Categories CategoryStore
}

type CategoryPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate will run validation rules
func (r CategoryPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Required,
			validation.Length(1, 120),
		),
	)
}

// CategoryUpdatePayload uses pointers so absent fields are left untouched.
type CategoryUpdatePayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Validate will run validation rules
func (r CategoryUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.NilOrNotEmpty,
			validation.Length(1, 120),
		),
	)
}

func (c *CategoriesController) Create(ctx *fiber.Ctx) error {
	payload := new(CategoryPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	record, err := c.Categories.Create(ctx.UserContext(), &Category{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		c.Logger.Error("Category create error: %s", err)
		return err
	}

	return ctx.Status(http.StatusCreated).JSON(record)
}

func (c *CategoriesController) List(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 0)
	limit := ctx.QueryInt("limit", 25)

	records, total, err := c.Categories.List(ctx.UserContext(), page, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"items": records,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (c *CategoriesController) Show(ctx *fiber.Ctx) error {
	id, err := parseCategoryID(ctx)
	if err != nil {
		return err
	}

	record, err := c.Categories.GetByID(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(record)
}

func (c *CategoriesController) Update(ctx *fiber.Ctx) error {
	id, err := parseCategoryID(ctx)
	if err != nil {
		return err
	}

	payload := new(CategoryUpdatePayload)

	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	record, err := c.Categories.GetByID(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	if payload.Name != nil {
		record.Name = *payload.Name
	}

	if payload.Description != nil {
		record.Description = *payload.Description
	}

	updated, err := c.Categories.Update(ctx.UserContext(), record)
	if err != nil {
		return err
	}

	return ctx.JSON(updated)
}

func (c *CategoriesController) Delete(ctx *fiber.Ctx) error {
	id, err := parseCategoryID(ctx)
	if err != nil {
		return err
	}

	if err := c.Categories.Delete(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.SendStatus(http.StatusNoContent)
}

func parseCategoryID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryBadInput, "invalid category id").
			WithCode(errors.CodeBadRequest)
	}
	return id, nil
}
