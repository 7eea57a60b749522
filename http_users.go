package accounts

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserListResponse is one page of users plus the total count. The count is a
// best effort snapshot, not guaranteed to match the page exactly.
type UserListResponse struct {
	Items []*Profile `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// RegisterUserRoutes mounts the admin user listing endpoints.
func RegisterUserRoutes(app *fiber.App, users UserStore, logger Logger, guard fiber.Handler) {
	if logger == nil {
		logger = defLogger{}
	}

	controller := &UsersController{
		Logger: logger,
		Users:  users,
	}

	group := app.Group("/users", guard)

	group.Get("/", controller.List).Name("users.list")
	group.Get("/:id", controller.Show).Name("users.show")
}

type UsersController struct {
	Logger Logger
	Users  UserStore
}

func (u *UsersController) List(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 0)
	limit := ctx.QueryInt("limit", 25)

	records, total, err := u.Users.List(ctx.UserContext(), page, limit)
	if err != nil {
		u.Logger.Error("User list error: %s", err)
		return err
	}

	items := make([]*Profile, 0, len(records))
	for _, record := range records {
		items = append(items, NewProfile(record))
	}

	return ctx.JSON(UserListResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (u *UsersController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid user id").
			WithCode(errors.CodeBadRequest)
	}

	record, err := u.Users.GetByID(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(NewProfile(record))
}
