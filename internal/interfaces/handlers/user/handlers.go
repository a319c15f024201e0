package user

import (
	usersvc "deedshare-backend/internal/application/user"
	"deedshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *usersvc.Service
}

// CreateUser POST /api/v1/users/create-user — public registration.
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var body usersvc.CreateUserInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.Email == "" || body.Password == "" || body.Fullname == "" || body.Address == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	u, err := h.Service.CreateUser(c.Context(), body)
	if err != nil {
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.SuccessCreated(c, "User created", fiber.Map{
		"user_id":  u.UserID.String(),
		"fullname": u.Fullname,
		"email":    u.Email,
		"role":     u.Role,
		"address":  u.Address,
	}, nil)
}
