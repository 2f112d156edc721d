package store

import (
	"strings"

	"autoflow/workshop-service/internal/models"
)

// NewUser builds the stored user for input. Role defaults to staff.
func NewUser(id int64, input CreateUserInput) models.User {
	role := input.Role
	if role == "" {
		role = models.RoleStaff
	}
	return models.User{
		ID:       id,
		Username: strings.TrimSpace(input.Username),
		Password: input.Password,
		Branch:   input.Branch,
		Role:     role,
	}
}
