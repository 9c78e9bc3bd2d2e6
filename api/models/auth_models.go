// api/models/auth_models.go
package models

import "github.com/smbworks/erp-backend/internal/domain"

// --- Auth Request/Response Structs ---

// LoginRequest defines the structure for the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse defines the structure for the login response body
type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// CreateUserRequest is an admin request to add a user. The initial password
// is generated and returned once.
type CreateUserRequest struct {
	Email            string  `json:"email" binding:"required,email"`
	CompanyID        *string `json:"company_id"`
	IsAdmin          bool    `json:"is_admin"`
	SubscriptionPlan string  `json:"subscription_plan" binding:"omitempty,oneof=free pro enterprise"`
}

type CreateUserResponse struct {
	domain.User
	InitialPassword string `json:"initial_password"`
}

// --- API key administration ---

type IssueAPIKeyRequest struct {
	Label string `json:"label" binding:"max=200"`
}
