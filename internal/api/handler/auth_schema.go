package handler

import "github.com/snapmeal/auth-service/internal/core/domain"

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=64"`
	LastName  string `json:"last_name" validate:"max=64"`
}

// loginRequest accepts the identifier as either username or email; exactly one
// is required.
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

func (r loginRequest) identifier() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type authResponse struct {
	User   *domain.User      `json:"user,omitempty"`
	Tokens *domain.TokenPair `json:"tokens,omitempty"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}
