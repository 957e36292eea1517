package auth

import "vidtube/internal/domain/models"

type RegisterRequest struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Avatar     string `json:"avatar,omitempty"`
	CoverImage string `json:"coverImage,omitempty"`
}

type RegisterResponse struct {
	User models.PublicUser `json:"user"`
}

type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User   models.PublicUser `json:"user"`
	Tokens models.TokenPair  `json:"tokens"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	Tokens models.TokenPair `json:"tokens"`
}

type LogoutRequest struct {
	AccessToken string `json:"accessToken"`
}

type LogoutResponse struct{}

type AuthenticateRequest struct {
	AccessToken string `json:"accessToken"`
}

type AuthenticateResponse struct {
	User models.PublicUser `json:"user"`
}
