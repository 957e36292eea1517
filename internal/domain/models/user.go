package models

import "time"

// User is the durable identity record. PassHash and RefreshToken never
// leave the service layer; transports work with PublicUser.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Avatar       string
	CoverImage   string
	PassHash     []byte
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSession reports whether the user holds an active refresh token.
func (u User) HasSession() bool {
	return u.RefreshToken != nil && *u.RefreshToken != ""
}

// Public strips credentials from the record.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type PublicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
