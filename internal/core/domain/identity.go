package domain

import "time"

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Identity is the signed-in user snapshot handed to auth-state subscribers.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

// AuthState is delivered on every sign-in and sign-out. A nil Identity means
// the session ended.
type AuthState struct {
	Identity  *Identity `json:"identity"`
	SessionID string    `json:"sessionId"`
}

func (s AuthState) SignedIn() bool {
	return s.Identity != nil
}

type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Email        string `gorm:"uniqueIndex;not null;type:text"`
	DisplayName  string `gorm:"type:text"`
	PhotoURL     string `gorm:"type:text"`
	PasswordHash string `gorm:"type:text"`
	Provider     string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string {
	return "users"
}

func (u User) Identity() Identity {
	return Identity{
		UID:         u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
	}
}

// FederatedProfile is what an external identity provider vouches for.
type FederatedProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type SessionClaims struct {
	SessionID string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type Session struct {
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Identity  Identity  `json:"identity"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72,strongpassword"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type FederatedLoginRequest struct {
	Provider string `json:"provider" validate:"required,oneof=google"`
	IDToken  string `json:"idToken" validate:"required"`
}
