// user.go - Role-gated user accounts
//
// Accounts exist for authorization: the role decides what the API lets the
// caller do (authz.go). Password hashes use bcrypt; plaintext never leaves
// the login handler.
package clinic

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is one authorized account.
type User struct {
	ID           UserID
	Email        string
	Name         string
	Role         Role
	IsActive     bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserInput is the validated form for creating an account.
type UserInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

func (in *UserInput) Validate() error {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Message: "valid email is required"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !in.Role.Valid() {
		return &ValidationError{Field: "role", Message: "unknown role"}
	}
	if len(in.Password) < 8 {
		return &ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// NewUser builds an active account from validated input.
func NewUser(in UserInput, now time.Time) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           UserID(NewID()),
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		IsActive:     true,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CheckPassword verifies a login attempt against the stored hash.
func (u *User) CheckPassword(password string) error {
	if !u.IsActive {
		return ErrUserInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}
