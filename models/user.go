package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a pool administrator account. Players do not have accounts —
// entries are keyed by player name — so every stored user is an admin.
type User struct {
	Username     string    `json:"username" bson:"_id"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the bearer token issued after a successful login.
type AuthResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// HashPassword stores a bcrypt hash of password on the user.
func (u *User) HashPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now()
	return nil
}

// CheckPassword verifies password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
