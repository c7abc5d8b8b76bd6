package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// User represents a user in the system
type User struct {
	BaseModel
	FullName       string     `gorm:"size:50;not null" json:"fullName"`
	Email          string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password       string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Role           Role       `gorm:"size:20;index;not null" json:"role"`
	ProfilePicture string     `gorm:"size:512" json:"profilePicture,omitempty"`
	IsActive       bool       `gorm:"default:true" json:"isActive"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID             string     `json:"id"`
	FullName       string     `json:"fullName"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	IsActive       bool       `json:"isActive"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// DoctorSummary is the public listing shape for doctors.
type DoctorSummary struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:             u.ID,
		FullName:       u.FullName,
		Email:          u.Email,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		IsActive:       u.IsActive,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
	}
}

// Party converts the user into the identity view the scheduler works with.
func (u *User) Party() Party {
	return Party{
		ID:          u.ID,
		Role:        u.Role,
		DisplayName: u.FullName,
		Email:       u.Email,
		IsActive:    u.IsActive,
	}
}

// Party is a resolved participant of an appointment.
type Party struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"fullName"`
	Email       string `json:"email,omitempty"`
	IsActive    bool   `json:"-"`
}
