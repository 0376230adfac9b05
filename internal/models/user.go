package models

import "time"

// User represents an account allowed to call the prediction endpoints.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username       string    `json:"username" gorm:"uniqueIndex;type:varchar(50);not null"`
	Email          string    `json:"email,omitempty" gorm:"index;type:varchar(255)"`
	HashedPassword *string   `json:"-" gorm:"type:varchar(255)"` // nil only for externally provisioned accounts
	FullName       string    `json:"full_name,omitempty" gorm:"type:varchar(255)"`
	Picture        string    `json:"picture,omitempty" gorm:"type:varchar(1024)"`
	IsActive       bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserPublic is the projection of a User that may leave the service.
type UserPublic struct {
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Email    *string `json:"email"`
}

// Public returns the externally visible projection of u.
func (u *User) Public() UserPublic {
	p := UserPublic{Username: u.Username, Name: u.FullName}
	if u.Email != "" {
		email := u.Email
		p.Email = &email
	}
	return p
}
