package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSender, RoleReceiver:
		return true
	default:
		return false
	}
}

type User struct {
	gorm.Model
	Name         string `gorm:"column:name;not null" json:"name"`
	Email        string `gorm:"column:email;unique;not null" json:"email"`
	Password     string `gorm:"-:all" json:"-"` // Temporary field for password handling
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	Phone        string `gorm:"column:phone" json:"phone,omitempty"`
	Address      string `gorm:"column:address" json:"address,omitempty"`
	Role         Role   `gorm:"column:role;not null;default:'sender'" json:"role"`
	IsBlocked    bool   `gorm:"column:is_blocked;not null;default:false" json:"isBlocked"`
	IsDeleted    bool   `gorm:"column:is_deleted;not null;default:false" json:"isDeleted"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword(cost int) error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
