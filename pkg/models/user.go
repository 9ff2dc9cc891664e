package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marmos91/ormkit/pkg/dao"
)

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// User is a demo entity stored in the users table.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Name      string    `gorm:"not null;size:255" json:"name" yaml:"name"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email" yaml:"email"`
	Age       int       `json:"age" yaml:"age"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"updated_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID and normalizes the email.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// UserDAO is the data-access object for users.
type UserDAO struct {
	*dao.Gorm[User]
}

// NewUserDAO creates a UserDAO on db.
func NewUserDAO(db *gorm.DB, opts ...dao.Option) *UserDAO {
	return &UserDAO{Gorm: dao.New[User](db, opts...)}
}

// GetAll returns every user ordered by creation time.
func (d *UserDAO) GetAll(ctx context.Context) ([]User, error) {
	users := []User{}
	if err := d.DB(ctx).Order("created_at, id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// FindByEmail returns the user with the given email (case-insensitive).
func (d *UserDAO) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := d.DB(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}
