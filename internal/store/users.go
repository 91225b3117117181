package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrDuplicateUser is returned when registering a login that is already taken.
var ErrDuplicateUser = errors.New("user already exists")

// User is a dashboard account. Password holds a bcrypt hash, never plaintext.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Login     string    `gorm:"column:user_login;size:128;not null;uniqueIndex"`
	Password  string    `gorm:"column:user_password;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (User) TableName() string {
	return "users"
}

// UserExists reports whether login is registered.
func (s *Session) UserExists(ctx context.Context, login string) (bool, error) {
	db, err := s.tx(ctx)
	if err != nil {
		return false, err
	}

	var n int64
	if err := db.Model(&User{}).Where("user_login = ?", login).Count(&n).Error; err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return n > 0, nil
}

// CreateUser stores a new account. passwordHash must already be hashed.
func (s *Session) CreateUser(ctx context.Context, login, passwordHash string) (User, error) {
	exists, err := s.UserExists(ctx, login)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, ErrDuplicateUser
	}

	db, err := s.tx(ctx)
	if err != nil {
		return User{}, err
	}

	u := User{Login: login, Password: passwordHash}
	if err := db.Create(&u).Error; err != nil {
		// Two registrations racing past the check above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return User{}, ErrDuplicateUser
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// FindUser loads the account for login.
func (s *Session) FindUser(ctx context.Context, login string) (User, error) {
	db, err := s.tx(ctx)
	if err != nil {
		return User{}, err
	}

	var u User
	err = db.Where("user_login = ?", login).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}
