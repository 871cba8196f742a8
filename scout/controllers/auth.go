package controllers

import (
	"context"
	"errors"
	"time"

	"scout/scout/config"
	"scout/scout/sources/psql/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptyUsername = errors.New("username is required")

// UserStore is satisfied by dao.UserDAO.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username, email string, fullName *string) (*models.User, error)
}

type AuthController struct {
	users UserStore
	cfg   config.Config
}

func NewAuthController(users UserStore, cfg config.Config) *AuthController {
	return &AuthController{
		users: users,
		cfg:   cfg,
	}
}

// Login returns a 24h token for username, creating the user on first login.
func (c *AuthController) Login(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", ErrEmptyUsername
	}
	user, err := c.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		// Auto-create with dummy email
		user, err = c.users.CreateUser(ctx, username, username+"@example.com", nil)
		if err != nil {
			return "", err
		}
	}
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.cfg.JWTSecret))
}
