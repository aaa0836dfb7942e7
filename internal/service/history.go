package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/models"
)

var ErrInvalidEmail = errors.New("email must contain @")

// Directory is the user-facing read side of the store.
type Directory interface {
	CreateUser(ctx context.Context, email string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteStock, error)
	QueryHistory(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error)
}

// SignIn returns the user for email, creating it on first use.
func SignIn(ctx context.Context, dir Directory, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	user, err := dir.CreateUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in %s: %w", email, err)
	}
	return user, nil
}

// GetHistory 返回某个邮箱最近的问答记录，最新的在前
func GetHistory(ctx context.Context, dir Directory, email string, limit int) ([]models.HistoryEntry, error) {
	user, err := dir.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = consts.DefaultHistoryLimit
	}
	return dir.QueryHistory(ctx, user.ID, limit)
}

// GetFavorites 返回某个邮箱的自选股
func GetFavorites(ctx context.Context, dir Directory, email string) ([]models.FavoriteStock, error) {
	user, err := dir.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	return dir.ListFavorites(ctx, user.ID)
}
