package storage

import (
	"context"
	"errors"

	"github.com/dyike/finreact/internal/models"
)

var (
	ErrFavoritesLimit    = errors.New("favorites limit reached")
	ErrDuplicateFavorite = errors.New("stock already in favorites")
	ErrFavoriteNotFound  = errors.New("stock not in favorites")
	ErrUserNotFound      = errors.New("user not found")
)

// Store is the full persistence contract: users, favorites and the
// query/response log. internal/storage/sqlite is the implementation.
type Store interface {
	CreateUser(ctx context.Context, email string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	AddFavorite(ctx context.Context, userID int64, symbol string, low, high *float64) (*models.FavoriteStock, error)
	RemoveFavorite(ctx context.Context, userID int64, symbol string) (bool, error)
	UpdateThresholds(ctx context.Context, userID int64, symbol string, low, high *float64) error
	ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteStock, error)
	UsersWithFavorites(ctx context.Context) ([]models.User, error)

	LogQuery(ctx context.Context, userID int64, text, queryType string) (int64, error)
	LogResponse(ctx context.Context, queryID int64, text string, toolsUsed []string, elapsedMS int64) (int64, error)
	LogQueryStocks(ctx context.Context, queryID int64, symbols []string) error
	QueryHistory(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error)

	Close() error
}
