package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/models"
	"github.com/dyike/finreact/internal/storage"
	"github.com/dyike/finreact/pkg/sqlite"
)

var (
	ErrFavoritesLimit    = storage.ErrFavoritesLimit
	ErrDuplicateFavorite = storage.ErrDuplicateFavorite
	ErrFavoriteNotFound  = storage.ErrFavoriteNotFound
	ErrUserNotFound      = storage.ErrUserNotFound
)

var _ storage.Store = (*Store)(nil)

const (
	tableUsers       = "users"
	tableFavorites   = "favorite_stocks"
	tableQueries     = "user_queries"
	tableResponses   = "agent_responses"
	tableQueryStocks = "query_stocks"
)

var counterTables = []string{tableUsers, tableFavorites, tableQueries, tableResponses, tableQueryStocks}

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened handle and makes sure the schema exists.
func New(db *sqlx.DB) (*Store, error) {
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS id_counters (
    table_name TEXT PRIMARY KEY,
    last_id INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
    user_id INTEGER PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS favorite_stocks (
    favorite_id INTEGER PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(user_id),
    stock_symbol TEXT NOT NULL,
    price_threshold_low REAL,
    price_threshold_high REAL,
    added_at TIMESTAMP NOT NULL,
    UNIQUE(user_id, stock_symbol)
);

CREATE TABLE IF NOT EXISTS user_queries (
    query_id INTEGER PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(user_id),
    query_text TEXT NOT NULL,
    query_timestamp TIMESTAMP NOT NULL,
    query_type TEXT
);

CREATE TABLE IF NOT EXISTS agent_responses (
    response_id INTEGER PRIMARY KEY,
    query_id INTEGER NOT NULL REFERENCES user_queries(query_id),
    response_text TEXT NOT NULL,
    response_timestamp TIMESTAMP NOT NULL,
    tools_used TEXT NOT NULL DEFAULT '[]',
    execution_time_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS query_stocks (
    id INTEGER PRIMARY KEY,
    query_id INTEGER NOT NULL REFERENCES user_queries(query_id),
    stock_symbol TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_favorites_user ON favorite_stocks(user_id);
CREATE INDEX IF NOT EXISTS idx_queries_user ON user_queries(user_id);
CREATE INDEX IF NOT EXISTS idx_queries_timestamp ON user_queries(query_timestamp);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	for _, table := range counterTables {
		if _, err := s.db.ExecContext(ctx, `
INSERT INTO id_counters (table_name, last_id) VALUES (?, 0)
ON CONFLICT(table_name) DO NOTHING
`, table); err != nil {
			return fmt.Errorf("seed id counter %s: %w", table, err)
		}
	}
	return nil
}

// withTx runs fn in an immediate transaction (see _txlock in the DSN), so
// the counter bump and the insert that consumes it commit together.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nextID(ctx context.Context, tx *sqlx.Tx, table string) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
UPDATE id_counters SET last_id = last_id + 1
WHERE table_name = ?
RETURNING last_id
`, table)
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", table, err)
	}
	return id, nil
}

// CreateUser returns the existing user when the email is already known.
func (s *Store) CreateUser(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	var user models.User
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &user, `SELECT user_id, email, created_at FROM users WHERE email = ?`, email)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup user: %w", err)
		}

		id, err := nextID(ctx, tx, tableUsers)
		if err != nil {
			return err
		}
		user = models.User{ID: id, Email: email, CreatedAt: s.now()}
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (user_id, email, created_at) VALUES (?, ?, ?)`,
			user.ID, user.Email, user.CreatedAt); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT user_id, email, created_at FROM users WHERE email = ?`, strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// AddFavorite enforces the per-user cap and (user, symbol) uniqueness inside
// one immediate transaction.
func (s *Store) AddFavorite(ctx context.Context, userID int64, symbol string, low, high *float64) (*models.FavoriteStock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("stock symbol is required")
	}

	fav := models.FavoriteStock{
		UserID:             userID,
		Symbol:             symbol,
		PriceThresholdLow:  low,
		PriceThresholdHigh: high,
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM favorite_stocks WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("count favorites: %w", err)
		}
		if count >= consts.MaxFavoritesPerUser {
			return ErrFavoritesLimit
		}

		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM favorite_stocks WHERE user_id = ? AND stock_symbol = ?`, userID, symbol); err != nil {
			return fmt.Errorf("check favorite: %w", err)
		}
		if exists > 0 {
			return ErrDuplicateFavorite
		}

		id, err := nextID(ctx, tx, tableFavorites)
		if err != nil {
			return err
		}
		fav.ID = id
		fav.AddedAt = s.now()
		if _, err := tx.ExecContext(ctx, `
INSERT INTO favorite_stocks (favorite_id, user_id, stock_symbol, price_threshold_low, price_threshold_high, added_at)
VALUES (?, ?, ?, ?, ?, ?)
`, fav.ID, fav.UserID, fav.Symbol, fav.PriceThresholdLow, fav.PriceThresholdHigh, fav.AddedAt); err != nil {
			return fmt.Errorf("insert favorite: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &fav, nil
}

// RemoveFavorite reports whether a row was deleted. Removing a symbol that
// is not a favorite is not an error.
func (s *Store) RemoveFavorite(ctx context.Context, userID int64, symbol string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorite_stocks WHERE user_id = ? AND stock_symbol = ?`,
		userID, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// UpdateThresholds overwrites both thresholds; a nil bound clears it.
func (s *Store) UpdateThresholds(ctx context.Context, userID int64, symbol string, low, high *float64) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE favorite_stocks
SET price_threshold_low = ?, price_threshold_high = ?
WHERE user_id = ? AND stock_symbol = ?
`, low, high, userID, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return fmt.Errorf("update thresholds: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

// ListFavorites returns the newest favorites first.
func (s *Store) ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteStock, error) {
	favs := []models.FavoriteStock{}
	err := s.db.SelectContext(ctx, &favs, `
SELECT favorite_id, user_id, stock_symbol, price_threshold_low, price_threshold_high, added_at
FROM favorite_stocks
WHERE user_id = ?
ORDER BY added_at DESC, favorite_id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favs, nil
}

func (s *Store) UsersWithFavorites(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, `
SELECT u.user_id, u.email, u.created_at
FROM users u
WHERE EXISTS (SELECT 1 FROM favorite_stocks f WHERE f.user_id = u.user_id)
ORDER BY u.user_id
`)
	if err != nil {
		return nil, fmt.Errorf("list users with favorites: %w", err)
	}
	return users, nil
}

func (s *Store) LogQuery(ctx context.Context, userID int64, text, queryType string) (int64, error) {
	if queryType == "" {
		queryType = consts.QueryTypeMixed
	}
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if id, err = nextID(ctx, tx, tableQueries); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO user_queries (query_id, user_id, query_text, query_timestamp, query_type)
VALUES (?, ?, ?, ?, ?)
`, id, userID, text, s.now(), queryType); err != nil {
			return fmt.Errorf("insert query: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *Store) LogResponse(ctx context.Context, queryID int64, text string, toolsUsed []string, elapsedMS int64) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if id, err = nextID(ctx, tx, tableResponses); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO agent_responses (response_id, query_id, response_text, response_timestamp, tools_used, execution_time_ms)
VALUES (?, ?, ?, ?, ?, ?)
`, id, queryID, text, s.now(), models.ToolList(toolsUsed), elapsedMS); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *Store) LogQueryStocks(ctx context.Context, queryID int64, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, symbol := range symbols {
			id, err := nextID(ctx, tx, tableQueryStocks)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO query_stocks (id, query_id, stock_symbol) VALUES (?, ?, ?)`,
				id, queryID, strings.ToUpper(symbol)); err != nil {
				return fmt.Errorf("insert query stock: %w", err)
			}
		}
		return nil
	})
}

// QueryHistory returns the most recent answered queries first.
func (s *Store) QueryHistory(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = consts.DefaultHistoryLimit
	}
	entries := []models.HistoryEntry{}
	err := s.db.SelectContext(ctx, &entries, `
SELECT q.query_text, q.query_timestamp, r.response_text, r.tools_used, r.execution_time_ms
FROM user_queries q
JOIN agent_responses r ON q.query_id = r.query_id
WHERE q.user_id = ?
ORDER BY q.query_timestamp DESC, q.query_id DESC
LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return entries, nil
}

func (s *Store) ResponsesForQuery(ctx context.Context, queryID int64) ([]models.Response, error) {
	responses := []models.Response{}
	err := s.db.SelectContext(ctx, &responses, `
SELECT response_id, query_id, response_text, response_timestamp, tools_used, execution_time_ms
FROM agent_responses
WHERE query_id = ?
ORDER BY response_id
`, queryID)
	if err != nil {
		return nil, fmt.Errorf("responses for query: %w", err)
	}
	return responses, nil
}

func (s *Store) QueryStocks(ctx context.Context, queryID int64) ([]string, error) {
	symbols := []string{}
	if err := s.db.SelectContext(ctx, &symbols, `SELECT stock_symbol FROM query_stocks WHERE query_id = ? ORDER BY id`, queryID); err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	return symbols, nil
}

func (s *Store) QueriesForUser(ctx context.Context, userID int64) ([]models.Query, error) {
	queries := []models.Query{}
	err := s.db.SelectContext(ctx, &queries, `
SELECT query_id, user_id, query_text, query_timestamp, query_type
FROM user_queries
WHERE user_id = ?
ORDER BY query_id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("queries for user: %w", err)
	}
	return queries, nil
}
