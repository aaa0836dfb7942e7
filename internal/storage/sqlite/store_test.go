package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "finreact.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateUserIsIdempotentOnEmail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.CreateUser(ctx, "ann@example.com")
	require.NoError(t, err)
	second, err := s.CreateUser(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int
	require.NoError(t, s.db.Get(&count, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 1, count)

	other, err := s.CreateUser(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Greater(t, other.ID, first.ID)

	found, err := s.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, other.ID, found.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddFavoriteEnforcesCap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user, err := s.CreateUser(ctx, "cap@example.com")
	require.NoError(t, err)

	for _, sym := range []string{"AAPL", "MSFT", "GOOG", "AMZN", "NVDA"} {
		_, err := s.AddFavorite(ctx, user.ID, sym, nil, nil)
		require.NoError(t, err)
	}

	_, err = s.AddFavorite(ctx, user.ID, "TSLA", floatPtr(100), nil)
	assert.ErrorIs(t, err, ErrFavoritesLimit)

	favs, err := s.ListFavorites(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favs, 5)
	for _, f := range favs {
		assert.NotEqual(t, "TSLA", f.Symbol)
	}
}

func TestAddFavoriteRejectsDuplicateAndUppercases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user, err := s.CreateUser(ctx, "dup@example.com")
	require.NoError(t, err)

	fav, err := s.AddFavorite(ctx, user.ID, " aapl ", floatPtr(150), floatPtr(200))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", fav.Symbol)

	_, err = s.AddFavorite(ctx, user.ID, "AAPL", nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateFavorite)

	favs, err := s.ListFavorites(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	require.NotNil(t, favs[0].PriceThresholdLow)
	assert.Equal(t, 150.0, *favs[0].PriceThresholdLow)
	assert.Equal(t, 200.0, *favs[0].PriceThresholdHigh)
}

func TestRemoveMissingFavoriteIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user, err := s.CreateUser(ctx, "rm@example.com")
	require.NoError(t, err)
	_, err = s.AddFavorite(ctx, user.ID, "IBM", nil, nil)
	require.NoError(t, err)

	removed, err := s.RemoveFavorite(ctx, user.ID, "ORCL")
	require.NoError(t, err)
	assert.False(t, removed)

	favs, err := s.ListFavorites(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, favs, 1)

	removed, err = s.RemoveFavorite(ctx, user.ID, "ibm")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestUpdateThresholds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user, err := s.CreateUser(ctx, "th@example.com")
	require.NoError(t, err)
	_, err = s.AddFavorite(ctx, user.ID, "QQQ", floatPtr(300), floatPtr(500))
	require.NoError(t, err)

	require.NoError(t, s.UpdateThresholds(ctx, user.ID, "qqq", floatPtr(350), nil))

	favs, err := s.ListFavorites(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, 350.0, *favs[0].PriceThresholdLow)
	assert.Nil(t, favs[0].PriceThresholdHigh)

	err = s.UpdateThresholds(ctx, user.ID, "SPY", floatPtr(1), nil)
	assert.ErrorIs(t, err, ErrFavoriteNotFound)
}

func TestListFavoritesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	user, err := s.CreateUser(ctx, "order@example.com")
	require.NoError(t, err)
	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		_, err := s.AddFavorite(ctx, user.ID, sym, nil, nil)
		require.NoError(t, err)
	}

	favs, err := s.ListFavorites(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favs, 3)
	assert.Equal(t, []string{"CCC", "BBB", "AAA"}, []string{favs[0].Symbol, favs[1].Symbol, favs[2].Symbol})
}

func TestQueryResponseHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user, err := s.CreateUser(ctx, "hist@example.com")
	require.NoError(t, err)

	var queryIDs []int64
	for i, text := range []string{"price of AAPL?", "news on MSFT", "compare QQQ and SPY"} {
		qid, err := s.LogQuery(ctx, user.ID, text, "")
		require.NoError(t, err)
		queryIDs = append(queryIDs, qid)
		_, err = s.LogResponse(ctx, qid, "answer", []string{"get_stock_data", "web_search"}[:i%2+1], int64(100*(i+1)))
		require.NoError(t, err)
	}
	assert.Less(t, queryIDs[0], queryIDs[1])
	assert.Less(t, queryIDs[1], queryIDs[2])

	history, err := s.QueryHistory(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "compare QQQ and SPY", history[0].QueryText)
	assert.Equal(t, []string{"get_stock_data"}, []string(history[0].ToolsUsed))
	assert.Equal(t, int64(300), history[0].ExecutionTimeMS)
	assert.Equal(t, []string{"get_stock_data", "web_search"}, []string(history[1].ToolsUsed))

	queries, err := s.QueriesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, queries, 3)
	assert.Equal(t, "mixed", queries[0].Type)

	responses, err := s.ResponsesForQuery(ctx, queryIDs[0])
	require.NoError(t, err)
	assert.Len(t, responses, 1)
}

func TestLogQueryStocksUppercases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user, err := s.CreateUser(ctx, "qs@example.com")
	require.NoError(t, err)
	qid, err := s.LogQuery(ctx, user.ID, "AAPL vs msft", "mixed")
	require.NoError(t, err)

	require.NoError(t, s.LogQueryStocks(ctx, qid, []string{"AAPL", "msft"}))
	symbols, err := s.QueryStocks(ctx, qid)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestUsersWithFavorites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	withFav, err := s.CreateUser(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "b@example.com")
	require.NoError(t, err)
	_, err = s.AddFavorite(ctx, withFav.ID, "AAPL", nil, nil)
	require.NoError(t, err)

	users, err := s.UsersWithFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a@example.com", users[0].Email)
}

func TestConcurrentAddsNeverExceedCap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user, err := s.CreateUser(ctx, "race@example.com")
	require.NoError(t, err)

	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			_, _ = s.AddFavorite(ctx, user.ID, sym, nil, nil)
		}(sym)
	}
	wg.Wait()

	favs, err := s.ListFavorites(ctx, user.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(favs), 5)

	var ids []int64
	require.NoError(t, s.db.Select(&ids, `SELECT favorite_id FROM favorite_stocks`))
	seen := map[int64]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}
