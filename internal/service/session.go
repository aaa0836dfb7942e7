package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/graph"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/metrics"
	"github.com/dyike/finreact/internal/models"
	"github.com/dyike/finreact/internal/tools"
)

var tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// logTimeout bounds the writes made after the conversation has ended.
const logTimeout = 10 * time.Second

// Conversation runs one seeded tool-calling conversation.
type Conversation interface {
	Run(ctx context.Context, seed graph.Seed) (*graph.Result, error)
}

// QueryLog is the slice of the store a session writes to.
type QueryLog interface {
	LogQuery(ctx context.Context, userID int64, text, queryType string) (int64, error)
	LogResponse(ctx context.Context, queryID int64, text string, toolsUsed []string, elapsedMS int64) (int64, error)
	LogQueryStocks(ctx context.Context, queryID int64, symbols []string) error
}

// Outcome of one session.
type Outcome struct {
	RunID     string
	QueryID   int64
	Answer    string
	ToolsUsed []string
	Tickers   []string
	Elapsed   time.Duration
}

// Runner turns a user's question into a logged Query/Response pair.
type Runner struct {
	store   QueryLog
	loop    Conversation
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time
}

type RunnerOption func(*Runner)

func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

func WithLogger(log *logger.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

func NewRunner(store QueryLog, loop Conversation, opts ...RunnerOption) *Runner {
	r := &Runner{
		store: store,
		loop:  loop,
		log:   logger.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Component("session")
	return r
}

// Run logs the query, drives the conversation and logs exactly one response
// for it, including when the conversation fails.
func (r *Runner) Run(ctx context.Context, text string, user models.User) (*Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("query text is empty")
	}

	runID := uuid.NewString()
	log := r.log.With("run_id", runID, "user_id", user.ID)

	queryID, err := r.store.LogQuery(ctx, user.ID, text, consts.QueryTypeMixed)
	if err != nil {
		return nil, fmt.Errorf("log query: %w", err)
	}
	log.Infow("query logged", "query_id", queryID)

	runCtx := tools.WithSessionUser(ctx, tools.SessionUser{ID: user.ID, Email: user.Email})
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, r.timeout)
		defer cancel()
	}

	start := r.now()
	res, loopErr := r.loop.Run(runCtx, graph.Seed{
		Query:  text,
		UserID: user.ID,
		Email:  user.Email,
		Now:    start,
	})
	elapsed := r.now().Sub(start)

	out := &Outcome{RunID: runID, QueryID: queryID, Elapsed: elapsed}
	turns := 0
	if res != nil {
		out.ToolsUsed = res.ToolsUsed
		out.Answer = res.Answer
		turns = res.Turns
	}
	metrics.RecordSession(elapsed, turns, loopErr)

	responseText := out.Answer
	if loopErr != nil {
		responseText = "Error: " + loopErr.Error()
	}
	// the caller may have cancelled or the session timed out; the response
	// row is still owed for the query logged above
	logCtx, cancelLog := context.WithTimeout(context.WithoutCancel(ctx), logTimeout)
	defer cancelLog()
	if _, err := r.store.LogResponse(logCtx, queryID, responseText, out.ToolsUsed, elapsed.Milliseconds()); err != nil {
		return out, errors.Join(loopErr, fmt.Errorf("log response: %w", err))
	}

	out.Tickers = ExtractTickers(text)
	if len(out.Tickers) > 0 {
		if err := r.store.LogQueryStocks(logCtx, queryID, out.Tickers); err != nil {
			return out, errors.Join(loopErr, fmt.Errorf("log query stocks: %w", err))
		}
	}

	if loopErr != nil {
		log.Warnw("session failed", "query_id", queryID, "elapsed", elapsed, "error", loopErr)
		return out, loopErr
	}
	log.Infow("session done", "query_id", queryID, "tools", out.ToolsUsed, "elapsed", elapsed)
	return out, nil
}

// ExtractTickers returns the 1-5 letter uppercase tokens of text, first
// occurrence order, without duplicates.
func ExtractTickers(text string) []string {
	matches := tickerPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
