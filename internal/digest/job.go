package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/dataflows"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/mailer"
	"github.com/dyike/finreact/internal/metrics"
	"github.com/dyike/finreact/internal/models"
)

const logTimeout = 10 * time.Second

// Store is the slice of the data store the digest reads and logs to.
type Store interface {
	UsersWithFavorites(ctx context.Context) ([]models.User, error)
	ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteStock, error)
	LogQuery(ctx context.Context, userID int64, text, queryType string) (int64, error)
	LogResponse(ctx context.Context, queryID int64, text string, toolsUsed []string, elapsedMS int64) (int64, error)
}

// Report summarises one digest run.
type Report struct {
	Date    string
	Skipped bool
	Users   int
	Sent    int
	Failed  int
}

type Job struct {
	store    Store
	quotes   dataflows.QuoteSource
	search   dataflows.Searcher
	mailer   mailer.Sender
	settings func() config.DigestSettings
	now      func() time.Time
	log      *logger.Logger
}

type JobOption func(*Job)

// WithSettings makes the job read news_lines and timezone from a live source.
func WithSettings(fn func() config.DigestSettings) JobOption {
	return func(j *Job) {
		if fn != nil {
			j.settings = fn
		}
	}
}

func WithClock(now func() time.Time) JobOption {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

func WithLogger(log *logger.Logger) JobOption {
	return func(j *Job) {
		if log != nil {
			j.log = log
		}
	}
}

func NewJob(store Store, quotes dataflows.QuoteSource, search dataflows.Searcher, sender mailer.Sender, opts ...JobOption) *Job {
	defaults := config.DefaultDigestSettings(config.DigestConfig{Cron: "0 17 * * *", Timezone: "Local", NewsLines: 5})
	j := &Job{
		store:    store,
		quotes:   quotes,
		search:   search,
		mailer:   sender,
		settings: func() config.DigestSettings { return defaults },
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.log = j.log.Component("digest")
	return j
}

// Run sends one digest per user with favorites. Weekends are skipped before
// any fetch. Per-user failures are counted and the run moves on.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	settings := j.settings()
	now := j.now()
	if loc, err := settings.Location(); err == nil {
		now = now.In(loc)
	}
	report := &Report{Date: now.Format("2006-01-02")}

	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		report.Skipped = true
		j.log.Infow("weekend, skipping digest", "date", report.Date, "weekday", wd.String())
		return report, nil
	}

	users, err := j.store.UsersWithFavorites(ctx)
	if err != nil {
		return report, fmt.Errorf("list digest users: %w", err)
	}
	j.log.Infow("digest started", "date", report.Date, "users", len(users))

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Users++
		sent, err := j.runUser(ctx, user, now, settings.NewsLines)
		if err != nil {
			report.Failed++
			metrics.RecordDigestEmail(false)
			j.log.Warnw("digest failed", "user_id", user.ID, "email", user.Email, "error", err)
			continue
		}
		if !sent {
			continue
		}
		report.Sent++
		metrics.RecordDigestEmail(true)
	}

	j.log.Infow("digest completed", "date", report.Date, "users", report.Users, "sent", report.Sent, "failed", report.Failed)
	return report, nil
}

func (j *Job) runUser(ctx context.Context, user models.User, now time.Time, newsLines int) (bool, error) {
	favorites, err := j.store.ListFavorites(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("list favorites: %w", err)
	}
	if len(favorites) == 0 {
		return false, nil
	}

	items := make([]Item, 0, len(favorites))
	for _, fav := range favorites {
		items = append(items, j.buildItem(ctx, fav, newsLines))
	}

	res := j.mailer.Send(ctx, user.Email, Subject(now), Format(now, items))
	if !res.Success {
		return false, fmt.Errorf("send: %s", res.Message)
	}

	// the email is out; record it even if the run is being cancelled
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logTimeout)
	defer cancel()
	queryID, err := j.store.LogQuery(logCtx, user.ID, consts.DigestQueryText, consts.QueryTypeDailyEmail)
	if err != nil {
		return true, fmt.Errorf("log digest query: %w", err)
	}
	if _, err := j.store.LogResponse(logCtx, queryID, consts.DigestResponseText, consts.DigestToolsUsed, 0); err != nil {
		return true, fmt.Errorf("log digest response: %w", err)
	}
	j.log.Infow("digest sent", "user_id", user.ID, "email", user.Email, "stocks", len(items))
	return true, nil
}

func (j *Job) buildItem(ctx context.Context, fav models.FavoriteStock, newsLines int) Item {
	item := Item{Symbol: fav.Symbol}

	q, err := j.quotes.DailyQuote(ctx, fav.Symbol)
	if err != nil {
		item.Err = err.Error()
		if dataflows.IsNoData(err) {
			item.Err = "no recent price data available"
		}
		j.log.Warnw("quote failed", "symbol", fav.Symbol, "error", err)
		return item
	}
	item.Quote = q
	item.Alerts = CheckAlerts(q, fav)

	if newsLines <= 0 {
		return item
	}
	text, err := j.search.Search(ctx, fav.Symbol+" stock news")
	if err != nil {
		item.NewsErr = err.Error()
		j.log.Warnw("news search failed", "symbol", fav.Symbol, "error", err)
		return item
	}
	item.News = dataflows.ExtractHeadlines(text, newsLines)
	return item
}
