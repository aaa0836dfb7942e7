package tools

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/internal/dataflows"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/mailer"
	"github.com/dyike/finreact/internal/metrics"
	"github.com/dyike/finreact/internal/models"
)

// Store is the slice of the data store the favorites and history tools use.
type Store interface {
	AddFavorite(ctx context.Context, userID int64, symbol string, low, high *float64) (*models.FavoriteStock, error)
	RemoveFavorite(ctx context.Context, userID int64, symbol string) (bool, error)
	UpdateThresholds(ctx context.Context, userID int64, symbol string, low, high *float64) error
	ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteStock, error)
	QueryHistory(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error)
}

type Deps struct {
	Quotes     dataflows.QuoteSource
	Statements dataflows.StatementSource
	Search     dataflows.Searcher
	Store      Store
	Mailer     mailer.Sender
	Log        *logger.Logger
}

// NewRegistry builds the fixed tool set, in the order it is advertised to
// the model.
func NewRegistry(d Deps) ([]tool.BaseTool, error) {
	if d.Quotes == nil || d.Statements == nil || d.Search == nil || d.Store == nil || d.Mailer == nil {
		return nil, errors.New("tools: all dependencies are required")
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	log := d.Log.Component("tools")

	raw := []tool.InvokableTool{
		newStockDataTool(d),
		newBalanceSheetTool(d),
		newIncomeStatementTool(d),
		newWebSearchTool(d),
		newGetFavoritesTool(d),
		newAddFavoriteTool(d),
		newRemoveFavoriteTool(d),
		newUpdateThresholdsTool(d),
		newQueryHistoryTool(d),
		newSendEmailTool(d),
	}

	out := make([]tool.BaseTool, 0, len(raw))
	for _, t := range raw {
		info, err := t.Info(context.Background())
		if err != nil {
			return nil, err
		}
		out = append(out, &safeTool{inner: t, name: info.Name, log: log})
	}
	return out, nil
}

// ToolInfos lists the schemas of a tool set, for binding to a chat model.
func ToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// safeTool turns any error (bad arguments included) into a failure payload
// so a single tool never aborts the conversation.
type safeTool struct {
	inner tool.InvokableTool
	name  string
	log   *logger.Logger
}

func (t *safeTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.inner.Info(ctx)
}

func (t *safeTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	start := time.Now()
	out, err := t.inner.InvokableRun(ctx, argumentsInJSON, opts...)
	metrics.RecordToolExecution(t.name, time.Since(start), err)
	if err != nil {
		t.log.Warnw("tool failed", "tool", t.name, "args", argumentsInJSON, "error", err)
		return models.ActionResult{Success: false, Message: err.Error()}.JSON(), nil
	}
	t.log.Debugw("tool finished", "tool", t.name, "elapsed", time.Since(start))
	return out, nil
}
