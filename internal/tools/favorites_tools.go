package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/dataflows"
	"github.com/dyike/finreact/internal/models"
	"github.com/dyike/finreact/internal/storage"
)

var (
	userIDParam = &schema.ParameterInfo{
		Type: "integer",
		Desc: "The user's id. Optional in a signed-in session",
	}
	stockSymbolParam = &schema.ParameterInfo{
		Type:     "string",
		Desc:     "The stock ticker symbol",
		Required: true,
	}
	lowParam = &schema.ParameterInfo{
		Type: "number",
		Desc: "Alert when the close is at or below this price",
	}
	highParam = &schema.ParameterInfo{
		Type: "number",
		Desc: "Alert when the close is at or above this price",
	}
)

// resolveUser pins a session-bound conversation to its own user; without a
// session the model must name the user.
func resolveUser(ctx context.Context, requested models.UserID) (int64, error) {
	if u, ok := SessionUserFrom(ctx); ok {
		return u.ID, nil
	}
	if requested <= 0 {
		return 0, errors.New("user_id is required")
	}
	return int64(requested), nil
}

func failure(format string, args ...interface{}) models.ActionResult {
	return models.ActionResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

func newGetFavoritesTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolGetUserFavorites,
			Desc: "List the user's favorite stocks with their alert thresholds",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_id": userIDParam,
			}),
		},
		func(ctx context.Context, input models.UserInput) (any, error) {
			userID, err := resolveUser(ctx, input.UserID)
			if err != nil {
				return models.ErrorPayload{Error: err.Error()}, nil
			}
			favs, err := d.Store.ListFavorites(ctx, userID)
			if err != nil {
				return models.ErrorPayload{Error: err.Error()}, nil
			}
			return favs, nil
		},
	)
}

func newAddFavoriteTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolAddFavoriteStock,
			Desc: fmt.Sprintf("Add a stock to the user's favorites (at most %d), optionally with low/high price alerts", consts.MaxFavoritesPerUser),
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_id":              userIDParam,
				"stock_symbol":         stockSymbolParam,
				"price_threshold_low":  lowParam,
				"price_threshold_high": highParam,
			}),
		},
		func(ctx context.Context, input models.FavoriteInput) (models.ActionResult, error) {
			userID, err := resolveUser(ctx, input.UserID)
			if err != nil {
				return failure("%v", err), nil
			}
			symbol := dataflows.NormalizeSymbol(input.StockSymbol)
			if err := dataflows.ValidateSymbol(symbol); err != nil {
				return failure("%v", err), nil
			}

			_, err = d.Store.AddFavorite(ctx, userID, symbol, input.PriceThresholdLow, input.PriceThresholdHigh)
			switch {
			case errors.Is(err, storage.ErrFavoritesLimit):
				return failure("Maximum of %d favorite stocks reached. Remove one before adding %s.", consts.MaxFavoritesPerUser, symbol), nil
			case errors.Is(err, storage.ErrDuplicateFavorite):
				return failure("%s is already in favorites", symbol), nil
			case err != nil:
				return failure("Failed to add %s: %v", symbol, err), nil
			}
			return models.ActionResult{Success: true, Message: fmt.Sprintf("Added %s to favorites", symbol)}, nil
		},
	)
}

func newRemoveFavoriteTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolRemoveFavoriteStock,
			Desc: "Remove a stock from the user's favorites",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_id":      userIDParam,
				"stock_symbol": stockSymbolParam,
			}),
		},
		func(ctx context.Context, input models.RemoveFavoriteInput) (models.ActionResult, error) {
			userID, err := resolveUser(ctx, input.UserID)
			if err != nil {
				return failure("%v", err), nil
			}
			symbol := dataflows.NormalizeSymbol(input.StockSymbol)
			removed, err := d.Store.RemoveFavorite(ctx, userID, symbol)
			if err != nil {
				return failure("Failed to remove %s: %v", symbol, err), nil
			}
			if !removed {
				return models.ActionResult{Success: true, Message: fmt.Sprintf("%s was not in favorites", symbol)}, nil
			}
			return models.ActionResult{Success: true, Message: fmt.Sprintf("Removed %s from favorites", symbol)}, nil
		},
	)
}

func newUpdateThresholdsTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolUpdateStockThresholds,
			Desc: "Set the low/high price alerts of a favorite stock. An omitted bound is cleared",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_id":              userIDParam,
				"stock_symbol":         stockSymbolParam,
				"price_threshold_low":  lowParam,
				"price_threshold_high": highParam,
			}),
		},
		func(ctx context.Context, input models.FavoriteInput) (models.ActionResult, error) {
			userID, err := resolveUser(ctx, input.UserID)
			if err != nil {
				return failure("%v", err), nil
			}
			symbol := dataflows.NormalizeSymbol(input.StockSymbol)
			err = d.Store.UpdateThresholds(ctx, userID, symbol, input.PriceThresholdLow, input.PriceThresholdHigh)
			switch {
			case errors.Is(err, storage.ErrFavoriteNotFound):
				return failure("%s is not in favorites", symbol), nil
			case err != nil:
				return failure("Failed to update %s: %v", symbol, err), nil
			}
			return models.ActionResult{Success: true, Message: fmt.Sprintf("Updated thresholds for %s", symbol)}, nil
		},
	)
}

func newQueryHistoryTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolGetQueryHistory,
			Desc: "Get the user's most recent questions and the answers given",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_id": userIDParam,
				"limit": {
					Type: "integer",
					Desc: fmt.Sprintf("How many entries to return (default %d)", consts.DefaultHistoryLimit),
				},
			}),
		},
		func(ctx context.Context, input models.HistoryInput) (any, error) {
			userID, err := resolveUser(ctx, input.UserID)
			if err != nil {
				return models.ErrorPayload{Error: err.Error()}, nil
			}
			limit := input.Limit
			if limit <= 0 {
				limit = consts.DefaultHistoryLimit
			}
			entries, err := d.Store.QueryHistory(ctx, userID, limit)
			if err != nil {
				return models.ErrorPayload{Error: err.Error()}, nil
			}
			return entries, nil
		},
	)
}
