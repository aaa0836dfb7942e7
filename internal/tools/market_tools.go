package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/dataflows"
	"github.com/dyike/finreact/internal/models"
)

var symbolParams = schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
	"symbol": {
		Type:     "string",
		Desc:     "The stock ticker symbol, e.g. AAPL",
		Required: true,
	},
})

func newStockDataTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetStockData,
			Desc:        "Get the most recent daily open, high, low, close and volume for a stock, with the change from open to close",
			ParamsOneOf: symbolParams,
		},
		func(ctx context.Context, input models.SymbolInput) (any, error) {
			symbol := dataflows.NormalizeSymbol(input.Symbol)
			q, err := d.Quotes.DailyQuote(ctx, symbol)
			if err != nil {
				return models.ErrorPayload{Symbol: symbol, Error: err.Error()}, nil
			}
			return q, nil
		},
	)
}

func newBalanceSheetTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetBalanceSheet,
			Desc:        "Get the annual and quarterly balance sheets of a company",
			ParamsOneOf: symbolParams,
		},
		func(ctx context.Context, input models.SymbolInput) (any, error) {
			symbol := dataflows.NormalizeSymbol(input.Symbol)
			raw, err := d.Statements.BalanceSheet(ctx, symbol)
			if err != nil {
				return models.ErrorPayload{Symbol: symbol, Error: err.Error()}, nil
			}
			return raw, nil
		},
	)
}

func newIncomeStatementTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name:        consts.ToolGetIncomeStatement,
			Desc:        "Get the annual and quarterly income statements of a company",
			ParamsOneOf: symbolParams,
		},
		func(ctx context.Context, input models.SymbolInput) (any, error) {
			symbol := dataflows.NormalizeSymbol(input.Symbol)
			raw, err := d.Statements.IncomeStatement(ctx, symbol)
			if err != nil {
				return models.ErrorPayload{Symbol: symbol, Error: err.Error()}, nil
			}
			return raw, nil
		},
	)
}
