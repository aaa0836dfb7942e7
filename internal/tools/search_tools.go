package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/models"
)

func newWebSearchTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolWebSearch,
			Desc: "Search the web. Use for recent news and anything the market data tools do not cover",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The search query",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.SearchInput) (any, error) {
			text, err := d.Search.Search(ctx, input.Query)
			if err != nil {
				return models.ErrorPayload{Error: err.Error()}, nil
			}
			return text, nil
		},
	)
}
