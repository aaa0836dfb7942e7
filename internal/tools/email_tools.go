package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/mailer"
	"github.com/dyike/finreact/internal/models"
)

func newSendEmailTool(d Deps) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolSendEmail,
			Desc: "Send a plain-text email. Defaults to the current user's address when recipient_email is omitted",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"recipient_email": {
					Type: "string",
					Desc: "Recipient address",
				},
				"subject": {
					Type:     "string",
					Desc:     "Email subject",
					Required: true,
				},
				"body": {
					Type:     "string",
					Desc:     "Plain-text body",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.EmailInput) (mailer.Result, error) {
			to := strings.TrimSpace(input.RecipientEmail)
			if to == "" {
				if u, ok := SessionUserFrom(ctx); ok {
					to = u.Email
				}
			}
			if to == "" {
				return mailer.Result{Success: false, Message: "recipient_email is required"}, nil
			}
			return d.Mailer.Send(ctx, to, input.Subject, input.Body), nil
		},
	)
}
