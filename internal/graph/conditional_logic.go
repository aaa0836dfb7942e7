package graph

import (
	"context"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/consts"
)

// Phase is where a conversation currently sits in the agent/tools cycle.
type Phase int

const (
	AwaitingModel Phase = iota
	AwaitingTools
	Done
)

func (p Phase) String() string {
	switch p {
	case AwaitingModel:
		return "awaiting_model"
	case AwaitingTools:
		return "awaiting_tools"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// NextPhase classifies a model response: any tool call request sends the
// conversation to the tools node, a plain answer ends it.
func NextPhase(msg *schema.Message) Phase {
	if msg != nil && len(msg.ToolCalls) > 0 {
		return AwaitingTools
	}
	return Done
}

func agentHandOff(ctx context.Context, msg *schema.Message) (string, error) {
	if NextPhase(msg) == AwaitingTools {
		return consts.ToolsNode, nil
	}
	return compose.END, nil
}
