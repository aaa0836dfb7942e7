package graph

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	ecmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/internal/logger"
)

// LoggerCallback logs every node start/end/error of the loop graph.
type LoggerCallback struct {
	log *logger.Logger

	// OnToolStart, when set, is told about each tool call as it begins.
	OnToolStart func(name, args string)
}

func NewLoggerCallback(log *logger.Logger) *LoggerCallback {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggerCallback{log: log}
}

func (cb *LoggerCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if info == nil {
		return ctx
	}
	switch info.Component {
	case components.ComponentOfTool:
		args := ""
		if in := tool.ConvCallbackInput(input); in != nil {
			args = in.ArgumentsInJSON
		}
		cb.log.Debugw("tool start", "tool", info.Name, "args", args)
		if cb.OnToolStart != nil {
			cb.OnToolStart(info.Name, args)
		}
	case components.ComponentOfChatModel:
		if in := ecmodel.ConvCallbackInput(input); in != nil {
			cb.log.Debugw("model start", "node", info.Name, "messages", len(in.Messages))
		}
	default:
		cb.log.Debugw("node start", "node", info.Name, "type", info.Type, "component", info.Component)
	}
	return ctx
}

func (cb *LoggerCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if info == nil {
		return ctx
	}
	switch info.Component {
	case components.ComponentOfChatModel:
		out := ecmodel.ConvCallbackOutput(output)
		if out == nil || out.Message == nil {
			return ctx
		}
		fields := []interface{}{"node", info.Name, "tool_calls", len(out.Message.ToolCalls)}
		if out.TokenUsage != nil {
			fields = append(fields, "prompt_tokens", out.TokenUsage.PromptTokens, "completion_tokens", out.TokenUsage.CompletionTokens)
		}
		cb.log.Debugw("model end", fields...)
	case components.ComponentOfTool:
		if out := tool.ConvCallbackOutput(output); out != nil {
			cb.log.Debugw("tool end", "tool", info.Name, "bytes", len(out.Response))
		}
	}
	return ctx
}

func (cb *LoggerCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	name := ""
	if info != nil {
		name = info.Name
	}
	cb.log.Warnw("node error", "node", name, "error", err)
	return ctx
}

func (cb *LoggerCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (cb *LoggerCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	go func() {
		defer output.Close()
		defer func() {
			if err := recover(); err != nil {
				cb.log.Errorw("stream callback panic", "error", err)
			}
		}()
		for {
			_, err := output.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				cb.log.Warnw("stream recv error", "error", err)
				return
			}
		}
	}()
	return ctx
}
