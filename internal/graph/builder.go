package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/models"
	"github.com/dyike/finreact/internal/tools"
)

// ErrMaxTurnsExceeded is returned when the model keeps requesting tools past
// the turn budget.
var ErrMaxTurnsExceeded = errors.New("max turns exceeded")

const DefaultMaxTurns = 10

// Result of one conversation.
type Result struct {
	Answer    string
	ToolsUsed []string
	Turns     int
	Messages  []*schema.Message
}

// Loop is the compiled agent ⇄ tools conversation graph.
type Loop struct {
	runnable compose.Runnable[[]*schema.Message, *schema.Message]
	maxTurns int
	log      *logger.Logger
	handlers []callbacks.Handler
}

type LoopOption func(*Loop)

func WithMaxTurns(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxTurns = n
		}
	}
}

func WithLogger(log *logger.Logger) LoopOption {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// WithCallbacks attaches extra eino callback handlers to every run.
func WithCallbacks(hs ...callbacks.Handler) LoopOption {
	return func(l *Loop) {
		l.handlers = append(l.handlers, hs...)
	}
}

// NewLoop binds the tool schemas to the chat model and compiles the graph:
//
//	START → agent ─┬─ tool calls ─→ tools ─→ agent
//	               └─ answer ─────→ END
func NewLoop(ctx context.Context, chatModel model.ToolCallingChatModel, ts []tool.BaseTool, opts ...LoopOption) (*Loop, error) {
	l := &Loop{maxTurns: DefaultMaxTurns, log: logger.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Component("loop")

	infos, err := tools.ToolInfos(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("tool infos: %w", err)
	}
	boundModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               ts,
		ExecuteSequentially: true,
		UnknownToolsHandler: unknownTool,
	})
	if err != nil {
		return nil, fmt.Errorf("tools node: %w", err)
	}

	g := compose.NewGraph[[]*schema.Message, *schema.Message](
		compose.WithGenLocalState(genTranscript),
	)

	maxTurns := l.maxTurns
	agentPre := func(ctx context.Context, in []*schema.Message, state *Transcript) ([]*schema.Message, error) {
		state.Messages = append(state.Messages, in...)
		state.Turns++
		if state.Turns > maxTurns {
			return nil, fmt.Errorf("%w: %d", ErrMaxTurnsExceeded, maxTurns)
		}
		state.Phase = AwaitingModel
		return state.Messages, nil
	}
	agentPost := func(ctx context.Context, out *schema.Message, state *Transcript) (*schema.Message, error) {
		state.Messages = append(state.Messages, out)
		for _, tc := range out.ToolCalls {
			state.ToolsUsed = append(state.ToolsUsed, tc.Function.Name)
		}
		state.Phase = NextPhase(out)
		return out, nil
	}
	toolsPost := func(ctx context.Context, out []*schema.Message, state *Transcript) ([]*schema.Message, error) {
		state.Phase = AwaitingModel
		return out, nil
	}

	_ = g.AddChatModelNode(consts.AgentNode, boundModel,
		compose.WithStatePreHandler(agentPre),
		compose.WithStatePostHandler(agentPost),
		compose.WithNodeName(consts.AgentNode),
	)
	_ = g.AddToolsNode(consts.ToolsNode, toolsNode,
		compose.WithStatePostHandler(toolsPost),
		compose.WithNodeName(consts.ToolsNode),
	)

	_ = g.AddEdge(compose.START, consts.AgentNode)
	_ = g.AddBranch(consts.AgentNode, compose.NewGraphBranch(agentHandOff, map[string]bool{
		consts.ToolsNode: true,
		compose.END:      true,
	}))
	_ = g.AddEdge(consts.ToolsNode, consts.AgentNode)

	r, err := g.Compile(ctx,
		compose.WithGraphName(consts.GraphName),
		compose.WithMaxRunSteps(2*maxTurns+4),
	)
	if err != nil {
		return nil, fmt.Errorf("compile loop graph: %w", err)
	}
	l.runnable = r
	return l, nil
}

// Run drives one conversation to a final answer.
func (l *Loop) Run(ctx context.Context, seed Seed) (*Result, error) {
	in, err := SeedMessages(ctx, seed)
	if err != nil {
		return nil, err
	}

	transcript := &Transcript{}
	ctx = withTranscript(ctx, transcript)

	handlers := append([]callbacks.Handler{NewLoggerCallback(l.log)}, l.handlers...)
	start := time.Now()
	out, err := l.runnable.Invoke(ctx, in, compose.WithCallbacks(handlers...))

	res := &Result{
		ToolsUsed: append([]string(nil), transcript.ToolsUsed...),
		Turns:     transcript.Turns,
		Messages:  transcript.Messages,
	}
	if transcript.Turns > l.maxTurns || errors.Is(err, compose.ErrExceedMaxSteps) {
		err = fmt.Errorf("%w: %d", ErrMaxTurnsExceeded, l.maxTurns)
	}
	if err != nil {
		l.log.Warnw("conversation failed", "turns", res.Turns, "tools", res.ToolsUsed, "error", err)
		return res, err
	}

	transcript.Phase = Done
	res.Answer = out.Content
	l.log.Debugw("conversation done", "turns", res.Turns, "tools", res.ToolsUsed, "elapsed", time.Since(start))
	return res, nil
}

func unknownTool(ctx context.Context, name, input string) (string, error) {
	return models.ActionResult{Success: false, Message: fmt.Sprintf("unknown tool %q", name)}.JSON(), nil
}
