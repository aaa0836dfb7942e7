package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/finreact/consts"
)

// scriptedModel answers each Generate call with the next scripted step.
type scriptedModel struct {
	mu     sync.Mutex
	steps  []func(in []*schema.Message) *schema.Message
	calls  int
	inputs [][]*schema.Message
	bound  []*schema.ToolInfo
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	if m.calls >= len(m.steps) {
		return nil, fmt.Errorf("unexpected model call %d", m.calls+1)
	}
	step := m.steps[m.calls]
	m.calls++
	return step(in), nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(ts []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.bound = ts
	return m, nil
}

func callTool(id, name, args string) func([]*schema.Message) *schema.Message {
	return func([]*schema.Message) *schema.Message {
		return schema.AssistantMessage("", []schema.ToolCall{{
			ID:       id,
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}})
	}
}

func answer(text string) func([]*schema.Message) *schema.Message {
	return func([]*schema.Message) *schema.Message {
		return schema.AssistantMessage(text, nil)
	}
}

type quoteArgs struct {
	Symbol string `json:"symbol"`
}

type recordingTool struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingTool) build() tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolGetStockData,
			Desc: "quote",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {Type: "string", Required: true},
			}),
		},
		func(_ context.Context, in quoteArgs) (string, error) {
			r.mu.Lock()
			r.calls = append(r.calls, in.Symbol)
			r.mu.Unlock()
			return fmt.Sprintf(`{"symbol":%q,"close":435.5}`, in.Symbol), nil
		},
	)
}

func TestLoopSingleQuote(t *testing.T) {
	ctx := context.Background()
	rec := &recordingTool{}
	m := &scriptedModel{steps: []func([]*schema.Message) *schema.Message{
		callTool("call_1", consts.ToolGetStockData, `{"symbol":"QQQ"}`),
		func(in []*schema.Message) *schema.Message {
			last := in[len(in)-1]
			return schema.AssistantMessage("QQQ closed at 435.50 ("+last.Content+")", nil)
		},
	}}

	loop, err := NewLoop(ctx, m, []tool.BaseTool{rec.build()}, WithMaxTurns(5))
	require.NoError(t, err)
	require.Len(t, m.bound, 1)
	assert.Equal(t, consts.ToolGetStockData, m.bound[0].Name)

	res, err := loop.Run(ctx, Seed{Query: "What is the current price of QQQ?", UserID: 1, Email: "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, []string{"QQQ"}, rec.calls)
	assert.Equal(t, []string{consts.ToolGetStockData}, res.ToolsUsed)
	assert.Equal(t, 2, res.Turns)
	assert.Contains(t, res.Answer, "435.50")

	// second model call sees system, user, assistant tool call, tool result
	require.Len(t, m.inputs, 2)
	second := m.inputs[1]
	require.Len(t, second, 4)
	assert.Equal(t, schema.System, second[0].Role)
	assert.Equal(t, schema.User, second[1].Role)
	assert.Equal(t, schema.Tool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
}

func TestLoopRecordsToolsInOrderAcrossTurns(t *testing.T) {
	ctx := context.Background()
	rec := &recordingTool{}
	m := &scriptedModel{steps: []func([]*schema.Message) *schema.Message{
		func([]*schema.Message) *schema.Message {
			return schema.AssistantMessage("", []schema.ToolCall{
				{ID: "a", Function: schema.FunctionCall{Name: consts.ToolGetStockData, Arguments: `{"symbol":"AAPL"}`}},
				{ID: "b", Function: schema.FunctionCall{Name: consts.ToolGetStockData, Arguments: `{"symbol":"MSFT"}`}},
			})
		},
		callTool("c", consts.ToolGetStockData, `{"symbol":"NVDA"}`),
		answer("done"),
	}}

	loop, err := NewLoop(ctx, m, []tool.BaseTool{rec.build()})
	require.NoError(t, err)
	res, err := loop.Run(ctx, Seed{Query: "AAPL MSFT then NVDA"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, rec.calls)
	assert.Equal(t, []string{consts.ToolGetStockData, consts.ToolGetStockData, consts.ToolGetStockData}, res.ToolsUsed)
	assert.Equal(t, "done", res.Answer)
}

func TestLoopNoToolsAnswersDirectly(t *testing.T) {
	ctx := context.Background()
	m := &scriptedModel{steps: []func([]*schema.Message) *schema.Message{answer("hello")}}
	loop, err := NewLoop(ctx, m, []tool.BaseTool{(&recordingTool{}).build()})
	require.NoError(t, err)

	res, err := loop.Run(ctx, Seed{Query: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Answer)
	assert.Empty(t, res.ToolsUsed)
	assert.Equal(t, 1, res.Turns)
}

func TestLoopMaxTurns(t *testing.T) {
	ctx := context.Background()
	var steps []func([]*schema.Message) *schema.Message
	for i := 0; i < 10; i++ {
		steps = append(steps, callTool(fmt.Sprintf("call_%d", i), consts.ToolGetStockData, `{"symbol":"SPY"}`))
	}
	m := &scriptedModel{steps: steps}
	rec := &recordingTool{}

	loop, err := NewLoop(ctx, m, []tool.BaseTool{rec.build()}, WithMaxTurns(3))
	require.NoError(t, err)

	res, err := loop.Run(ctx, Seed{Query: "loop forever"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxTurnsExceeded)
	assert.Equal(t, 3, m.calls)
	assert.Len(t, rec.calls, 3)
	require.NotNil(t, res)
	assert.Len(t, res.ToolsUsed, 3)
}

func TestLoopUnknownToolBecomesPayload(t *testing.T) {
	ctx := context.Background()
	m := &scriptedModel{steps: []func([]*schema.Message) *schema.Message{
		callTool("x", "get_crypto_price", `{"symbol":"BTC"}`),
		func(in []*schema.Message) *schema.Message {
			return schema.AssistantMessage(in[len(in)-1].Content, nil)
		},
	}}
	loop, err := NewLoop(ctx, m, []tool.BaseTool{(&recordingTool{}).build()})
	require.NoError(t, err)

	res, err := loop.Run(ctx, Seed{Query: "BTC?"})
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Answer), &payload))
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, []string{"get_crypto_price"}, res.ToolsUsed)
}

func TestSeedMessages(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	msgs, err := SeedMessages(context.Background(), Seed{Query: "price of {AAPL}?", UserID: 42, Email: "x@example.com", Now: now})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "2024-05-06")
	assert.Contains(t, msgs[0].Content, "user_id 42")
	assert.Contains(t, msgs[0].Content, "x@example.com")
	assert.Equal(t, "price of {AAPL}?", msgs[1].Content)

	msgs, err = SeedMessages(context.Background(), Seed{Query: "hi", Now: now})
	require.NoError(t, err)
	assert.True(t, strings.Contains(msgs[0].Content, "No user is signed in"))
}

func TestNextPhase(t *testing.T) {
	assert.Equal(t, Done, NextPhase(schema.AssistantMessage("x", nil)))
	assert.Equal(t, Done, NextPhase(nil))
	assert.Equal(t, AwaitingTools, NextPhase(schema.AssistantMessage("", []schema.ToolCall{{ID: "1"}})))
	assert.Equal(t, "awaiting_tools", AwaitingTools.String())
}
