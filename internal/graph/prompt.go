package graph

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/finreact/consts"
	"github.com/dyike/finreact/internal/utils"
)

const systemTpl = `{system_message}

For your reference, the current date is {current_date}.
{user_context}`

// Seed is what a conversation starts from.
type Seed struct {
	Query  string
	UserID int64
	Email  string
	Now    time.Time
}

// SeedMessages renders the system instruction and the user's message.
func SeedMessages(ctx context.Context, seed Seed) ([]*schema.Message, error) {
	systemPrompt, err := utils.LoadPromptWithContext("assistant", map[string]string{
		"MaxFavorites": strconv.Itoa(consts.MaxFavoritesPerUser),
	})
	if err != nil {
		return nil, err
	}

	now := seed.Now
	if now.IsZero() {
		now = time.Now()
	}
	userContext := "No user is signed in; ask for a user_id before using the favorites or history tools."
	if seed.UserID > 0 {
		userContext = fmt.Sprintf("The current user has user_id %d and email %s. Use this user_id for the favorites and history tools.", seed.UserID, seed.Email)
	}

	promptTemp := prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemTpl),
		schema.MessagesPlaceholder("user_input", false),
	)
	return promptTemp.Format(ctx, map[string]any{
		"system_message": systemPrompt,
		"current_date":   now.Format("2006-01-02"),
		"user_context":   userContext,
		"user_input":     []*schema.Message{schema.UserMessage(seed.Query)},
	})
}
