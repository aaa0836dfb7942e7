package graph

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Transcript is the per-run local state of the loop graph.
type Transcript struct {
	Messages  []*schema.Message
	ToolsUsed []string
	Turns     int
	Phase     Phase
}

type transcriptKey struct{}

func withTranscript(ctx context.Context, t *Transcript) context.Context {
	return context.WithValue(ctx, transcriptKey{}, t)
}

// genTranscript hands the graph the transcript Run allocated, so it stays
// readable after a failed invocation.
func genTranscript(ctx context.Context) *Transcript {
	if t, ok := ctx.Value(transcriptKey{}).(*Transcript); ok && t != nil {
		return t
	}
	return &Transcript{}
}
