package extract

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAIClient struct {
	mock.Mock
}

func (m *mockAIClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// textResponse wraps raw model output in the response envelope the client
// unwraps.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:         "msg_test",
		Model:      "claude-haiku-4-5-20251001",
		StopReason: "end_turn",
		Content: []anthropic.ContentBlock{
			{Type: "text", Text: text},
		},
	}
}
