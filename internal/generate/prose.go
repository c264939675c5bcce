package generate

import (
	"context"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ProseClient generates the chronicle's prose through a chat model. This is
// the synchronous service contract: one request, one response.
type ProseClient struct {
	chatModel model.ChatModel
}

// NewProseClient wraps an already-constructed chat model.
func NewProseClient(chatModel model.ChatModel) *ProseClient {
	return &ProseClient{chatModel: chatModel}
}

// Generate sends the prompt and returns the trimmed prose body.
func (c *ProseClient) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := c.chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(req.Prompt),
	})
	if err != nil {
		return "", genErr(ErrRemoteFailure, "prose model call failed", err)
	}

	prose := strings.TrimSpace(resp.Content)
	if prose == "" {
		return "", genErr(ErrMissingOutput, "prose model returned empty content", nil)
	}

	log.Printf("[prose] generated %d chars", len(prose))
	return prose, nil
}
