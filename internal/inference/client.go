package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultMaxTokens = 1000
	defaultTimeout   = 120 * time.Second
)

// Attachment is a binary payload sent alongside the prompt, currently
// always an image.
type Attachment struct {
	MediaType string
	Data      []byte
}

// CompletionRequest is one inference call. MaxTokens caps generation
// length at the backend (zero means the service default); Attachment is
// optional.
type CompletionRequest struct {
	Prompt     string
	Attachment *Attachment
	MaxTokens  int
}

// Completer is the capability the analysis stages consume: one prompt with
// an optional binary attachment in, text out.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Client calls the Anthropic Messages API.
type Client struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	client := anthropic.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)
	return &Client{
		client:  client,
		model:   model,
		timeout: defaultTimeout,
	}
}

// Complete issues a single user message and returns the concatenated text
// blocks of the response.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, 2)
	if req.Attachment != nil {
		encoded := base64.StdEncoding.EncodeToString(req.Attachment.Data)
		blocks = append(blocks, anthropic.NewImageBlockBase64(req.Attachment.MediaType, encoded))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Messages.New(timeoutCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", fmt.Errorf("inference call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("inference backend returned no text")
	}
	return text.String(), nil
}
