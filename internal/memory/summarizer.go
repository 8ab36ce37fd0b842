package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
)

// summaryMaxTokens is the maximum conversation length sent for summarization
// (in tokens, estimated at 4 characters each).
const summaryMaxTokens = 8000

// ChatSummarizer produces conversation summaries using GPT-4o.
type ChatSummarizer struct {
	client    *openai.Client
	maxTokens int
}

// NewChatSummarizer creates a summarizer with the given OpenAI client.
func NewChatSummarizer(client *openai.Client) *ChatSummarizer {
	return &ChatSummarizer{
		client:    client,
		maxTokens: summaryMaxTokens,
	}
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// Summarize condenses a role-tagged conversation transcript into one sentence.
func (s *ChatSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	truncated := transcript
	if maxChars := s.maxTokens * 4; len(truncated) > maxChars {
		truncated = truncated[:maxChars]
	}

	prompt := fmt.Sprintf(`Summarize this conversation in one sentence capturing what the user asked about and what was decided.

Conversation:
%s

Respond in JSON format:
{"summary": "One sentence description of the conversation"}`, truncated)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModelGPT4o,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	var parsed summaryResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return parsed.Summary, nil
}
