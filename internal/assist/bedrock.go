package assist

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/careconnect-ai/platform/pkg/logging"
)

const assistantSystemPrompt = `You are a helpful health assistant for the CareConnect patient dashboard. Explain medical topics in simple, clear language a patient can understand. You are not a doctor: never diagnose, and advise contacting the care team for anything urgent or personal.`

// BedrockConverseAPI is the subset of the Bedrock client the assistant uses.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Turn is one prior exchange in a conversation, oldest first.
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// Assistant answers patient questions with Claude via Bedrock, carrying the
// transcript so follow-up questions keep their context.
type Assistant struct {
	client  BedrockConverseAPI
	modelID string
	logger  *logging.Logger
}

// NewAssistant creates an Assistant. modelID is a Claude model or inference
// profile id.
func NewAssistant(client BedrockConverseAPI, modelID string, logger *logging.Logger) *Assistant {
	if logger == nil {
		logger = logging.Default()
	}
	return &Assistant{client: client, modelID: modelID, logger: logger}
}

// Reply generates the assistant's answer to the final user turn.
func (a *Assistant) Reply(ctx context.Context, turns []Turn) (string, error) {
	if a.client == nil {
		return "", errors.New("assist: bedrock client not configured")
	}
	if len(turns) == 0 {
		return "", errors.New("assist: no conversation turns")
	}

	messages := make([]brtypes.Message, 0, len(turns))
	for _, turn := range turns {
		role := brtypes.ConversationRoleUser
		if turn.Role == "assistant" {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, brtypes.Message{
			Role: role,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: turn.Text},
			},
		})
	}

	resp, err := a.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(a.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: assistantSystemPrompt},
		},
		Messages: messages,
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(1000),
			Temperature: aws.Float32(0.3),
		},
	})
	if err != nil {
		return "", fmt.Errorf("assist: bedrock converse: %w", err)
	}

	text := extractResponseText(resp)
	if text == "" {
		return "", errors.New("assist: empty model response")
	}
	return text, nil
}

func extractResponseText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return ""
	}
	textBlock, ok := output.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return ""
	}
	return textBlock.Value
}
