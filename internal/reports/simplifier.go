package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockConverseAPI is the subset of the Bedrock client the simplifier
// uses.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

const simplifierSystemPrompt = `You are a medical assistant. Explain the provided text to a patient in simple, clear language. Keep the meaning intact and do not add diagnoses of your own.`

// Simplifier rewrites clinical text in plain language using Claude via
// Bedrock.
type Simplifier struct {
	client  BedrockConverseAPI
	modelID string
}

func NewSimplifier(client BedrockConverseAPI, modelID string) *Simplifier {
	return &Simplifier{client: client, modelID: modelID}
}

// Simplify returns the patient-friendly rewrite of text.
func (s *Simplifier) Simplify(ctx context.Context, text string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("reports: simplifier not configured")
	}

	resp, err := s.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(s.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: simplifierSystemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: "<text>" + text + "</text>"},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(1000),
			Temperature: aws.Float32(0.2),
		},
	})
	if err != nil {
		return "", fmt.Errorf("reports: bedrock converse: %w", err)
	}

	output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return "", errors.New("reports: empty model response")
	}
	textBlock, ok := output.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok || textBlock.Value == "" {
		return "", errors.New("reports: empty model response")
	}
	return textBlock.Value, nil
}
