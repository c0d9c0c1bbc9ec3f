package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// BedrockRetrieveAPI is the subset of the Bedrock agent runtime client the
// knowledge base uses.
type BedrockRetrieveAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// KnowledgeBase answers questions grounded in the patient's indexed health
// records via Bedrock retrieve-and-generate.
type KnowledgeBase struct {
	client   BedrockRetrieveAPI
	kbID     string
	modelARN string
}

func NewKnowledgeBase(client BedrockRetrieveAPI, kbID, modelARN string) *KnowledgeBase {
	return &KnowledgeBase{client: client, kbID: kbID, modelARN: modelARN}
}

// Query retrieves relevant records and generates a grounded answer.
func (kb *KnowledgeBase) Query(ctx context.Context, prompt string) (string, error) {
	if kb == nil || kb.client == nil {
		return "", errors.New("assist: knowledge base not configured")
	}

	resp, err := kb.client.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &agenttypes.RetrieveAndGenerateInput{Text: aws.String(prompt)},
		RetrieveAndGenerateConfiguration: &agenttypes.RetrieveAndGenerateConfiguration{
			Type: agenttypes.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &agenttypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(kb.kbID),
				ModelArn:        aws.String(kb.modelARN),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("assist: retrieve and generate: %w", err)
	}
	if resp.Output == nil || resp.Output.Text == nil || *resp.Output.Text == "" {
		return "", errors.New("assist: empty knowledge base response")
	}
	return *resp.Output.Text, nil
}

// knowledgeKeywords mark a prompt as being about the patient's own health
// data, which the indexed records can answer better than open conversation.
var knowledgeKeywords = []string{
	"blood pressure", "heart rate", "vital signs", "health data",
	"medical", "diagnosis", "symptoms", "treatment", "medication",
	"blood sugar", "cholesterol", "temperature", "pulse", "oxygen",
	"health", "medical condition", "disease", "illness", "patient",
	"doctor", "medical history", "dr.", "physician",
}

// IsKnowledgeQuery reports whether prompt should be routed through the
// knowledge base rather than plain conversation.
func IsKnowledgeQuery(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range knowledgeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
