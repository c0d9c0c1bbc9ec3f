package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"
)

// TranslateAPI is the subset of the Amazon Translate client the translator
// uses.
type TranslateAPI interface {
	TranslateText(ctx context.Context, params *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
}

// Translator renders simplified text in the patient's preferred language.
// The simplifier always produces English, so the source language is fixed.
type Translator struct {
	client TranslateAPI
}

func NewTranslator(client TranslateAPI) *Translator {
	return &Translator{client: client}
}

// Translate returns text in the target language.
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if t == nil || t.client == nil {
		return "", errors.New("reports: translator not configured")
	}

	resp, err := t.client.TranslateText(ctx, &translate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String("en"),
		TargetLanguageCode: aws.String(targetLanguage),
	})
	if err != nil {
		return "", fmt.Errorf("reports: translate text: %w", err)
	}
	if resp.TranslatedText == nil {
		return "", errors.New("reports: empty translation response")
	}
	return *resp.TranslatedText, nil
}
