package reports

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranslateAPI struct {
	in *translate.TranslateTextInput
}

func (f *fakeTranslateAPI) TranslateText(ctx context.Context, params *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error) {
	f.in = params
	return &translate.TranslateTextOutput{TranslatedText: aws.String("Presión arterial alta")}, nil
}

func TestTranslatorTranslatesFromEnglish(t *testing.T) {
	api := &fakeTranslateAPI{}
	tr := NewTranslator(api)

	out, err := tr.Translate(context.Background(), "High blood pressure", "es")
	require.NoError(t, err)
	assert.Equal(t, "Presión arterial alta", out)
	assert.Equal(t, "en", aws.ToString(api.in.SourceLanguageCode))
	assert.Equal(t, "es", aws.ToString(api.in.TargetLanguageCode))
}

func TestTranslatorUnconfigured(t *testing.T) {
	var tr *Translator
	_, err := tr.Translate(context.Background(), "text", "es")
	assert.Error(t, err)
}
