package gemini_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/generation"
	"github.com/phrazzld/scry-bulkgen/internal/platform/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	deadline bool
}

func (f *fakeModels) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	_, f.deadline = ctx.Deadline()
	return f.resp, f.err
}

func textResponse(text string, reason genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
			FinishReason: reason,
		}},
	}
}

func newProvider(t *testing.T, models gemini.ContentGenerator) *gemini.Provider {
	t.Helper()
	p, err := gemini.NewProvider(models, gemini.Config{Model: "gemini-2.5-flash", Timeout: time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

func request() generation.Request {
	temp := float32(0.7)
	return generation.Request{
		SystemPrompt: "You write short factual items.",
		UserPrompt:   "Write 5 items about Fitness.",
		Tier:         domain.Tier1,
		Options:      generation.Options{Temperature: &temp, MaxOutputTokens: 2048},
	}
}

func TestNewProvider_Validation(t *testing.T) {
	t.Parallel()

	_, err := gemini.NewProvider(nil, gemini.Config{Model: "m"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = gemini.NewProvider(&fakeModels{}, gemini.Config{}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = gemini.NewClient(context.Background(), "")
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestProvider_Generate(t *testing.T) {
	t.Parallel()

	models := &fakeModels{resp: textResponse(`[{"id":1,"text":"hello"}]`, genai.FinishReasonStop)}
	p := newProvider(t, models)

	resp, err := p.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"text":"hello"}]`, resp.Text)
	assert.Equal(t, "gemini-2.5-flash", resp.Model)
	assert.Equal(t, domain.Tier1, resp.Tier)

	assert.Equal(t, "gemini-2.5-flash", models.model)
	require.Len(t, models.contents, 1)
	assert.Equal(t, "Write 5 items about Fitness.", models.contents[0].Parts[0].Text)
	require.NotNil(t, models.config)
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)
	assert.Equal(t, int32(2048), models.config.MaxOutputTokens)
	require.NotNil(t, models.config.Temperature)
	assert.InDelta(t, 0.7, *models.config.Temperature, 1e-6)
	require.NotNil(t, models.config.SystemInstruction)
	assert.Equal(t, "You write short factual items.", models.config.SystemInstruction.Parts[0].Text)
	assert.True(t, models.deadline, "timeout applied to the call")
}

func TestProvider_EmptyTextIsNotAnError(t *testing.T) {
	t.Parallel()

	p := newProvider(t, &fakeModels{resp: textResponse("", genai.FinishReasonMaxTokens)})

	resp, err := p.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}

func TestProvider_Blocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{
			name: "safety finish reason",
			resp: textResponse("", genai.FinishReasonSafety),
		},
		{
			name: "prohibited content",
			resp: textResponse("", genai.FinishReasonProhibitedContent),
		},
		{
			name: "prompt feedback",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReason("SAFETY")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newProvider(t, &fakeModels{resp: tt.resp})

			_, err := p.Generate(context.Background(), request())
			var pe *generation.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.True(t, pe.Blocked)
			assert.Equal(t, gemini.ProviderName, pe.Provider)

			cls := generation.NewClassifier(generation.ClassifierConfig{}, nil).Classify(err)
			assert.Equal(t, generation.CategoryContentFilter, cls.Category)
		})
	}
}

func TestProvider_APIErrorsAreNormalized(t *testing.T) {
	t.Parallel()

	apiErr := genai.APIError{Code: 429, Message: "Quota exceeded. Please retry in 12s.", Status: "RESOURCE_EXHAUSTED"}
	p := newProvider(t, &fakeModels{err: apiErr})

	_, err := p.Generate(context.Background(), request())
	var pe *generation.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 429, pe.Status)
	assert.Equal(t, gemini.ProviderName, pe.Provider)

	cls := generation.NewClassifier(generation.ClassifierConfig{}, nil).Classify(err)
	assert.Equal(t, generation.CategoryRateLimit, cls.Category)
	assert.Equal(t, 12*time.Second, cls.SuggestedDelay)
}

func TestProvider_TransportErrorsPassThrough(t *testing.T) {
	t.Parallel()

	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	p := newProvider(t, &fakeModels{err: netErr})

	_, err := p.Generate(context.Background(), request())
	assert.ErrorIs(t, err, netErr)

	var pe *generation.ProviderError
	assert.False(t, errors.As(err, &pe))
}
