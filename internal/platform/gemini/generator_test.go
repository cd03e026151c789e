package gemini

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/config"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/generation"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels replays canned responses and records the prompts it was sent.
type fakeModels struct {
	mu        sync.Mutex
	responses []*genai.GenerateContentResponse
	errs      []error
	prompts   []string
	configs   []*genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	_ string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := len(f.prompts)
	f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	f.configs = append(f.configs, cfg)

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	if call < len(f.responses) {
		return f.responses[call], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func newTestGenerator(t *testing.T, models contentGenerator, maxRetries int) *Generator {
	t.Helper()
	tmpl, err := loadPromptTemplate("")
	require.NoError(t, err)
	log, _ := logger.GetTestLogger(t)
	g, err := newGenerator(log, models, config.LLMConfig{
		ModelName:  "gemini-test",
		MaxRetries: maxRetries,
	}, tmpl)
	require.NoError(t, err)
	g.baseDelay = time.Millisecond
	return g
}

const twoCards = `[
  {"type": "cloze", "chapter": "Chapter 1: Cardiac physiology", "content": "The {{c1::sinoatrial node}} is the primary pacemaker.", "tags": ["cardiology"]},
  {"type": "qa", "front": "Why does digoxin slow AV conduction?", "back": "It increases vagal tone.", "tags": ["pharmacology", "cardiology"]}
]`

func TestGenerateCards(t *testing.T) {
	t.Parallel()
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse(twoCards)}}
	g := newTestGenerator(t, models, 0)

	drafts, err := g.GenerateCards(context.Background(), "Cardiac conduction system notes", "arrhythmias")
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, domain.CardKindCloze, drafts[0].Kind)
	assert.Equal(t, "The {{c1::sinoatrial node}} is the primary pacemaker.", drafts[0].Question)
	assert.Empty(t, drafts[0].Answer)
	assert.Equal(t, "Chapter 1: Cardiac physiology", drafts[0].Chapter)

	assert.Equal(t, domain.CardKindQA, drafts[1].Kind)
	assert.Equal(t, "It increases vagal tone.", drafts[1].Answer)
	assert.Equal(t, []string{"pharmacology", "cardiology"}, drafts[1].Tags)

	require.Len(t, models.prompts, 1)
	prompt := models.prompts[0]
	assert.Contains(t, prompt, "Cardiac conduction system notes")
	assert.Contains(t, prompt, "Pay particular attention to: arrhythmias")
	assert.Contains(t, prompt, "{{c1::hidden text}}")
	assert.Equal(t, "application/json", models.configs[0].ResponseMIMEType)

	// every draft must be acceptable as a new card
	for _, d := range drafts {
		_, err := domain.NewCard(uuid.New(), 0, d, time.Now())
		assert.NoError(t, err)
	}
}

func TestGenerateCardsWithoutFocus(t *testing.T) {
	t.Parallel()
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse(twoCards)}}
	g := newTestGenerator(t, models, 0)

	_, err := g.GenerateCards(context.Background(), "notes", "  ")
	require.NoError(t, err)
	assert.NotContains(t, models.prompts[0], "Pay particular attention")
}

func TestGenerateCardsRejectsEmptyText(t *testing.T) {
	t.Parallel()
	models := &fakeModels{}
	g := newTestGenerator(t, models, 0)

	_, err := g.GenerateCards(context.Background(), " \n ", "")
	assert.ErrorIs(t, err, generation.ErrEmptyText)
	assert.Empty(t, models.prompts)

	_, err = g.GenerateCards(context.Background(), strings.Repeat("x", generation.MaxTextLength+1), "")
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}

func TestGenerateCardsRetries(t *testing.T) {
	t.Parallel()

	t.Run("recovers from a transient failure", func(t *testing.T) {
		models := &fakeModels{
			errs:      []error{errors.New("503 unavailable"), nil},
			responses: []*genai.GenerateContentResponse{nil, textResponse(twoCards)},
		}
		g := newTestGenerator(t, models, 2)

		drafts, err := g.GenerateCards(context.Background(), "notes", "")
		require.NoError(t, err)
		assert.Len(t, drafts, 2)
		assert.Len(t, models.prompts, 2)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		boom := errors.New("503 unavailable")
		models := &fakeModels{errs: []error{boom, boom, boom}}
		g := newTestGenerator(t, models, 2)

		_, err := g.GenerateCards(context.Background(), "notes", "")
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.True(t, generation.IsRetryable(err))
		assert.Len(t, models.prompts, 3)
	})

	t.Run("blocked content is not retried", func(t *testing.T) {
		blocked := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonSafety,
		}}}
		models := &fakeModels{responses: []*genai.GenerateContentResponse{blocked}}
		g := newTestGenerator(t, models, 3)

		_, err := g.GenerateCards(context.Background(), "notes", "")
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
		assert.Len(t, models.prompts, 1)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		models := &fakeModels{errs: []error{context.Canceled}}
		g := newTestGenerator(t, models, 3)

		_, err := g.GenerateCards(ctx, "notes", "")
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.Len(t, models.prompts, 1)
	})
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr error
	}{
		{name: "plain array", raw: twoCards, want: 2},
		{name: "fenced array", raw: "```json\n" + twoCards + "\n```", want: 2},
		{name: "not json", raw: "Here are your cards!", wantErr: generation.ErrInvalidResponse},
		{name: "empty array", raw: "[]", wantErr: generation.ErrInvalidResponse},
		{
			name:    "cloze without content",
			raw:     `[{"type": "cloze", "content": " "}]`,
			wantErr: generation.ErrInvalidResponse,
		},
		{
			name:    "qa without back",
			raw:     `[{"type": "qa", "front": "Why?"}]`,
			wantErr: generation.ErrInvalidResponse,
		},
		{
			name:    "unknown type",
			raw:     `[{"type": "essay", "front": "a", "back": "b"}]`,
			wantErr: generation.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := parseResponse(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, drafts, tt.want)
		})
	}
}

func TestResponseText(t *testing.T) {
	t.Parallel()

	_, err := responseText(nil)
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)

	_, err = responseText(textResponse("   "))
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)

	multi := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "[1,"}, {Text: "2]"}}},
	}}}
	text, err := responseText(multi)
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", text)
}

func TestLoadPromptTemplate(t *testing.T) {
	t.Parallel()

	t.Run("custom template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("Cards for: {{.Text}} / {{.Focus}}"), 0o600))

		tmpl, err := loadPromptTemplate(path)
		require.NoError(t, err)

		g := &Generator{promptTemplate: tmpl}
		prompt, err := g.createPrompt("<b>renal</b>", "GFR")
		require.NoError(t, err)
		assert.Equal(t, "Cards for: <b>renal</b> / GFR", prompt)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadPromptTemplate(filepath.Join(t.TempDir(), "nope.tmpl"))
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("invalid syntax", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("Prompt: {{.Text"), 0o600))
		_, err := loadPromptTemplate(path)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("unknown field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "field.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("Prompt: {{.MemoText}}"), 0o600))
		tmpl, err := loadPromptTemplate(path)
		require.NoError(t, err)

		g := &Generator{promptTemplate: tmpl}
		_, err = g.createPrompt("text", "")
		assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	})
}

func TestNewGeneratorValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log, _ := logger.GetTestLogger(t)

	_, err := NewGenerator(ctx, nil, config.LLMConfig{GeminiAPIKey: "k", ModelName: "m"})
	assert.Error(t, err)

	_, err = NewGenerator(ctx, log, config.LLMConfig{ModelName: "m"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(ctx, log, config.LLMConfig{GeminiAPIKey: "k", ModelName: "m", PromptTemplatePath: "/nonexistent"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = newGenerator(log, &fakeModels{}, config.LLMConfig{}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
