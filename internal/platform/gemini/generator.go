package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/mediflash/mediflash-api/internal/config"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/generation"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"google.golang.org/genai"
)

//go:embed prompts/extraction.tmpl
var defaultPromptTemplate string

const defaultRetryDelay = 2 * time.Second

// contentGenerator is the part of genai.Models used by the generator.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	logger         *slog.Logger
	models         contentGenerator
	model          string
	promptTemplate *template.Template
	maxRetries     int
	baseDelay      time.Duration
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed generator from cfg.
// Returns an error wrapping generation.ErrInvalidConfig when the API key or
// model is missing or the prompt template cannot be loaded.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	tmpl, err := loadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, client.Models, cfg, tmpl)
}

func newGenerator(
	log *slog.Logger,
	models contentGenerator,
	cfg config.LLMConfig,
	tmpl *template.Template,
) (*Generator, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	baseDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = defaultRetryDelay
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Generator{
		logger:         log.With(slog.String("component", "gemini_generator")),
		models:         models,
		model:          cfg.ModelName,
		promptTemplate: tmpl,
		maxRetries:     maxRetries,
		baseDelay:      baseDelay,
	}, nil
}

// loadPromptTemplate parses the template at path, or the built-in template
// when path is empty.
func loadPromptTemplate(path string) (*template.Template, error) {
	content := defaultPromptTemplate
	name := "extraction"
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				generation.ErrInvalidConfig, path, err)
		}
		content = string(raw)
		name = path
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

// GenerateCards implements generation.Generator.
func (g *Generator) GenerateCards(ctx context.Context, text, focus string) ([]domain.CardDraft, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, generation.ErrEmptyText
	}
	if len(text) > generation.MaxTextLength {
		return nil, fmt.Errorf("%w: text is %d bytes, limit is %d",
			generation.ErrGenerationFailed, len(text), generation.MaxTextLength)
	}

	prompt, err := g.createPrompt(text, strings.TrimSpace(focus))
	if err != nil {
		return nil, err
	}

	raw, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	drafts, err := parseResponse(raw)
	if err != nil {
		log.Warn("unusable model response",
			slog.String("error", err.Error()),
			slog.Int("response_length", len(raw)))
		return nil, err
	}

	log.Info("cards extracted", slog.Int("count", len(drafts)))
	return drafts, nil
}

func (g *Generator) createPrompt(text, focus string) (string, error) {
	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, promptData{Text: text, Focus: focus}); err != nil {
		return "", fmt.Errorf("%w: failed to execute prompt template: %v", generation.ErrGenerationFailed, err)
	}
	return buf.String(), nil
}

// callWithRetry sends prompt to the model and returns the raw response text.
// API errors are retried with exponential backoff and jitter; blocked and
// empty responses are returned immediately.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)
	temperature := float32(0.2)
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}

	for attempt := 0; ; attempt++ {
		log.Debug("calling Gemini",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", g.maxRetries+1))

		resp, err := g.models.GenerateContent(ctx, g.model, contents, genConfig)
		if err == nil {
			return responseText(resp)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}

		log.Warn("Gemini call failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if attempt >= g.maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, g.maxRetries, err)
		}

		// delay = baseDelay * 2^attempt * [0.5, 1.0)
		backoff := float64(g.baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rand.Float64()*0.5))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// responseText extracts the text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: safety filter finish reason", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// parseResponse converts the model's JSON array into drafts. A single invalid
// card rejects the whole response.
func parseResponse(raw string) ([]domain.CardDraft, error) {
	body := strings.TrimSpace(raw)
	if m := fencedJSON.FindStringSubmatch(body); m != nil {
		body = m[1]
	}

	var cards []responseCard
	if err := json.Unmarshal([]byte(body), &cards); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: no cards in response", generation.ErrInvalidResponse)
	}

	drafts := make([]domain.CardDraft, 0, len(cards))
	for i, c := range cards {
		draft := domain.CardDraft{
			Tags:    c.Tags,
			Media:   c.Media,
			Chapter: strings.TrimSpace(c.Chapter),
		}
		switch c.Type {
		case cardTypeCloze:
			if strings.TrimSpace(c.Content) == "" {
				return nil, fmt.Errorf("%w: cloze card %d has no content", generation.ErrInvalidResponse, i)
			}
			draft.Kind = domain.CardKindCloze
			draft.Question = strings.TrimSpace(c.Content)
		case cardTypeQA:
			if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
				return nil, fmt.Errorf("%w: qa card %d is missing a side", generation.ErrInvalidResponse, i)
			}
			draft.Kind = domain.CardKindQA
			draft.Question = strings.TrimSpace(c.Front)
			draft.Answer = strings.TrimSpace(c.Back)
		default:
			return nil, fmt.Errorf("%w: card %d has unknown type %q", generation.ErrInvalidResponse, i, c.Type)
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}
