package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAISystemPrompt instructs the model to behave as a strict batch
// translator for structured UI/content strings.
const OpenAISystemPrompt = `You are a professional translator specializing in software and product localization.

Rules:
- Translate each numbered input string to the requested target language.
- Preserve any marker of the form __PH_0__, __PHX_1__ etc. EXACTLY as-is.
- Preserve HTML tags and Markdown structure exactly.
- Do not add explanations or commentary.
- Return a JSON array of strings with exactly one translation per input, in input order.`

// OpenAIClient adapts a chat-completion model to the Service contract
// using a numbered-list prompt and a JSON-array response protocol.
type OpenAIClient struct {
	client *openai.Client
	model  string
	opts   Options
}

// NewOpenAIClient returns an OpenAI-backed translation service. An empty
// model defaults to gpt-4o-mini.
func NewOpenAIClient(apiKey, model string, opts Options) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
		opts:   opts,
	}
}

// Translate submits one batch to the model and returns translations
// aligned with the input order. A malformed model response counts as a
// transient failure and is retried like a network error.
func (c *OpenAIClient) Translate(ctx context.Context, req Request) ([]Translation, error) {
	if len(req.Texts) == 0 {
		return nil, nil
	}
	if req.TargetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}

	return runWithRetry(ctx, c.opts, func(ctx context.Context) attemptResult[[]Translation] {
		return c.attempt(ctx, req)
	})
}

func (c *OpenAIClient) attempt(ctx context.Context, req Request) attemptResult[[]Translation] {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: OpenAISystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
	})
	if err != nil {
		return classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return attemptResult[[]Translation]{outcome: outcomeTransient, err: fmt.Errorf("model returned no choices")}
	}

	texts, err := parseTranslationArray(resp.Choices[0].Message.Content, len(req.Texts))
	if err != nil {
		// The model produced garbage; a fresh attempt usually fixes it.
		return attemptResult[[]Translation]{outcome: outcomeTransient, err: err}
	}

	out := make([]Translation, len(texts))
	for i, text := range texts {
		out[i] = Translation{Text: text, DetectedSourceLang: req.SourceLang}
	}
	return attemptResult[[]Translation]{outcome: outcomeSuccess, value: out}
}

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate these strings to %s", req.TargetLang)
	if req.SourceLang != "" {
		fmt.Fprintf(&b, " (source language: %s)", req.SourceLang)
	}
	b.WriteString(":\n\n")
	for i, text := range req.Texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(text, "\n", "\\n"))
	}
	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d translated strings.", len(req.Texts))
	return b.String()
}

func classifyOpenAIError(err error) attemptResult[[]Translation] {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return attemptResult[[]Translation]{outcome: outcomeTransient, err: fmt.Errorf("model API error: %w", err)}
		}
		return attemptResult[[]Translation]{outcome: outcomePermanent, err: fmt.Errorf("model API rejected request: %w", err)}
	}
	// Request construction and transport errors: retry.
	return attemptResult[[]Translation]{outcome: outcomeTransient, err: fmt.Errorf("model request failed: %w", err)}
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseTranslationArray extracts a JSON array of strings from the model
// output, tolerating surrounding prose and markdown code fences.
func parseTranslationArray(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	var texts []string
	if err := json.Unmarshal([]byte(content), &texts); err != nil {
		return nil, fmt.Errorf("parsing model response as JSON array: %w", err)
	}
	if len(texts) != expected {
		return nil, fmt.Errorf("model returned %d translations, want %d", len(texts), expected)
	}
	for i, text := range texts {
		texts[i] = strings.ReplaceAll(text, "\\n", "\n")
	}
	return texts, nil
}
