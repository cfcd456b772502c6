// Package synthesis generates the daily executive briefing: a prompt built
// from the day's GPR index and top clusters, sent to Gemini, with a
// deterministic local fallback when no key pool is configured or every
// call fails. The client wraps google.golang.org/genai with the same
// key-rotation idiom the news providers use.
package synthesis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/rs/zerolog"
)

const geminiModel = "gemini-2.0-flash-exp"
const geminiTemperature = 0.2

// GeminiClient round-robins across a key pool: each call starts at the next
// key in turn and falls through the rest of the pool on failure. A failed
// key stays in the pool for later calls.
type GeminiClient struct {
	keys []string
	log  zerolog.Logger

	mu      sync.Mutex
	nextIdx int
}

func NewGeminiClient(keys []string, log zerolog.Logger) *GeminiClient {
	return &GeminiClient{keys: keys, log: log.With().Str("component", "synthesis_llm").Logger()}
}

func (g *GeminiClient) IsAvailable() bool {
	return len(g.keys) > 0
}

// Generate sends systemPrompt+prompt to Gemini, starting at the next key in
// round-robin order and trying each key once until one succeeds.
func (g *GeminiClient) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	g.mu.Lock()
	keys := append([]string(nil), g.keys...)
	start := g.nextIdx
	g.nextIdx++
	g.mu.Unlock()

	var lastErr error
	for n := 0; n < len(keys); n++ {
		i := (start + n) % len(keys)
		text, err := g.callOnce(ctx, keys[i], systemPrompt, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		g.log.Warn().Err(err).Int("key_index", i).Msg("gemini key failed, rotating")
	}
	return "", fmt.Errorf("synthesis: exhausted gemini key pool: %w", lastErr)
}

func (g *GeminiClient) callOnce(ctx context.Context, apiKey, systemPrompt, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(geminiTemperature)),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	result, err := client.Models.GenerateContent(ctx, geminiModel, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}
