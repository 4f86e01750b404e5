package resolve

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// Resolver produces replacement file content from a merge prompt.
// Implementations must be safe for sequential reuse across files.
type Resolver interface {
	Resolve(ctx context.Context, prompt string) (string, error)
}

const defaultModel = "gemini-2.5-flash"

// GeminiResolver resolves conflicts through the Gemini API. The
// response is expected to be the complete merged file, optionally
// wrapped in a markdown code fence.
type GeminiResolver struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiResolver builds a resolver from the environment. A missing
// GEMINI_API_KEY is an error so callers can fall back to the
// deterministic path instead of failing mid-run.
func NewGeminiResolver(ctx context.Context) (*GeminiResolver, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := os.Getenv("REBASEBOT_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &GeminiResolver{client: cli, model: model, timeout: 60 * time.Second}, nil
}

func (g *GeminiResolver) Resolve(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.1)},
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("model call timed out")
		}
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from %s", g.model)
	}
	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("empty response from %s", g.model)
	}
	return stripFences(text), nil
}

var fenceStartRe = regexp.MustCompile("(?s)^```[a-zA-Z0-9_+-]*\\s*\n")
var fenceEndRe = regexp.MustCompile("\\s*```$")

// stripFences removes a single enclosing markdown code fence.
func stripFences(text string) string {
	text = fenceStartRe.ReplaceAllString(text, "")
	return fenceEndRe.ReplaceAllString(text, "")
}
