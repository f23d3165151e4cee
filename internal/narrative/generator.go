package narrative

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mcalgaro/meteogramma/internal/ensemble"
	"github.com/mcalgaro/meteogramma/internal/htmlutil"
	"github.com/mcalgaro/meteogramma/internal/report"
	"github.com/mcalgaro/meteogramma/internal/store"
)

// Generator writes a short Italian summary of one day's ensemble bundle.
// Entirely optional: construction fails without an API key and the pages
// simply render without the paragraph.
type Generator struct {
	client openai.Client
	model  string
	store  *store.Store
}

// NewGenerator reads OPENAI_API_KEY for authentication.
func NewGenerator(st *store.Store) (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	return &Generator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  "gpt-5-mini",
		store:  st,
	}, nil
}

// Summarize returns the summary for a day, generating it once per forecast
// issue and serving the stored text afterwards.
func (g *Generator) Summarize(ctx context.Context, day time.Time, issuedAt time.Time, bundle *ensemble.CombinedBundle) (string, error) {
	date := day.Format("2006-01-02")
	if text, ok, err := g.store.GetNarrative(date, issuedAt); err == nil && ok {
		return text, nil
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Sei un meteorologo. Scrivi un breve riassunto (3-4 frasi) in italiano delle previsioni del giorno, confrontando la temperatura prevista con la media storica. Solo testo semplice, niente HTML o markdown."),
			openai.UserMessage(buildPrompt(date, bundle)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("narrative generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}

	text := strings.TrimSpace(htmlutil.ToText(resp.Choices[0].Message.Content))
	if err := g.store.SaveNarrative(date, issuedAt, g.model, text); err != nil {
		return text, fmt.Errorf("save narrative: %w", err)
	}
	return text, nil
}

// buildPrompt flattens the bundle into a compact per-series digest. The model
// sees min/mean/max, not 168 raw numbers.
func buildPrompt(date string, bundle *ensemble.CombinedBundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Previsioni per il %s:\n", date)
	for _, name := range bundle.Order {
		series := bundle.Series[name]
		lo, hi, sum, n := 0.0, 0.0, 0.0, 0
		for _, v := range series {
			if !v.Valid {
				continue
			}
			if n == 0 || v.Float64 < lo {
				lo = v.Float64
			}
			if n == 0 || v.Float64 > hi {
				hi = v.Float64
			}
			sum += v.Float64
			n++
		}
		if n == 0 {
			continue
		}
		label := name
		if name == report.BaselineSeriesName {
			label = "Media storica 50 anni (temperatura)"
		}
		fmt.Fprintf(&b, "- %s: min %.1f, media %.1f, max %.1f\n", label, lo, sum/float64(n), hi)
	}
	return b.String()
}
