// Package narrative writes a short angler-facing report for a scored
// forecast, using OpenAI when a key is configured and a fixed template
// otherwise.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/bitecast/internal/format"
	"github.com/lox/bitecast/internal/models"
)

const (
	SourceOpenAI   = "openai"
	SourceTemplate = "template"

	DefaultModel = "gpt-4o-mini"

	reportTTL = 30 * time.Minute
)

const systemPrompt = `You are a concise fishing guide. Write a bite report of two or three sentences for anglers from the facts given. Mention the score, the best window and the main reason. Use only the facts provided. No emojis, no headings.`

type Report struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type cachedReport struct {
	report    Report
	expiresAt time.Time
}

// Writer produces reports. The zero configuration (no API key) always uses
// the template.
type Writer struct {
	client *openai.Client
	model  string

	mu    sync.Mutex
	cache map[string]cachedReport
	now   func() time.Time
}

// New creates a Writer. An empty apiKey disables OpenAI.
func New(apiKey, model string, opts ...option.RequestOption) *Writer {
	w := &Writer{
		model: model,
		cache: make(map[string]cachedReport),
		now:   time.Now,
	}
	if w.model == "" {
		w.model = DefaultModel
	}
	if apiKey != "" {
		client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
		w.client = &client
	}
	return w
}

func (w *Writer) Enabled() bool {
	return w.client != nil
}

func reportKey(result *models.ForecastResult) string {
	return fmt.Sprintf("%.3f,%.3f|%s|%s", result.Location.Latitude, result.Location.Longitude, result.Species, result.Units)
}

// Write returns a report for result. OpenAI failures fall back to the
// template; generated reports are reused for a short while per location,
// species and units.
func (w *Writer) Write(ctx context.Context, result *models.ForecastResult, speciesLabel string) Report {
	fallback := Report{Text: TemplateReport(result, speciesLabel), Source: SourceTemplate}
	if w.client == nil {
		return fallback
	}

	key := reportKey(result)
	w.mu.Lock()
	if c, ok := w.cache[key]; ok {
		if w.now().Before(c.expiresAt) {
			w.mu.Unlock()
			return c.report
		}
		delete(w.cache, key)
	}
	w.mu.Unlock()

	text, err := w.generate(ctx, result, speciesLabel)
	if err != nil {
		log.Printf("narrative: %v", err)
		return fallback
	}

	report := Report{Text: text, Source: SourceOpenAI}
	now := w.now()
	w.mu.Lock()
	for k, c := range w.cache {
		if !now.Before(c.expiresAt) {
			delete(w.cache, k)
		}
	}
	w.cache[key] = cachedReport{report: report, expiresAt: now.Add(reportTTL)}
	w.mu.Unlock()
	return report
}

func (w *Writer) generate(ctx context.Context, result *models.ForecastResult, speciesLabel string) (string, error) {
	resp, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(w.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(facts(result, speciesLabel)),
		},
		MaxCompletionTokens: openai.Int(220),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion returned")
	}
	return text, nil
}

// facts lists what the model may draw on: the template report followed by
// the factor breakdown.
func facts(result *models.ForecastResult, speciesLabel string) string {
	var b strings.Builder
	b.WriteString(TemplateReport(result, speciesLabel))
	if len(result.FactorBreakdown) > 0 {
		b.WriteString("\n\nFactor points (positive helps):")
		for _, c := range result.FactorBreakdown {
			fmt.Fprintf(&b, "\n- %s: %+.1f (%s)", c.Label, c.Points, c.Insight)
		}
	}
	return b.String()
}

// TemplateReport builds a plain report from the summary, current conditions
// and moon.
func TemplateReport(result *models.ForecastResult, speciesLabel string) string {
	if speciesLabel == "" {
		speciesLabel = result.Species
	}
	s := result.Summary

	var parts []string
	head := fmt.Sprintf("%s outlook for %s", s.Rating, speciesLabel)
	if result.Location.Label != "" {
		head += " near " + result.Location.Label
	}
	parts = append(parts, fmt.Sprintf("%s: %d/100 over the next 24 hours.", head, s.TotalScore))

	if len(s.Why) > 0 {
		parts = append(parts, strings.Join(s.Why, " "))
	}

	switch len(s.BestWindows) {
	case 0:
		parts = append(parts, "No standout windows in the next two days.")
	default:
		best := s.BestWindows[0]
		parts = append(parts, fmt.Sprintf("Best window: %s (peak %d).", best.Label, best.PeakScore))
		if len(s.BestWindows) > 1 {
			var others []string
			for _, w := range s.BestWindows[1:] {
				others = append(others, w.Label)
			}
			parts = append(parts, fmt.Sprintf("Also worth a look: %s.", strings.Join(others, ", ")))
		}
	}

	if len(result.Hourly) > 0 {
		in := result.Hourly[0].Inputs
		parts = append(parts, fmt.Sprintf("Right now it is %s with %s wind and pressure at %s.",
			format.Temperature(in.TemperatureC, result.Units),
			format.Wind(in.WindSpeedKmh, result.Units),
			format.Pressure(in.PressureHpa, result.Units)))
	}

	if result.Moon.Name != "" {
		parts = append(parts, fmt.Sprintf("Moon: %s, %.0f%% lit.", result.Moon.Name, math.Round(result.Moon.Illumination)))
	}

	return strings.Join(parts, " ")
}
