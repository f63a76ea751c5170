package imagegen

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/lox/bitecast/internal/models"
)

func testResult() *models.ForecastResult {
	return &models.ForecastResult{
		Location:  models.LocationInfo{Label: "Chatfield Reservoir"},
		Species:   "bass",
		Timezone:  "America/Denver",
		FetchedAt: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
		Moon:      models.MoonInfo{Name: "Waxing Gibbous"},
		Summary: models.ForecastSummary{
			TotalScore: 71,
			Rating:     models.RatingGreat,
			Why:        []string{"Falling pressure often triggers feeding.", "Light wind helps."},
			BestWindows: []models.BestWindow{
				{Label: "6 AM - 9 AM", PeakScore: 82},
				{Label: "7 PM - 10 PM", PeakScore: 78},
			},
		},
	}
}

func TestCardFromResult(t *testing.T) {
	data := CardFromResult(testResult(), "Largemouth Bass")

	if data.Score != 71 || data.Rating != models.RatingGreat {
		t.Errorf("score = %d %s", data.Score, data.Rating)
	}
	if data.Species != "Largemouth Bass" || data.Location != "Chatfield Reservoir" {
		t.Errorf("header = %q / %q", data.Species, data.Location)
	}
	if data.Why != "Falling pressure often triggers feeding." {
		t.Errorf("Why = %q", data.Why)
	}
	if strings.Join(data.Windows, "|") != "6 AM - 9 AM (82)|7 PM - 10 PM (78)" {
		t.Errorf("Windows = %v", data.Windows)
	}
	if data.Updated != "Updated May 15, 6:00 AM" {
		t.Errorf("Updated = %q", data.Updated)
	}
}

func TestCardFromResult_FallsBackToSpeciesKey(t *testing.T) {
	result := testResult()
	result.Summary.Why = nil
	result.FetchedAt = time.Time{}

	data := CardFromResult(result, "")
	if data.Species != "bass" {
		t.Errorf("Species = %q, want bass", data.Species)
	}
	if data.Why != "" || data.Updated != "" {
		t.Errorf("expected empty why and updated, got %q %q", data.Why, data.Updated)
	}
}

func TestRenderCard(t *testing.T) {
	tests := []struct {
		name string
		data CardData
	}{
		{"full card", CardFromResult(testResult(), "Largemouth Bass")},
		{"empty card", CardData{Rating: models.RatingPoor}},
		{"long text is truncated", CardData{
			Score:    12,
			Rating:   models.RatingPoor,
			Location: strings.Repeat("Very Long Lake Name ", 20),
			Why:      strings.Repeat("Strong wind makes fishing harder. ", 10),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := RenderCard(tt.data)
			if err != nil {
				t.Fatalf("RenderCard: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode png: %v", err)
			}
			if b := img.Bounds(); b.Dx() != CardWidth || b.Dy() != CardHeight {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), CardWidth, CardHeight)
			}
		})
	}
}

func TestFitText(t *testing.T) {
	loadFonts()
	if fontErr != nil {
		t.Fatalf("load fonts: %v", fontErr)
	}

	if got := fitText(fontBody, "short", 1000); got != "short" {
		t.Errorf("fitText(short) = %q", got)
	}

	got := fitText(fontBody, strings.Repeat("word ", 100), 300)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("fitText(long) = %q, want ellipsis", got)
	}
	if len(got) >= len(strings.Repeat("word ", 100)) {
		t.Error("fitText did not shorten")
	}
}

func TestCache(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	c := NewCache(10 * time.Minute)
	c.now = func() time.Time { return now }

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set("a", []byte("card-a"))
	if got, ok := c.Get("a"); !ok || string(got) != "card-a" {
		t.Errorf("Get(a) = %q, %v", got, ok)
	}

	now = now.Add(11 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should miss")
	}

	c.Set("b", []byte("card-b"))
	if c.Len() != 1 {
		t.Errorf("Len = %d, want expired entry dropped on Set", c.Len())
	}
}
