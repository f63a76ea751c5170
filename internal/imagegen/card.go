// Package imagegen renders shareable PNG score cards for a forecast.
package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/lox/bitecast/internal/format"
	"github.com/lox/bitecast/internal/models"
)

// Open Graph image dimensions.
const (
	CardWidth  = 1200
	CardHeight = 630

	margin = 60
)

var (
	fontScore   font.Face
	fontHeading font.Face
	fontBody    font.Face
	fontSmall   font.Face
	fontOnce    sync.Once
	fontErr     error

	// opentype faces hold per-face buffers.
	renderMu sync.Mutex
)

func newFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func loadFonts() {
	fontOnce.Do(func() {
		faces := []struct {
			dst  *font.Face
			data []byte
			size float64
			name string
		}{
			{&fontScore, gobold.TTF, 190, "score"},
			{&fontHeading, gobold.TTF, 48, "heading"},
			{&fontBody, goregular.TTF, 32, "body"},
			{&fontSmall, goregular.TTF, 24, "small"},
		}
		for _, f := range faces {
			face, err := newFace(f.data, f.size)
			if err != nil {
				fontErr = fmt.Errorf("create %s face: %w", f.name, err)
				return
			}
			*f.dst = face
		}
	})
}

// CardData is everything drawn on a score card.
type CardData struct {
	Score    int
	Rating   models.RatingLabel
	Location string
	Species  string
	Why      string
	Windows  []string
	Moon     string
	Updated  string
}

// CardFromResult picks the card contents out of a scored forecast.
func CardFromResult(result *models.ForecastResult, speciesLabel string) CardData {
	data := CardData{
		Score:    result.Summary.TotalScore,
		Rating:   result.Summary.Rating,
		Location: result.Location.Label,
		Species:  speciesLabel,
		Moon:     result.Moon.Name,
	}
	if data.Species == "" {
		data.Species = result.Species
	}
	if len(result.Summary.Why) > 0 {
		data.Why = result.Summary.Why[0]
	}
	for _, w := range result.Summary.BestWindows {
		data.Windows = append(data.Windows, fmt.Sprintf("%s (%d)", w.Label, w.PeakScore))
	}
	if !result.FetchedAt.IsZero() {
		loc := format.LoadZone(result.Timezone)
		data.Updated = "Updated " + format.DateTime(result.FetchedAt.Unix(), loc)
	}
	return data
}

// ratingColor is the accent used for the score and the side bar.
func ratingColor(r models.RatingLabel) color.RGBA {
	switch r {
	case models.RatingEpic:
		return color.RGBA{167, 139, 250, 255}
	case models.RatingGreat:
		return color.RGBA{45, 212, 191, 255}
	case models.RatingGood:
		return color.RGBA{74, 222, 128, 255}
	case models.RatingFair:
		return color.RGBA{251, 191, 36, 255}
	default:
		return color.RGBA{248, 113, 113, 255}
	}
}

// RenderCard draws a 1200x630 PNG score card.
func RenderCard(data CardData) ([]byte, error) {
	loadFonts()
	if fontErr != nil {
		return nil, fmt.Errorf("load fonts: %w", fontErr)
	}

	renderMu.Lock()
	defer renderMu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	for y := 0; y < CardHeight; y++ {
		progress := float64(y) / float64(CardHeight)
		c := color.RGBA{uint8(12 + progress*8), uint8(28 + progress*18), uint8(46 + progress*24), 255}
		for x := 0; x < CardWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	accent := ratingColor(data.Rating)
	for y := 0; y < CardHeight; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, accent)
		}
	}

	white := color.RGBA{255, 255, 255, 255}
	muted := color.RGBA{176, 190, 204, 255}
	textWidth := CardWidth - 2*margin

	header := data.Species
	if data.Location != "" {
		header += " near " + data.Location
	}
	drawText(img, fitText(fontBody, header, textWidth), margin, 80, muted, fontBody)

	score := fmt.Sprintf("%d", data.Score)
	drawText(img, score, margin, 290, accent, fontScore)
	scoreWidth := font.MeasureString(fontScore, score).Ceil()
	drawText(img, string(data.Rating), margin+scoreWidth+30, 200, white, fontHeading)
	drawText(img, "/ 100", margin+scoreWidth+30, 270, muted, fontBody)

	if data.Why != "" {
		drawText(img, fitText(fontBody, data.Why, textWidth), margin, 380, white, fontBody)
	}

	if len(data.Windows) > 0 {
		line := "Best: " + strings.Join(data.Windows, "  ·  ")
		drawText(img, fitText(fontBody, line, textWidth), margin, 450, white, fontBody)
	}

	var footer []string
	if data.Moon != "" {
		footer = append(footer, data.Moon)
	}
	if data.Updated != "" {
		footer = append(footer, data.Updated)
	}
	footer = append(footer, "bitecast")
	drawText(img, fitText(fontSmall, strings.Join(footer, "  ·  "), textWidth), margin, CardHeight-50, muted, fontSmall)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

// fitText shortens text with an ellipsis until it fits in maxWidth pixels.
func fitText(face font.Face, text string, maxWidth int) string {
	if font.MeasureString(face, text).Ceil() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimRight(string(runes), " ") + "…"
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			return candidate
		}
	}
	return ""
}

func drawText(img *image.RGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
