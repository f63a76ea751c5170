package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/lox/bitecast/internal/models"
)

type geocodeResponse struct {
	Results []struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		Admin1    string  `json:"admin1"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
	} `json:"results"`
}

// SearchLocations looks up places matching query. A blank query returns no
// results without calling the API.
func (o *OpenMeteo) SearchLocations(ctx context.Context, query string) ([]models.GeocodeResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.GeocodeResult{}, nil
	}

	params := url.Values{}
	params.Set("name", query)
	params.Set("count", "8")
	params.Set("language", "en")
	params.Set("format", "json")

	body, _, err := o.get(ctx, "geocode", o.geocodeURL, params)
	if err != nil {
		return nil, err
	}

	var data geocodeResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	results := make([]models.GeocodeResult, 0, len(data.Results))
	for _, r := range data.Results {
		results = append(results, models.GeocodeResult{
			ID:        r.ID,
			Name:      r.Name,
			Admin1:    r.Admin1,
			Country:   r.Country,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Timezone:  r.Timezone,
		})
	}
	return results, nil
}

// Label renders a geocode result the way it is shown to the user, e.g.
// "Denver, Colorado, United States".
func Label(r models.GeocodeResult) string {
	parts := []string{r.Name}
	if r.Admin1 != "" && r.Admin1 != r.Name {
		parts = append(parts, r.Admin1)
	}
	if r.Country != "" {
		parts = append(parts, r.Country)
	}
	return strings.Join(parts, ", ")
}
