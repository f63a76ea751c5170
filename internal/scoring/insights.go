package scoring

import "github.com/lox/bitecast/internal/models"

type toneText struct {
	positive string
	negative string
}

func (t toneText) pick(points float64) string {
	if points >= 0 {
		return t.positive
	}
	return t.negative
}

var insights = map[models.FactorKey]toneText{
	models.FactorPressureTrend:   {"Slightly falling or steady pressure supports activity.", "Fast pressure shifts likely suppress strikes."},
	models.FactorPressureLevel:   {"Pressure level is in a productive range.", "Pressure level is outside the ideal zone."},
	models.FactorWind:            {"Light-to-moderate wind improves bait movement.", "Strong or gusty wind makes fish less predictable."},
	models.FactorPrecipitation:   {"Low rain risk keeps conditions stable.", "Elevated rain risk lowers confidence."},
	models.FactorCloudCover:      {"Moderate cloud cover can extend feeding windows.", "Cloud conditions are less favorable right now."},
	models.FactorTemperature:     {"Water temperature pattern looks stable for feeding.", "Abrupt temperature swings may slow activity."},
	models.FactorMoon:            {"Moon phase offers a small tailwind.", "Moon phase impact is limited at this time."},
	models.FactorSpeciesBehavior: {"Time of day and season suit this species' feeding habits.", "This species is outside its usual feeding pattern."},
}

var whyLines = map[models.FactorKey]toneText{
	models.FactorPressureTrend:   {"Falling/steady pressure is helping fish activity.", "Pressure is moving too sharply."},
	models.FactorPressureLevel:   {"Pressure level is close to ideal.", "Pressure level is less favorable right now."},
	models.FactorWind:            {"Moderate wind is improving water movement.", "Wind and gusts are too aggressive."},
	models.FactorPrecipitation:   {"Rain risk is low enough for stable feeding.", "Rain probability is suppressing the bite."},
	models.FactorCloudCover:      {"Cloud cover is in a useful range.", "Cloud cover is less supportive today."},
	models.FactorTemperature:     {"Temperature is holding in a favorable band.", "Temperature changes are too abrupt."},
	models.FactorMoon:            {"Moon phase gives a modest boost.", "Moon phase is neutral to weak."},
	models.FactorSpeciesBehavior: {"Feeding habits line up with these hours.", "Timing is off for this species right now."},
}

func insightFor(f models.FactorKey, points float64) string {
	if t, ok := insights[f]; ok {
		return t.pick(points)
	}
	return "Mixed impact."
}

func whyLine(c models.FactorContribution) string {
	if t, ok := whyLines[c.Factor]; ok {
		return t.pick(c.Points)
	}
	return c.Insight
}
