package nutrition

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/rs/zerolog/log"
)

var metricTitles = map[string]string{
	"calories": "Calories (kcal)",
	"protein":  "Protein (g)",
	"fat":      "Fat (g)",
	"carbs":    "Carbs (g)",
}

// RenderChart renders daily totals as a bar chart PNG under exportsDir and
// returns the file path relative to the data directory.
func RenderChart(totals []DailyTotal, metric string, exportsDir string) (string, error) {
	title, ok := metricTitles[metric]
	if !ok {
		return "", fmt.Errorf("unknown metric: %s", metric)
	}
	if len(totals) == 0 {
		return "", fmt.Errorf("no data points to chart")
	}

	if err := os.MkdirAll(exportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}

	bars := make([]chart.Value, 0, len(totals))
	for _, total := range totals {
		label := total.Date
		if t, err := time.Parse("2006-01-02", total.Date); err == nil {
			label = t.Format("Jan 2")
		}
		// Daily labels get noisy past a week; keep roughly one per five days.
		if len(totals) > 10 && len(bars)%5 != 0 {
			label = ""
		}
		bars = append(bars, chart.Value{Label: label, Value: total.Value})
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    900,
		Height:   450,
		BarWidth: 860 / len(bars),
		Bars:     bars,
	}

	// A period with no entries still renders; pin the axis so an all-zero
	// series has a valid range.
	max := 0.0
	for _, total := range totals {
		if total.Value > max {
			max = total.Value
		}
	}
	if max == 0 {
		graph.YAxis = chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		}
	}

	name := fmt.Sprintf("chart_%s_%s.png", metric, time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(exportsDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}

	log.Info().Str("path", path).Str("metric", metric).Int("days", len(totals)).Msg("Chart rendered")

	return filepath.ToSlash(filepath.Join("exports", name)), nil
}
