package nutrition

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ExportCSV writes entries to a timestamped CSV file under exportsDir and
// returns the file path relative to the data directory, e.g.
// "exports/food_log_20260830_120000.csv".
func ExportCSV(entries []FoodEntry, exportsDir string) (string, error) {
	if err := os.MkdirAll(exportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}

	name := fmt.Sprintf("food_log_%s.csv", time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(exportsDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"date", "food_description", "quantity", "unit",
		"calories", "protein_g", "fat_g", "carbs_g", "meal_type", "source",
	}
	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write export header: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			entry.FoodDescription,
			strconv.FormatFloat(entry.Quantity, 'f', -1, 64),
			entry.Unit,
			strconv.FormatFloat(entry.Calories, 'f', 1, 64),
			strconv.FormatFloat(entry.ProteinG, 'f', 1, 64),
			strconv.FormatFloat(entry.FatG, 'f', 1, 64),
			strconv.FormatFloat(entry.CarbsG, 'f', 1, 64),
			entry.MealType,
			entry.Source,
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write export row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export file: %w", err)
	}

	log.Info().Str("path", path).Int("entries", len(entries)).Msg("Food log exported")

	return filepath.ToSlash(filepath.Join("exports", name)), nil
}
