// Package nutrition provides the food log storage, the USDA FoodData
// Central client, exports and chart rendering, plus the tool definitions
// that expose them to task handlers.
package nutrition

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// FoodEntry is one logged food item. Nutritional values are totals for the
// recorded quantity, not per 100g.
type FoodEntry struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	FoodDescription string    `json:"food_description"`
	Calories        float64   `json:"calories"`
	ProteinG        float64   `json:"protein_g"`
	FatG            float64   `json:"fat_g"`
	CarbsG          float64   `json:"carbs_g"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	FdcID           *int64    `json:"fdc_id,omitempty"`
	Source          string    `json:"source"`
	MealType        string    `json:"meal_type,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// QueryFilter narrows a food log query. Zero values mean no constraint;
// dates are YYYY-MM-DD and inclusive.
type QueryFilter struct {
	UserID    int64
	StartDate string
	EndDate   string
	MealType  string
	Keyword   string
}

// Totals aggregates nutritional values over a result set.
type Totals struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

// DailyTotal is one day's aggregate for chart rendering.
type DailyTotal struct {
	Date  string
	Value float64
}

// Store persists food entries in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the food log database at path.
func OpenStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open food log database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS food_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		food_description TEXT NOT NULL,
		calories REAL NOT NULL,
		protein_g REAL NOT NULL,
		fat_g REAL NOT NULL,
		carbs_g REAL NOT NULL,
		quantity REAL NOT NULL,
		unit TEXT NOT NULL,
		fdc_id INTEGER,
		source TEXT NOT NULL DEFAULT 'usda',
		meal_type TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_food_entries_user ON food_entries(user_id);
	CREATE INDEX IF NOT EXISTS idx_food_entries_created ON food_entries(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate food log database: %w", err)
	}

	log.Info().Str("path", path).Msg("Food log database opened")

	return &Store{db: db}, nil
}

// Save inserts a food entry and returns it with the assigned id.
func (s *Store) Save(ctx context.Context, entry FoodEntry) (FoodEntry, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Source == "" {
		entry.Source = "usda"
	}

	var fdcID sql.NullInt64
	if entry.FdcID != nil {
		fdcID = sql.NullInt64{Int64: *entry.FdcID, Valid: true}
	}
	var mealType sql.NullString
	if entry.MealType != "" {
		mealType = sql.NullString{String: entry.MealType, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO food_entries
			(user_id, food_description, calories, protein_g, fat_g, carbs_g,
			 quantity, unit, fdc_id, source, meal_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.FoodDescription, entry.Calories, entry.ProteinG,
		entry.FatG, entry.CarbsG, entry.Quantity, entry.Unit, fdcID,
		entry.Source, mealType, entry.CreatedAt,
	)
	if err != nil {
		return FoodEntry{}, fmt.Errorf("failed to save food entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return FoodEntry{}, fmt.Errorf("failed to read food entry id: %w", err)
	}
	entry.ID = id

	log.Debug().
		Int64("entry_id", id).
		Str("food", entry.FoodDescription).
		Float64("calories", entry.Calories).
		Msg("Food entry saved")

	return entry, nil
}

// Query returns matching entries in chronological order plus their totals.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]FoodEntry, Totals, error) {
	query := `
		SELECT id, user_id, food_description, calories, protein_g, fat_g,
		       carbs_g, quantity, unit, fdc_id, source, meal_type, created_at
		FROM food_entries WHERE 1=1`
	args := []any{}

	if filter.UserID != 0 {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.StartDate != "" {
		query += " AND date(created_at) >= date(?)"
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += " AND date(created_at) <= date(?)"
		args = append(args, filter.EndDate)
	}
	if filter.MealType != "" {
		query += " AND meal_type = ?"
		args = append(args, filter.MealType)
	}
	if filter.Keyword != "" {
		query += " AND food_description LIKE ?"
		args = append(args, "%"+filter.Keyword+"%")
	}

	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Totals{}, fmt.Errorf("failed to query food entries: %w", err)
	}
	defer rows.Close()

	var entries []FoodEntry
	var totals Totals

	for rows.Next() {
		var entry FoodEntry
		var fdcID sql.NullInt64
		var mealType sql.NullString

		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.FoodDescription, &entry.Calories,
			&entry.ProteinG, &entry.FatG, &entry.CarbsG, &entry.Quantity,
			&entry.Unit, &fdcID, &entry.Source, &mealType, &entry.CreatedAt,
		); err != nil {
			return nil, Totals{}, fmt.Errorf("failed to scan food entry: %w", err)
		}

		if fdcID.Valid {
			id := fdcID.Int64
			entry.FdcID = &id
		}
		if mealType.Valid {
			entry.MealType = mealType.String
		}

		totals.Calories += entry.Calories
		totals.ProteinG += entry.ProteinG
		totals.FatG += entry.FatG
		totals.CarbsG += entry.CarbsG

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, Totals{}, fmt.Errorf("failed to read food entries: %w", err)
	}

	return entries, totals, nil
}

// DailyTotals returns one aggregate per calendar day over the trailing
// window, zero-filled so every day appears even without entries. Metric is
// one of calories, protein, fat, carbs.
func (s *Store) DailyTotals(ctx context.Context, userID int64, metric string, days int) ([]DailyTotal, error) {
	column, ok := metricColumns[metric]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", metric)
	}
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive")
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -(days - 1))

	query := fmt.Sprintf(`
		SELECT date(created_at) AS day, SUM(%s)
		FROM food_entries
		WHERE date(created_at) >= date(?) AND date(created_at) <= date(?)`, column)
	args := []any{start.Format("2006-01-02"), end.Format("2006-01-02")}

	if userID != 0 {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " GROUP BY day"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate food entries: %w", err)
	}
	defer rows.Close()

	byDay := map[string]float64{}
	for rows.Next() {
		var day string
		var value float64
		if err := rows.Scan(&day, &value); err != nil {
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		byDay[day] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily totals: %w", err)
	}

	totals := make([]DailyTotal, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		totals = append(totals, DailyTotal{Date: day, Value: byDay[day]})
	}

	return totals, nil
}

var metricColumns = map[string]string{
	"calories": "calories",
	"protein":  "protein_g",
	"fat":      "fat_g",
	"carbs":    "carbs_g",
}

// ValidMetric reports whether metric names a chartable column.
func ValidMetric(metric string) bool {
	_, ok := metricColumns[strings.ToLower(metric)]
	return ok
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
