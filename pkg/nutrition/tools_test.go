package nutrition

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pachico/pachico/pkg/agent"
	"github.com/pachico/pachico/pkg/tools"
)

func newToolHarness(t *testing.T, usdaHandler http.HandlerFunc) (*tools.Registry, ToolDeps) {
	t.Helper()

	dataDir := t.TempDir()

	store, err := OpenStore(filepath.Join(dataDir, "nutrition.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if usdaHandler == nil {
		usdaHandler = func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"foods": []any{}})
		}
	}
	usda := newTestUSDAClient(t, usdaHandler)

	deps := ToolDeps{
		Store:      store,
		USDA:       usda,
		ExportsDir: filepath.Join(dataDir, "exports"),
	}

	registry := tools.NewRegistry()
	require.NoError(t, RegisterTools(registry, deps))

	return registry, deps
}

func TestRegisterTools(t *testing.T) {
	registry, _ := newToolHarness(t, nil)

	for _, name := range []string{
		agent.ToolSearchFoods,
		agent.ToolFoodPortions,
		agent.ToolSaveFoodEntry,
		agent.ToolQueryEntries,
		agent.ToolExportCSV,
		agent.ToolGenerateChart,
	} {
		_, ok := registry.Get(name)
		assert.True(t, ok, name)
	}
}

func TestSearchFoodsTool(t *testing.T) {
	t.Run("returns empty list marker when nothing matched", func(t *testing.T) {
		registry, _ := newToolHarness(t, nil)

		result := registry.Execute(context.Background(), agent.ToolSearchFoods, map[string]any{"query": "unicorn steak"})
		require.True(t, result.Success, result.Error)
		assert.Equal(t, "[]", result.Output)
	})

	t.Run("returns hits as JSON", func(t *testing.T) {
		registry, _ := newToolHarness(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"foods": []map[string]any{
					{"fdcId": 1, "description": "Banana, raw"},
				},
			})
		})

		result := registry.Execute(context.Background(), agent.ToolSearchFoods, map[string]any{"query": "banana"})
		require.True(t, result.Success, result.Error)

		var hits []FoodHit
		require.NoError(t, json.Unmarshal([]byte(result.Output), &hits))
		require.Len(t, hits, 1)
		assert.Equal(t, "Banana, raw", hits[0].Description)
	})

	t.Run("requires query argument", func(t *testing.T) {
		registry, _ := newToolHarness(t, nil)
		result := registry.Execute(context.Background(), agent.ToolSearchFoods, map[string]any{})
		assert.False(t, result.Success)
	})
}

func TestSaveFoodEntryTool(t *testing.T) {
	t.Run("persists the entry", func(t *testing.T) {
		registry, deps := newToolHarness(t, nil)

		result := registry.Execute(context.Background(), agent.ToolSaveFoodEntry, map[string]any{
			"food_description": "Eggs, scrambled",
			"calories":         140.0,
			"protein_g":        12.0,
			"fat_g":            10.0,
			"carbs_g":          1.0,
			"quantity":         2.0,
			"unit":             "pieces",
			"fdc_id":           747997.0,
			"source":           "usda",
			"meal_type":        "breakfast",
		})
		require.True(t, result.Success, result.Error)
		assert.Contains(t, result.Output, "saved")

		entries, totals, err := deps.Store.Query(context.Background(), QueryFilter{UserID: 1})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 140.0, totals.Calories)
		assert.Equal(t, "breakfast", entries[0].MealType)
		require.NotNil(t, entries[0].FdcID)
		assert.Equal(t, int64(747997), *entries[0].FdcID)
	})

	t.Run("rejects unknown source", func(t *testing.T) {
		registry, _ := newToolHarness(t, nil)

		result := registry.Execute(context.Background(), agent.ToolSaveFoodEntry, map[string]any{
			"food_description": "Mystery",
			"calories":         100.0,
			"protein_g":        1.0,
			"fat_g":            1.0,
			"carbs_g":          1.0,
			"quantity":         1.0,
			"unit":             "bowl",
			"source":           "guesswork",
		})
		assert.False(t, result.Success)
	})
}

func TestQueryEntriesTool(t *testing.T) {
	registry, deps := newToolHarness(t, nil)

	_, err := deps.Store.Save(context.Background(), entryOn(time.Now().UTC(), "chicken breast", 300))
	require.NoError(t, err)

	t.Run("returns entries with totals", func(t *testing.T) {
		result := registry.Execute(context.Background(), agent.ToolQueryEntries, map[string]any{
			"keyword": "chicken",
		})
		require.True(t, result.Success, result.Error)

		var payload struct {
			Count   int         `json:"count"`
			Totals  Totals      `json:"totals"`
			Entries []FoodEntry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal([]byte(result.Output), &payload))
		assert.Equal(t, 1, payload.Count)
		assert.Equal(t, 300.0, payload.Totals.Calories)
	})

	t.Run("empty result keeps entries as an array", func(t *testing.T) {
		result := registry.Execute(context.Background(), agent.ToolQueryEntries, map[string]any{
			"keyword": "pizza",
		})
		require.True(t, result.Success, result.Error)
		assert.Contains(t, result.Output, `"entries":[]`)
	})
}

func TestExportCSVTool(t *testing.T) {
	t.Run("reports no_data for an empty log", func(t *testing.T) {
		registry, _ := newToolHarness(t, nil)

		result := registry.Execute(context.Background(), agent.ToolExportCSV, map[string]any{})
		require.True(t, result.Success, result.Error)
		assert.Contains(t, result.Output, "no_data")
	})

	t.Run("writes a CSV file and returns its relative path", func(t *testing.T) {
		registry, deps := newToolHarness(t, nil)

		_, err := deps.Store.Save(context.Background(), entryOn(time.Now().UTC(), "salmon, grilled", 280))
		require.NoError(t, err)

		result := registry.Execute(context.Background(), agent.ToolExportCSV, map[string]any{})
		require.True(t, result.Success, result.Error)

		var payload struct {
			FilePath string `json:"file_path"`
		}
		require.NoError(t, json.Unmarshal([]byte(result.Output), &payload))
		assert.Contains(t, payload.FilePath, "exports/")
		assert.Contains(t, payload.FilePath, ".csv")

		data, err := os.ReadFile(filepath.Join(deps.ExportsDir, filepath.Base(payload.FilePath)))
		require.NoError(t, err)
		assert.Contains(t, string(data), "salmon, grilled")
	})

	t.Run("applies meal type and keyword filters", func(t *testing.T) {
		registry, deps := newToolHarness(t, nil)

		breakfast := entryOn(time.Now().UTC(), "eggs, scrambled", 140)
		breakfast.MealType = "breakfast"
		_, err := deps.Store.Save(context.Background(), breakfast)
		require.NoError(t, err)

		dinner := entryOn(time.Now().UTC(), "steak, grilled", 500)
		dinner.MealType = "dinner"
		_, err = deps.Store.Save(context.Background(), dinner)
		require.NoError(t, err)

		exported := func(args map[string]any) string {
			result := registry.Execute(context.Background(), agent.ToolExportCSV, args)
			require.True(t, result.Success, result.Error)

			var payload struct {
				FilePath string `json:"file_path"`
			}
			require.NoError(t, json.Unmarshal([]byte(result.Output), &payload))

			data, err := os.ReadFile(filepath.Join(deps.ExportsDir, filepath.Base(payload.FilePath)))
			require.NoError(t, err)
			return string(data)
		}

		byMeal := exported(map[string]any{"meal_type": "breakfast"})
		assert.Contains(t, byMeal, "eggs, scrambled")
		assert.NotContains(t, byMeal, "steak")

		byKeyword := exported(map[string]any{"keyword": "steak"})
		assert.Contains(t, byKeyword, "steak, grilled")
		assert.NotContains(t, byKeyword, "eggs")
	})
}

func TestFoodPortionsTool(t *testing.T) {
	t.Run("returns portion labels with gram weights", func(t *testing.T) {
		registry, _ := newToolHarness(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"fdcId":       747997,
				"description": "Eggs, Grade A, Large",
				"foodPortions": []map[string]any{
					{"measureUnit": map[string]any{"name": "undetermined"}, "modifier": "large", "amount": 1, "gramWeight": 50.0},
				},
			})
		})

		result := registry.Execute(context.Background(), agent.ToolFoodPortions, map[string]any{"fdc_id": 747997.0})
		require.True(t, result.Success, result.Error)

		var portions FoodPortions
		require.NoError(t, json.Unmarshal([]byte(result.Output), &portions))
		assert.Equal(t, "Eggs, Grade A, Large", portions.Description)
		require.Len(t, portions.Portions, 1)
		assert.Equal(t, "1 large", portions.Portions[0].Label)
		assert.Equal(t, 50.0, portions.Portions[0].GramWeight)
	})

	t.Run("requires fdc_id argument", func(t *testing.T) {
		registry, _ := newToolHarness(t, nil)

		result := registry.Execute(context.Background(), agent.ToolFoodPortions, map[string]any{})
		assert.False(t, result.Success)
	})
}

func TestGenerateChartTool(t *testing.T) {
	t.Run("renders a PNG for the requested period", func(t *testing.T) {
		registry, deps := newToolHarness(t, nil)

		_, err := deps.Store.Save(context.Background(), entryOn(time.Now().UTC(), "pasta", 600))
		require.NoError(t, err)

		result := registry.Execute(context.Background(), agent.ToolGenerateChart, map[string]any{
			"metric": "calories",
			"period": "weekly",
		})
		require.True(t, result.Success, result.Error)

		var payload struct {
			FilePath string `json:"file_path"`
			Days     int    `json:"days"`
		}
		require.NoError(t, json.Unmarshal([]byte(result.Output), &payload))
		assert.Equal(t, 7, payload.Days)
		assert.Contains(t, payload.FilePath, ".png")

		info, err := os.Stat(filepath.Join(deps.ExportsDir, filepath.Base(payload.FilePath)))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("rejects unknown metric", func(t *testing.T) {
		registry, _ := newToolHarness(t, nil)

		result := registry.Execute(context.Background(), agent.ToolGenerateChart, map[string]any{
			"metric": "sugar",
			"period": "weekly",
		})
		assert.False(t, result.Success)
	})
}
