package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pachico/pachico/pkg/agent"
	"github.com/pachico/pachico/pkg/tools"
)

// defaultUserID identifies the log owner until multi-user support lands.
const defaultUserID = 1

// ToolDeps carries the collaborators the nutrition tools close over.
type ToolDeps struct {
	Store      *Store
	USDA       *USDAClient
	ExportsDir string
}

// RegisterTools registers the nutrition tool set on the registry.
func RegisterTools(registry *tools.Registry, deps ToolDeps) error {
	defs := []tools.Definition{
		searchFoodsTool(deps),
		foodPortionsTool(deps),
		saveFoodEntryTool(deps),
		queryEntriesTool(deps),
		exportCSVTool(deps),
		generateChartTool(deps),
	}

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func searchFoodsTool(deps ToolDeps) tools.Definition {
	return tools.Definition{
		Name: agent.ToolSearchFoods,
		Description: "Search USDA FoodData Central for food items. Returns matching foods " +
			"with nutritional data per 100g, or an empty list [] if nothing matched. " +
			"If empty, estimate the nutrition values instead.",
		Parameters: []tools.Parameter{
			{
				Name: "query", Type: "string", Required: true,
				Description: "Food description to search (e.g., \"chicken breast\", \"banana\"). Keep it simple, just the food name, no quantities.",
			},
			{
				Name: "limit", Type: "number",
				Description: "Max results (default: 5)",
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			limit := intArg(args, "limit", 5)

			hits, err := deps.USDA.SearchFoods(ctx, query, limit)
			if err != nil {
				return "", err
			}
			if len(hits) == 0 {
				return "[]", nil
			}
			return marshalOutput(hits)
		},
	}
}

func foodPortionsTool(deps ToolDeps) tools.Definition {
	return tools.Definition{
		Name: agent.ToolFoodPortions,
		Description: "Look up household portion sizes (cups, slices, pieces) and their " +
			"gram weights for a USDA food. Use it to convert a user's household measure " +
			"to grams before calculating nutrition.",
		Parameters: []tools.Parameter{
			{
				Name: "fdc_id", Type: "number", Required: true,
				Description: "USDA FoodData Central ID from a search result",
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			portions, err := deps.USDA.GetFoodPortions(ctx, int64(floatArg(args, "fdc_id")))
			if err != nil {
				return "", err
			}
			return marshalOutput(portions)
		},
	}
}

func saveFoodEntryTool(deps ToolDeps) tools.Definition {
	return tools.Definition{
		Name: agent.ToolSaveFoodEntry,
		Description: "Saves the food item to the user's daily record. " +
			"IMPORTANT: only call this AFTER the user has confirmed the food entry. " +
			"All nutritional values must be totals for the user's quantity.",
		Parameters: []tools.Parameter{
			{Name: "food_description", Type: "string", Required: true, Description: "Name of the food (e.g., \"Chicken breast, grilled\")"},
			{Name: "calories", Type: "number", Required: true, Description: "Total calories for the user's quantity"},
			{Name: "protein_g", Type: "number", Required: true, Description: "Protein in grams for the user's quantity"},
			{Name: "fat_g", Type: "number", Required: true, Description: "Fat in grams for the user's quantity"},
			{Name: "carbs_g", Type: "number", Required: true, Description: "Carbohydrates in grams for the user's quantity"},
			{Name: "quantity", Type: "number", Required: true, Description: "The amount the user consumed (e.g., 2, 1.5, 100)"},
			{Name: "unit", Type: "string", Required: true, Description: "Unit of measurement (e.g., \"pieces\", \"grams\", \"cups\", \"oz\")"},
			{Name: "fdc_id", Type: "number", Description: "USDA FoodData Central ID, omit if estimated"},
			{Name: "source", Type: "string", Enum: []string{"usda", "llm_estimation"}, Description: "\"usda\" if from search, \"llm_estimation\" if estimated"},
			{Name: "meal_type", Type: "string", Enum: []string{"breakfast", "lunch", "dinner", "snack"}, Description: "Meal type if the user mentioned it"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			entry := FoodEntry{
				UserID:          defaultUserID,
				FoodDescription: stringArg(args, "food_description"),
				Calories:        floatArg(args, "calories"),
				ProteinG:        floatArg(args, "protein_g"),
				FatG:            floatArg(args, "fat_g"),
				CarbsG:          floatArg(args, "carbs_g"),
				Quantity:        floatArg(args, "quantity"),
				Unit:            stringArg(args, "unit"),
				Source:          stringArg(args, "source"),
				MealType:        stringArg(args, "meal_type"),
			}
			if raw, ok := args["fdc_id"].(float64); ok {
				id := int64(raw)
				entry.FdcID = &id
			}

			saved, err := deps.Store.Save(ctx, entry)
			if err != nil {
				return "", err
			}

			return marshalOutput(map[string]any{
				"result":   "saved",
				"entry_id": saved.ID,
				"food":     saved.FoodDescription,
				"calories": saved.Calories,
			})
		},
	}
}

func queryEntriesTool(deps ToolDeps) tools.Definition {
	return tools.Definition{
		Name: agent.ToolQueryEntries,
		Description: "Query the user's food log. Returns matching entries in chronological " +
			"order plus totals for calories, protein, fat and carbs. All filters are optional.",
		Parameters: []tools.Parameter{
			{Name: "start_date", Type: "string", Description: "Inclusive start date, YYYY-MM-DD"},
			{Name: "end_date", Type: "string", Description: "Inclusive end date, YYYY-MM-DD"},
			{Name: "meal_type", Type: "string", Enum: []string{"breakfast", "lunch", "dinner", "snack"}, Description: "Filter by meal type"},
			{Name: "keyword", Type: "string", Description: "Filter by food description keyword (e.g., \"chicken\")"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			entries, totals, err := deps.Store.Query(ctx, QueryFilter{
				UserID:    defaultUserID,
				StartDate: stringArg(args, "start_date"),
				EndDate:   stringArg(args, "end_date"),
				MealType:  stringArg(args, "meal_type"),
				Keyword:   stringArg(args, "keyword"),
			})
			if err != nil {
				return "", err
			}

			if entries == nil {
				entries = []FoodEntry{}
			}
			return marshalOutput(map[string]any{
				"count":   len(entries),
				"totals":  totals,
				"entries": entries,
			})
		},
	}
}

func exportCSVTool(deps ToolDeps) tools.Definition {
	return tools.Definition{
		Name: agent.ToolExportCSV,
		Description: "Export the user's food log to a CSV file. Accepts the same filters " +
			"as 'query_food_entries'. Returns the file path to include in your answer, " +
			"or result \"no_data\" when nothing matched.",
		Parameters: []tools.Parameter{
			{Name: "start_date", Type: "string", Description: "Inclusive start date, YYYY-MM-DD"},
			{Name: "end_date", Type: "string", Description: "Inclusive end date, YYYY-MM-DD"},
			{Name: "meal_type", Type: "string", Enum: []string{"breakfast", "lunch", "dinner", "snack"}, Description: "Filter by meal type"},
			{Name: "keyword", Type: "string", Description: "Filter by food description keyword (e.g., \"chicken\")"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			entries, _, err := deps.Store.Query(ctx, QueryFilter{
				UserID:    defaultUserID,
				StartDate: stringArg(args, "start_date"),
				EndDate:   stringArg(args, "end_date"),
				MealType:  stringArg(args, "meal_type"),
				Keyword:   stringArg(args, "keyword"),
			})
			if err != nil {
				return "", err
			}
			if len(entries) == 0 {
				return marshalOutput(map[string]any{"result": "no_data"})
			}

			path, err := ExportCSV(entries, deps.ExportsDir)
			if err != nil {
				return "", err
			}
			return marshalOutput(map[string]any{"file_path": path})
		},
	}
}

func generateChartTool(deps ToolDeps) tools.Definition {
	return tools.Definition{
		Name: agent.ToolGenerateChart,
		Description: "Generate a bar chart image of the user's daily nutrition totals. " +
			"Returns the file path of the rendered PNG to include in your answer.",
		Parameters: []tools.Parameter{
			{
				Name: "metric", Type: "string", Required: true,
				Enum:        []string{"calories", "protein", "fat", "carbs"},
				Description: "Which nutritional metric to chart",
			},
			{
				Name: "period", Type: "string", Required: true,
				Enum:        []string{"weekly", "monthly"},
				Description: "weekly = last 7 days, monthly = last 30 days",
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			metric := strings.ToLower(stringArg(args, "metric"))
			period := strings.ToLower(stringArg(args, "period"))

			days := 7
			if period == "monthly" {
				days = 30
			}

			totals, err := deps.Store.DailyTotals(ctx, defaultUserID, metric, days)
			if err != nil {
				return "", err
			}

			path, err := RenderChart(totals, metric, deps.ExportsDir)
			if err != nil {
				return "", err
			}
			return marshalOutput(map[string]any{"file_path": path, "metric": metric, "days": days})
		},
	}
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

func floatArg(args map[string]any, key string) float64 {
	value, _ := args[key].(float64)
	return value
}

func intArg(args map[string]any, key string, fallback int) int {
	if value, ok := args[key].(float64); ok {
		return int(value)
	}
	return fallback
}

func marshalOutput(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool output: %w", err)
	}
	return string(data), nil
}
