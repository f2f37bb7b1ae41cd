package nutrition

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const usdaBaseURL = "https://api.nal.usda.gov/fdc/v1"

// USDA requests can take a while under load; the original service caps
// them at 10 seconds.
const usdaRequestTimeout = 10 * time.Second

// coreNutrientIDs are the FoodData Central nutrient ids for protein, fat,
// carbohydrate and energy.
var coreNutrientIDs = map[int]bool{
	1003: true,
	1004: true,
	1005: true,
	1008: true,
}

// FoodNutrient is one nutrient value from a search hit.
type FoodNutrient struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// FoodHit is one search result with its core nutrients per 100g.
type FoodHit struct {
	FdcID       int64                   `json:"fdc_id"`
	Description string                  `json:"description"`
	Brand       string                  `json:"brand"`
	Nutrients   map[string]FoodNutrient `json:"nutrients"`
}

// FoodPortion is one household measure with its gram weight.
type FoodPortion struct {
	Label      string  `json:"label"`
	GramWeight float64 `json:"gram_weight"`
}

// FoodPortions lists the known portion sizes for a food.
type FoodPortions struct {
	FdcID       int64         `json:"fdc_id"`
	Description string        `json:"description"`
	Portions    []FoodPortion `json:"portions"`
}

// USDAClient queries FoodData Central. Per-food detail responses are cached
// in SQLite since the upstream API is slow and the data is static.
type USDAClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *sql.DB
}

// NewUSDAClient creates a client with a detail cache at cachePath.
func NewUSDAClient(apiKey, cachePath string) (*USDAClient, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", cachePath)
	cache, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open food cache: %w", err)
	}

	if _, err := cache.Exec(`
		CREATE TABLE IF NOT EXISTS food_details (
			fdc_id INTEGER PRIMARY KEY,
			data TEXT NOT NULL
		)`); err != nil {
		cache.Close()
		return nil, fmt.Errorf("failed to migrate food cache: %w", err)
	}

	return &USDAClient{
		apiKey:     apiKey,
		baseURL:    usdaBaseURL,
		httpClient: &http.Client{Timeout: usdaRequestTimeout},
		cache:      cache,
	}, nil
}

// SearchFoods searches FoodData Central for foods matching query. Only
// Foundation and Survey (FNDDS) records are requested to keep branded
// duplicates out of the results. Nutrient values are per 100g.
func (c *USDAClient) SearchFoods(ctx context.Context, query string, limit int) ([]FoodHit, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(limit))
	params.Add("dataType", "Foundation")
	params.Add("dataType", "Survey (FNDDS)")

	endpoint := fmt.Sprintf("%s/foods/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("food search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("food search returned status %d", resp.StatusCode)
	}

	var payload struct {
		Foods []struct {
			FdcID         int64  `json:"fdcId"`
			Description   string `json:"description"`
			BrandOwner    string `json:"brandOwner"`
			FoodNutrients []struct {
				NutrientID   int     `json:"nutrientId"`
				NutrientName string  `json:"nutrientName"`
				Value        float64 `json:"value"`
				UnitName     string  `json:"unitName"`
			} `json:"foodNutrients"`
		} `json:"foods"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]FoodHit, 0, len(payload.Foods))
	for _, food := range payload.Foods {
		nutrients := map[string]FoodNutrient{}
		for _, n := range food.FoodNutrients {
			if coreNutrientIDs[n.NutrientID] {
				nutrients[n.NutrientName] = FoodNutrient{Value: n.Value, Unit: n.UnitName}
			}
		}

		brand := food.BrandOwner
		if brand == "" {
			brand = "Generic"
		}

		hits = append(hits, FoodHit{
			FdcID:       food.FdcID,
			Description: food.Description,
			Brand:       brand,
			Nutrients:   nutrients,
		})
	}

	log.Debug().Str("query", query).Int("hits", len(hits)).Msg("Food search completed")

	return hits, nil
}

// GetFoodPortions fetches portion sizes for a food id, serving from the
// cache when possible.
func (c *USDAClient) GetFoodPortions(ctx context.Context, fdcID int64) (*FoodPortions, error) {
	if cached, err := c.cachedPortions(ctx, fdcID); err != nil {
		return nil, err
	} else if cached != nil {
		log.Debug().Int64("fdc_id", fdcID).Msg("Food portions served from cache")
		return cached, nil
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	endpoint := fmt.Sprintf("%s/food/%d?%s", c.baseURL, fdcID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build food detail request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("food detail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("food detail returned status %d", resp.StatusCode)
	}

	var payload struct {
		FdcID        int64  `json:"fdcId"`
		Description  string `json:"description"`
		FoodPortions []struct {
			MeasureUnit struct {
				Name string `json:"name"`
			} `json:"measureUnit"`
			Modifier   string  `json:"modifier"`
			Amount     float64 `json:"amount"`
			GramWeight float64 `json:"gramWeight"`
		} `json:"foodPortions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode food detail response: %w", err)
	}

	portions := &FoodPortions{
		FdcID:       payload.FdcID,
		Description: payload.Description,
	}
	for _, p := range payload.FoodPortions {
		if p.GramWeight == 0 {
			continue
		}
		// Measures come as either a unit name (cup) or a modifier (slice).
		measure := p.MeasureUnit.Name
		if measure == "" || measure == "undetermined" {
			measure = p.Modifier
		}
		amount := p.Amount
		if amount == 0 {
			amount = 1
		}
		portions.Portions = append(portions.Portions, FoodPortion{
			Label:      fmt.Sprintf("%g %s", amount, measure),
			GramWeight: p.GramWeight,
		})
	}

	if err := c.storePortions(ctx, fdcID, portions); err != nil {
		log.Warn().Int64("fdc_id", fdcID).Err(err).Msg("Failed to cache food portions")
	}

	return portions, nil
}

func (c *USDAClient) cachedPortions(ctx context.Context, fdcID int64) (*FoodPortions, error) {
	var data string
	err := c.cache.QueryRowContext(ctx,
		"SELECT data FROM food_details WHERE fdc_id = ?", fdcID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read food cache: %w", err)
	}

	var portions FoodPortions
	if err := json.Unmarshal([]byte(data), &portions); err != nil {
		return nil, fmt.Errorf("failed to decode cached food portions: %w", err)
	}
	return &portions, nil
}

func (c *USDAClient) storePortions(ctx context.Context, fdcID int64, portions *FoodPortions) error {
	data, err := json.Marshal(portions)
	if err != nil {
		return err
	}
	_, err = c.cache.ExecContext(ctx,
		"INSERT OR REPLACE INTO food_details (fdc_id, data) VALUES (?, ?)",
		fdcID, string(data),
	)
	return err
}

// Close closes the detail cache.
func (c *USDAClient) Close() error {
	return c.cache.Close()
}
