package nutrition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUSDAClient(t *testing.T, handler http.HandlerFunc) *USDAClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewUSDAClient("test-key", filepath.Join(t.TempDir(), "food_cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	client.baseURL = server.URL
	return client
}

func TestSearchFoods(t *testing.T) {
	t.Run("extracts core nutrients from search hits", func(t *testing.T) {
		var gotQuery, gotPageSize string
		var gotDataTypes []string

		client := newTestUSDAClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/foods/search", r.URL.Path)
			gotQuery = r.URL.Query().Get("query")
			gotPageSize = r.URL.Query().Get("pageSize")
			gotDataTypes = r.URL.Query()["dataType"]

			json.NewEncoder(w).Encode(map[string]any{
				"foods": []map[string]any{
					{
						"fdcId":       747997,
						"description": "Eggs, Grade A, Large",
						"foodNutrients": []map[string]any{
							{"nutrientId": 1003, "nutrientName": "Protein", "value": 12.4, "unitName": "G"},
							{"nutrientId": 1008, "nutrientName": "Energy", "value": 148.0, "unitName": "KCAL"},
							{"nutrientId": 9999, "nutrientName": "Zinc, Zn", "value": 1.1, "unitName": "MG"},
						},
					},
				},
			})
		})

		hits, err := client.SearchFoods(context.Background(), "eggs", 5)
		require.NoError(t, err)

		assert.Equal(t, "eggs", gotQuery)
		assert.Equal(t, "5", gotPageSize)
		assert.Equal(t, []string{"Foundation", "Survey (FNDDS)"}, gotDataTypes)

		require.Len(t, hits, 1)
		hit := hits[0]
		assert.Equal(t, int64(747997), hit.FdcID)
		assert.Equal(t, "Generic", hit.Brand)
		require.Len(t, hit.Nutrients, 2, "non-core nutrients are dropped")
		assert.Equal(t, 12.4, hit.Nutrients["Protein"].Value)
		assert.Equal(t, "KCAL", hit.Nutrients["Energy"].Unit)
	})

	t.Run("no matches yields empty slice", func(t *testing.T) {
		client := newTestUSDAClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"foods": []any{}})
		})

		hits, err := client.SearchFoods(context.Background(), "no such food", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		client := newTestUSDAClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.SearchFoods(context.Background(), "eggs", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})
}

func TestGetFoodPortions(t *testing.T) {
	t.Run("fetches once then serves from cache", func(t *testing.T) {
		requests := 0
		client := newTestUSDAClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests++
			assert.Equal(t, "/food/2709223", r.URL.Path)

			json.NewEncoder(w).Encode(map[string]any{
				"fdcId":       2709223,
				"description": "Avocado, raw",
				"foodPortions": []map[string]any{
					{
						"measureUnit": map[string]any{"name": "cup"},
						"amount":      1.0,
						"gramWeight":  230.0,
					},
					{
						"modifier":   "slice",
						"amount":     1.0,
						"gramWeight": 0.0,
					},
				},
			})
		})

		portions, err := client.GetFoodPortions(context.Background(), 2709223)
		require.NoError(t, err)
		assert.Equal(t, "Avocado, raw", portions.Description)
		require.Len(t, portions.Portions, 1, "portions without gram weight are dropped")
		assert.Equal(t, "1 cup", portions.Portions[0].Label)
		assert.Equal(t, 230.0, portions.Portions[0].GramWeight)

		cached, err := client.GetFoodPortions(context.Background(), 2709223)
		require.NoError(t, err)
		assert.Equal(t, portions, cached)
		assert.Equal(t, 1, requests, "second lookup must hit the cache")
	})

	t.Run("uses modifier when measure unit is missing", func(t *testing.T) {
		client := newTestUSDAClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"fdcId":       1,
				"description": "Bread",
				"foodPortions": []map[string]any{
					{
						"measureUnit": map[string]any{"name": "undetermined"},
						"modifier":    "slice",
						"amount":      2.0,
						"gramWeight":  50.0,
					},
				},
			})
		})

		portions, err := client.GetFoodPortions(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, portions.Portions, 1)
		assert.Equal(t, "2 slice", portions.Portions[0].Label)
	})
}
