package usda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"budgeat-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func TestLookupCalories(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "usda"})
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fdc/v1/foods/search", r.URL.Path)
		require.Equal(t, "DEMO_KEY", r.URL.Query().Get("api_key"))
		require.Equal(t, "eggs", r.URL.Query().Get("query"))
		require.Equal(t, "1", r.URL.Query().Get("pageSize"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"foods": [{
				"description": "Eggs, Grade A, Large",
				"foodNutrients": [
					{"nutrientName": "Protein", "unitName": "G", "value": 12.4},
					{"nutrientName": "Energy", "unitName": "KCAL", "value": 155.1}
				]
			}]
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL})
	energy, err := client.LookupCalories(context.Background(), "eggs")
	require.NoError(t, err)
	require.True(t, energy.Found)
	require.Equal(t, 155, energy.Kcal)
	require.Equal(t, "100g", energy.ServingSize)
}

func TestLookupCaloriesMissIsSoft(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "usda"})
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"foods": []}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseUrl: server.URL})
	energy, err := client.LookupCalories(context.Background(), "unobtainium")
	require.NoError(t, err)
	require.False(t, energy.Found)
	require.Equal(t, 0, energy.Kcal)
}
