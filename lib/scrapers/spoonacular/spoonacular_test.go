package spoonacular

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"budgeat-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

const complexSearchResponse = `{
	"results": [
		{
			"id": 716429,
			"title": "Pasta Night",
			"extendedIngredients": [
				{"name": "pasta"},
				{"name": "tomato sauce"},
				{"name": ""}
			],
			"nutrition": {
				"nutrients": [
					{"name": "Fat", "amount": 20.1, "unit": "g"},
					{"name": "Calories", "amount": 850.4, "unit": "kcal"}
				]
			}
		}
	],
	"totalResults": 1
}`

func TestSearchRecipes(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "spoonacular"})
	defer cleanup()

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recipes/complexSearch", r.URL.Path)
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(complexSearchResponse))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{ApiKey: "test-key", BaseUrl: server.URL})
	require.NoError(t, err)

	recipes, err := client.SearchRecipes(context.Background(), SearchOptions{
		Query:       "pasta",
		Diet:        "vegetarian",
		MaxCalories: 900,
	})
	require.NoError(t, err)

	require.Equal(t, "test-key", gotQuery["apiKey"])
	require.Equal(t, "pasta", gotQuery["query"])
	require.Equal(t, "vegetarian", gotQuery["diet"])
	require.Equal(t, "900", gotQuery["maxCalories"])
	require.Equal(t, "10", gotQuery["number"])

	require.Len(t, recipes, 1)
	require.Equal(t, "Pasta Night", recipes[0].Title)
	require.Equal(t, []string{"pasta", "tomato sauce"}, recipes[0].Ingredients)
	require.Equal(t, 850, recipes[0].Calories)
}

func TestSearchRecipesRetriesOnRateLimit(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "spoonacular"})
	defer cleanup()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [], "totalResults": 0}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{ApiKey: "test-key", BaseUrl: server.URL})
	require.NoError(t, err)

	recipes, err := client.SearchRecipes(context.Background(), SearchOptions{Query: "pasta"})
	require.NoError(t, err)
	require.Empty(t, recipes)
	require.Equal(t, 2, attempts)
}

func TestNewClientRequiresApiKey(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	require.Error(t, err)
}
