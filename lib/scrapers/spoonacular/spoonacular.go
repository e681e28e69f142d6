package spoonacular

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"budgeat-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/spoonacular")

const defaultBaseUrl = "https://api.spoonacular.com"

// the catalog caps result pages at a small count to keep research runs
// responsive, every recipe fans out into store navigations
const maxRecipes = 10

type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	ApiKey  string
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.ApiKey == "" {
		return nil, fmt.Errorf("spoonacular api key is not set")
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = defaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetQueryParam("apiKey", opts.ApiKey)
	client.SetTimeout(time.Second * 30)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(time.Second)
	client.SetRetryMaxWaitTime(time.Second * 8)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		switch res.StatusCode() {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	})

	telemetry.InstrumentResty(client, "scrapers/spoonacular")

	return &Client{http: client}, nil
}

type Recipe struct {
	Id          int64    `json:"id"`
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	// estimated kcal per serving, zero when the catalog did not
	// report nutrition
	Calories int `json:"calories"`
}

type SearchOptions struct {
	Query       string
	Diet        string
	MaxCalories int
	// capped at 10
	Number int
}

type searchResponse struct {
	Results []struct {
		Id                  int64  `json:"id"`
		Title               string `json:"title"`
		ExtendedIngredients []struct {
			Name string `json:"name"`
		} `json:"extendedIngredients"`
		Nutrition struct {
			Nutrients []struct {
				Name   string  `json:"name"`
				Amount float64 `json:"amount"`
				Unit   string  `json:"unit"`
			} `json:"nutrients"`
		} `json:"nutrition"`
	} `json:"results"`
	TotalResults int `json:"totalResults"`
}

// SearchRecipes queries the complexSearch endpoint and flattens the
// results down to what the research pipeline needs: a name, an
// ingredient list and a calorie estimate.
func (c *Client) SearchRecipes(ctx context.Context, opts SearchOptions) ([]Recipe, error) {
	ctx, span := tracer.Start(ctx, "SearchRecipes")
	defer span.End()

	number := opts.Number
	if number <= 0 || number > maxRecipes {
		number = maxRecipes
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", opts.Query).
		SetQueryParam("number", fmt.Sprintf("%d", number)).
		SetQueryParam("addRecipeInformation", "true").
		SetQueryParam("addRecipeNutrition", "true").
		SetQueryParam("fillIngredients", "true")
	if opts.Diet != "" {
		req.SetQueryParam("diet", opts.Diet)
	}
	if opts.MaxCalories > 0 {
		req.SetQueryParam("maxCalories", fmt.Sprintf("%d", opts.MaxCalories))
	}

	var parsed searchResponse
	res, err := req.SetResult(&parsed).Get("/recipes/complexSearch")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return nil, fmt.Errorf("spoonacular api error: status=%d body=%s", res.StatusCode(), res.String())
	}

	recipes := make([]Recipe, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		recipe := Recipe{
			Id:    result.Id,
			Title: result.Title,
		}
		for _, ingredient := range result.ExtendedIngredients {
			if ingredient.Name == "" {
				continue
			}
			recipe.Ingredients = append(recipe.Ingredients, ingredient.Name)
		}
		for _, nutrient := range result.Nutrition.Nutrients {
			if nutrient.Name == "Calories" && nutrient.Unit == "kcal" {
				recipe.Calories = int(nutrient.Amount)
				break
			}
		}
		recipes = append(recipes, recipe)
	}

	return recipes, nil
}
