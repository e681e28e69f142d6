package usda

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

var tracer = otel.Tracer("scrapers/usda")

const defaultBaseUrl = "https://api.nal.usda.gov"

// the FoodData Central demo key works without registration at a low
// rate limit
const demoKey = "DEMO_KEY"

// Client looks up calorie estimates from USDA FoodData Central.
type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	// optional, falls back to DEMO_KEY
	ApiKey  string
	BaseUrl string
}

func NewClient(opts ClientOptions) *Client {
	if opts.ApiKey == "" {
		opts.ApiKey = demoKey
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = defaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetQueryParam("api_key", opts.ApiKey)
	client.SetTimeout(time.Second * 10)

	telemetry.InstrumentResty(client, "scrapers/usda")

	return &Client{http: client}
}

type Energy struct {
	Kcal int
	// per 100g, FoodData Central's reference serving
	ServingSize string
	Found       bool
}

type searchResponse struct {
	Foods []struct {
		Description   string `json:"description"`
		FoodNutrients []struct {
			NutrientName string  `json:"nutrientName"`
			UnitName     string  `json:"unitName"`
			Value        float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

// LookupCalories searches for the ingredient and reads the Energy
// nutrient off the first hit. A miss is a soft outcome, not an error.
func (c *Client) LookupCalories(ctx context.Context, ingredient string) (Energy, error) {
	ctx, span := tracer.Start(ctx, "LookupCalories")
	defer span.End()

	var parsed searchResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", ingredient).
		SetQueryParam("pageSize", "1").
		SetResult(&parsed).
		Get("/fdc/v1/foods/search")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return Energy{}, err
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return Energy{}, fmt.Errorf("usda api error: status=%d", res.StatusCode())
	}

	if len(parsed.Foods) == 0 {
		return Energy{}, nil
	}
	for _, nutrient := range parsed.Foods[0].FoodNutrients {
		if nutrient.NutrientName == "Energy" && nutrient.UnitName == "KCAL" {
			return Energy{
				Kcal:        int(nutrient.Value),
				ServingSize: "100g",
				Found:       true,
			}, nil
		}
	}
	return Energy{}, nil
}
