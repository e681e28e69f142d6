package grocery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"
)

const visionModel = "gemini-1.5-flash"

const visionPromptTemplate = `This is a screenshot of a grocery store's search results page.
Find the product that best matches %q and read its displayed price.

Answer with a single JSON object and nothing else, no markdown fences:
{"price": "$0.00", "currency": "USD", "found": true}

If no matching product with a visible price exists, answer:
{"price": "", "currency": "", "found": false}`

// VisionExtractor reads the price straight off a page screenshot with
// a vision capable model. It is the last tier of the chain and runs
// only when the html tier was inconclusive, model calls cost real
// money and seconds of latency.
type VisionExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewVisionExtractor builds the vision tier. The api key is an
// explicit constructor argument, a missing credential fails here at
// startup rather than in the middle of a research run.
func NewVisionExtractor(ctx context.Context, apiKey string) (*VisionExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision model api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision model client: %w", err)
	}
	model := client.GenerativeModel(visionModel)
	return &VisionExtractor{client: client, model: model}, nil
}

func (v *VisionExtractor) Close() error {
	return v.client.Close()
}

func (v *VisionExtractor) Method() Method {
	return MethodVision
}

type visionAnswer struct {
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Found    bool   `json:"found"`
}

func (v *VisionExtractor) Extract(ctx context.Context, page Page, term string) (Quote, error) {
	ctx, span := tracer.Start(ctx, "vision:Extract")
	defer span.End()

	if len(page.Screenshot) == 0 {
		span.SetStatus(codes.Ok, "no screenshot")
		return Quote{}, ErrInconclusive
	}

	prompt := fmt.Sprintf(visionPromptTemplate, term)
	resp, err := v.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.ImageData("png", page.Screenshot),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return Quote{}, joinErr(ErrModel, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		span.SetStatus(codes.Error, "empty model response")
		return Quote{}, ErrModel
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		span.SetStatus(codes.Error, "model response is not text")
		return Quote{}, ErrModel
	}

	answer, err := parseVisionAnswer(string(text))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed model response")
		return Quote{}, joinErr(ErrModel, err)
	}
	if !answer.Found {
		span.SetStatus(codes.Ok, "model found no price")
		return Quote{}, ErrInconclusive
	}

	cents, err := ParseCents(answer.Price)
	if err != nil || !Plausible(cents) {
		span.SetStatus(codes.Ok, "implausible model price")
		return Quote{}, ErrInconclusive
	}

	currency := answer.Currency
	if currency == "" {
		currency = "USD"
	}

	return Quote{
		StoreId:    page.StoreId,
		Ingredient: term,
		Cents:      cents,
		Currency:   currency,
		Method:     MethodVision,
		Confidence: 0.6,
		Time:       time.Now().UTC(),
	}, nil
}

// models wrap json in markdown fences no matter how firmly you ask
// them not to
func parseVisionAnswer(raw string) (visionAnswer, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var answer visionAnswer
	err := json.Unmarshal([]byte(raw), &answer)
	if err != nil {
		return visionAnswer{}, fmt.Errorf("failed to unmarshal model response: %w. response: %s", err, raw)
	}
	return answer, nil
}
