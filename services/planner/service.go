package planner

import (
	"context"
	"log/slog"

	"budgeat-backend/lib/scrapers/usda"
	"budgeat-backend/services/pricing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Pricer researches ingredient prices across stores.
type Pricer interface {
	ResearchIngredients(ctx context.Context, ingredients []string) map[string]pricing.IngredientResult
}

// CalorieSource estimates ingredient calories. A miss is soft.
type CalorieSource interface {
	LookupCalories(ctx context.Context, ingredient string) (usda.Energy, error)
}

// Service is the batch entrypoint: recipes + budget in, shopping plan
// + full diagnostic trail out.
type Service struct {
	pricer   Pricer
	calories CalorieSource
}

// NewService wires the planner. `calories` may be nil, recipes then
// keep whatever calorie figure they arrived with.
func NewService(pricer Pricer, calories CalorieSource) *Service {
	return &Service{pricer: pricer, calories: calories}
}

// PlanResult pairs the plan with everything learned along the way.
type PlanResult struct {
	Plan ShoppingPlan `json:"plan"`
	// per-ingredient research diagnostics, every queried store
	// accounted for
	Research map[string]pricing.IngredientResult `json:"research"`
	Costs    []RecipeCost                        `json:"costs"`
}

// Plan validates inputs, prices every ingredient, and selects a
// budget-feasible recipe subset. Validation failures return before
// any network call.
func (s *Service) Plan(ctx context.Context, recipes []Recipe, budget Budget) (PlanResult, error) {
	ctx, span := tracer.Start(ctx, "Plan")
	defer span.End()
	span.SetAttributes(
		attribute.Int("recipes", len(recipes)),
		attribute.Int64("weekly_cents", int64(budget.WeeklyCents)),
	)

	if err := budget.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid budget")
		return PlanResult{}, err
	}
	for _, recipe := range recipes {
		if err := recipe.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid recipe")
			return PlanResult{}, err
		}
	}

	recipes = s.fillCalories(ctx, recipes)

	research := s.pricer.ResearchIngredients(ctx, IngredientUnion(recipes))

	prices := make(map[string]pricing.AggregatedPrice, len(research))
	for ingredient, result := range research {
		prices[ingredient] = result.Aggregated
	}

	costs := CostRecipes(recipes, prices)
	plan := SelectRecipes(costs, budget)

	span.SetAttributes(
		attribute.Int("selected", len(plan.Selected)),
		attribute.Int64("total_cents", int64(plan.TotalCents)),
	)

	return PlanResult{
		Plan:     plan,
		Research: research,
		Costs:    costs,
	}, nil
}

// fillCalories estimates missing recipe calories by summing the
// energy of each ingredient. Lookup failures leave the recipe as-is.
func (s *Service) fillCalories(ctx context.Context, recipes []Recipe) []Recipe {
	if s.calories == nil {
		return recipes
	}

	out := make([]Recipe, len(recipes))
	copy(out, recipes)
	for i, recipe := range out {
		if recipe.Calories > 0 {
			continue
		}
		total := 0
		for _, ingredient := range uniqueIngredients(recipe.Ingredients) {
			energy, err := s.calories.LookupCalories(ctx, ingredient)
			if err != nil {
				slog.WarnContext(ctx, "calorie lookup failed", "ingredient", ingredient, "err", err)
				continue
			}
			if energy.Found {
				total += energy.Kcal
			}
		}
		out[i].Calories = total
	}
	return out
}
