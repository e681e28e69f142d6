package planner

import (
	"fmt"
	"sort"

	"budgeat-backend/lib/scrapers/grocery"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/planner")

var (
	ErrInvalidBudget = fmt.Errorf("invalid budget")
	ErrInvalidRecipe = fmt.Errorf("invalid recipe")
)

// Recipe is a named dish with the ingredient list we need to price.
// Calories is the estimated per-serving energy; zero means unknown
// and may be filled in from a nutrition lookup.
type Recipe struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Calories    int      `json:"calories,omitempty"`
}

func (r Recipe) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRecipe)
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("%w: %q has no ingredients", ErrInvalidRecipe, r.Name)
	}
	for _, ingredient := range r.Ingredients {
		if ingredient == "" {
			return fmt.Errorf("%w: %q has an empty ingredient", ErrInvalidRecipe, r.Name)
		}
	}
	return nil
}

// Budget bounds one week of groceries. Both fields must be positive,
// violations are caught before any network call is issued.
type Budget struct {
	WeeklyCents   grocery.Cents `json:"weekly_cents"`
	DailyCalories int           `json:"daily_calories"`
}

func (b Budget) Validate() error {
	if b.WeeklyCents <= 0 {
		return fmt.Errorf("%w: weekly cap must be positive, got %d cents", ErrInvalidBudget, b.WeeklyCents)
	}
	if b.DailyCalories <= 0 {
		return fmt.Errorf("%w: daily calorie target must be positive, got %d", ErrInvalidBudget, b.DailyCalories)
	}
	return nil
}

// RecipeCost is one recipe priced against the aggregated ingredient
// prices. A recipe with any unpriced ingredient is infeasible and
// never enters selection.
type RecipeCost struct {
	Recipe     Recipe        `json:"recipe"`
	TotalCents grocery.Cents `json:"total_cents"`
	Unpriced   []string      `json:"unpriced,omitempty"`
}

func (c RecipeCost) Feasible() bool {
	return len(c.Unpriced) == 0
}

// uniqueIngredients preserves first-seen order.
func uniqueIngredients(ingredients []string) []string {
	seen := make(map[string]struct{}, len(ingredients))
	out := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		if _, ok := seen[ingredient]; ok {
			continue
		}
		seen[ingredient] = struct{}{}
		out = append(out, ingredient)
	}
	return out
}

// IngredientUnion merges every recipe's ingredient list, deduplicated
// and sorted.
func IngredientUnion(recipes []Recipe) []string {
	var all []string
	for _, recipe := range recipes {
		all = append(all, recipe.Ingredients...)
	}
	union := uniqueIngredients(all)
	sort.Strings(union)
	return union
}
