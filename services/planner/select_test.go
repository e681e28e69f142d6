package planner

import (
	"testing"

	"budgeat-backend/lib/scrapers/grocery"
	"budgeat-backend/services/pricing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func priced(ingredient string, cents grocery.Cents) pricing.AggregatedPrice {
	quote := grocery.Quote{
		StoreId:    "target",
		Ingredient: ingredient,
		Cents:      cents,
		Currency:   "USD",
		Method:     grocery.MethodHTML,
		Confidence: 0.9,
	}
	return pricing.AggregatedPrice{
		Ingredient: ingredient,
		Cents:      cents,
		Chosen:     &quote,
		Considered: []grocery.Quote{quote},
	}
}

func unpriced(ingredient string) pricing.AggregatedPrice {
	return pricing.AggregatedPrice{Ingredient: ingredient, Unpriced: true}
}

var (
	pastaNight = Recipe{
		Name:        "Pasta Night",
		Ingredients: []string{"pasta", "tomato sauce", "parmesan"},
		Calories:    850,
	}
	breakfastBowl = Recipe{
		Name:        "Breakfast Bowl",
		Ingredients: []string{"eggs", "oats", "banana"},
		Calories:    520,
	}
)

// Pasta Night $12, Breakfast Bowl $8.
func twoRecipePrices() map[string]pricing.AggregatedPrice {
	return map[string]pricing.AggregatedPrice{
		"pasta":        priced("pasta", 300),
		"tomato sauce": priced("tomato sauce", 500),
		"parmesan":     priced("parmesan", 400),
		"eggs":         priced("eggs", 329),
		"oats":         priced("oats", 250),
		"banana":       priced("banana", 221),
	}
}

func TestCostRecipes(t *testing.T) {
	costs := CostRecipes([]Recipe{pastaNight, breakfastBowl}, twoRecipePrices())
	require.Len(t, costs, 2)
	require.Equal(t, grocery.Cents(1200), costs[0].TotalCents)
	require.Equal(t, grocery.Cents(800), costs[1].TotalCents)
	require.True(t, costs[0].Feasible())
	require.True(t, costs[1].Feasible())
}

func TestCostRecipesCountsDuplicateIngredientsOnce(t *testing.T) {
	recipe := Recipe{Name: "Egg Heavy", Ingredients: []string{"eggs", "eggs", "oats"}}
	costs := CostRecipes([]Recipe{recipe}, twoRecipePrices())
	require.Equal(t, grocery.Cents(579), costs[0].TotalCents)
}

func TestTightBudgetSelectsCheapestOnly(t *testing.T) {
	costs := CostRecipes([]Recipe{pastaNight, breakfastBowl}, twoRecipePrices())
	plan := SelectRecipes(costs, Budget{WeeklyCents: 1500, DailyCalories: 2000})

	require.Len(t, plan.Selected, 1)
	require.Equal(t, "Breakfast Bowl", plan.Selected[0].Recipe.Name)
	require.Equal(t, grocery.Cents(800), plan.TotalCents)
	require.Len(t, plan.Skipped, 1)
	require.Equal(t, "Pasta Night", plan.Skipped[0].Recipe.Name)
	require.Empty(t, plan.Reason)
}

func TestLooserBudgetSelectsBoth(t *testing.T) {
	costs := CostRecipes([]Recipe{pastaNight, breakfastBowl}, twoRecipePrices())
	plan := SelectRecipes(costs, Budget{WeeklyCents: 2500, DailyCalories: 2000})

	require.Len(t, plan.Selected, 2)
	require.Equal(t, grocery.Cents(2000), plan.TotalCents)
	require.Equal(t, []string{
		"banana", "eggs", "oats", "parmesan", "pasta", "tomato sauce",
	}, plan.Ingredients)
}

func TestUnpricedRecipeNeverSelected(t *testing.T) {
	prices := twoRecipePrices()
	prices["parmesan"] = unpriced("parmesan")

	costs := CostRecipes([]Recipe{pastaNight, breakfastBowl}, prices)
	plan := SelectRecipes(costs, Budget{WeeklyCents: 10_000, DailyCalories: 2000})

	require.Len(t, plan.Selected, 1)
	require.Equal(t, "Breakfast Bowl", plan.Selected[0].Recipe.Name)
	require.Len(t, plan.Infeasible, 1)
	require.Equal(t, "Pasta Night", plan.Infeasible[0].Recipe.Name)
	require.Equal(t, []string{"parmesan"}, plan.Infeasible[0].Unpriced)
}

func TestNoRecipeFitsYieldsEmptyPlanWithReason(t *testing.T) {
	costs := CostRecipes([]Recipe{pastaNight, breakfastBowl}, twoRecipePrices())
	plan := SelectRecipes(costs, Budget{WeeklyCents: 500, DailyCalories: 2000})

	require.Empty(t, plan.Selected)
	require.Equal(t, grocery.Cents(0), plan.TotalCents)
	require.Equal(t, "no recipe fits the weekly budget", plan.Reason)
	require.Len(t, plan.Skipped, 2)
}

func TestBudgetCapInvariant(t *testing.T) {
	// pathological: many equal-cost recipes, cap fits only some
	var costs []RecipeCost
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		costs = append(costs, RecipeCost{
			Recipe:     Recipe{Name: name, Ingredients: []string{name}},
			TotalCents: 300,
		})
	}
	budget := Budget{WeeklyCents: 1000, DailyCalories: 2000}
	plan := SelectRecipes(costs, budget)

	require.LessOrEqual(t, plan.TotalCents, budget.WeeklyCents)
	require.Len(t, plan.Selected, 3)
	// name tie-break keeps selection deterministic
	require.Equal(t, "a", plan.Selected[0].Recipe.Name)
	require.Equal(t, "b", plan.Selected[1].Recipe.Name)
	require.Equal(t, "c", plan.Selected[2].Recipe.Name)
}

func TestSkipAndContinue(t *testing.T) {
	// the expensive middle recipe busts the cap but a later cheap one
	// still fits
	costs := []RecipeCost{
		{Recipe: Recipe{Name: "cheap", Ingredients: []string{"x"}}, TotalCents: 400},
		{Recipe: Recipe{Name: "mid", Ingredients: []string{"y"}}, TotalCents: 500},
		{Recipe: Recipe{Name: "pricey", Ingredients: []string{"z"}}, TotalCents: 2000},
	}
	plan := SelectRecipes(costs, Budget{WeeklyCents: 1000, DailyCalories: 2000})

	require.Len(t, plan.Selected, 2)
	require.Equal(t, "cheap", plan.Selected[0].Recipe.Name)
	require.Equal(t, "mid", plan.Selected[1].Recipe.Name)
	require.Len(t, plan.Skipped, 1)
}

func TestSelectionDeterministic(t *testing.T) {
	costs := CostRecipes([]Recipe{breakfastBowl, pastaNight}, twoRecipePrices())
	budget := Budget{WeeklyCents: 2500, DailyCalories: 2000}

	a := SelectRecipes(costs, budget)
	b := SelectRecipes(costs, budget)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("selection is not deterministic:\n%s", diff)
	}
}

func TestCalorieReportIsSoft(t *testing.T) {
	costs := CostRecipes([]Recipe{pastaNight, breakfastBowl}, twoRecipePrices())
	plan := SelectRecipes(costs, Budget{WeeklyCents: 2500, DailyCalories: 2000})

	require.Equal(t, 14000, plan.Calories.WeeklyTarget)
	require.Equal(t, 1370, plan.Calories.SelectedCalories)
	// a huge deficit never blocks selection
	require.Equal(t, 12630, plan.Calories.Deficit())
	require.Len(t, plan.Selected, 2)
}

func TestBudgetValidation(t *testing.T) {
	require.NoError(t, Budget{WeeklyCents: 1, DailyCalories: 1}.Validate())
	require.ErrorIs(t, Budget{WeeklyCents: 0, DailyCalories: 2000}.Validate(), ErrInvalidBudget)
	require.ErrorIs(t, Budget{WeeklyCents: -500, DailyCalories: 2000}.Validate(), ErrInvalidBudget)
	require.ErrorIs(t, Budget{WeeklyCents: 1500, DailyCalories: 0}.Validate(), ErrInvalidBudget)
}

func TestRecipeValidation(t *testing.T) {
	require.NoError(t, pastaNight.Validate())
	require.ErrorIs(t, Recipe{Ingredients: []string{"eggs"}}.Validate(), ErrInvalidRecipe)
	require.ErrorIs(t, Recipe{Name: "Empty"}.Validate(), ErrInvalidRecipe)
	require.ErrorIs(t, Recipe{Name: "Blank", Ingredients: []string{""}}.Validate(), ErrInvalidRecipe)
}
