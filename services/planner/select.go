package planner

import (
	"sort"

	"budgeat-backend/lib/scrapers/grocery"

	"budgeat-backend/services/pricing"
)

// CostRecipes prices each recipe against the aggregated ingredient
// prices. Duplicate ingredients inside one recipe are counted once.
func CostRecipes(recipes []Recipe, prices map[string]pricing.AggregatedPrice) []RecipeCost {
	costs := make([]RecipeCost, 0, len(recipes))
	for _, recipe := range recipes {
		cost := RecipeCost{Recipe: recipe}
		for _, ingredient := range uniqueIngredients(recipe.Ingredients) {
			price, ok := prices[ingredient]
			if !ok || price.Unpriced {
				cost.Unpriced = append(cost.Unpriced, ingredient)
				continue
			}
			cost.TotalCents += price.Cents
		}
		costs = append(costs, cost)
	}
	return costs
}

// CalorieReport compares the selected recipes' calories against the
// weekly target. Informational only, never a selection constraint.
type CalorieReport struct {
	SelectedCalories int `json:"selected_calories"`
	WeeklyTarget     int `json:"weekly_target"`
}

func (r CalorieReport) Deficit() int {
	return r.WeeklyTarget - r.SelectedCalories
}

const emptyPlanReason = "no recipe fits the weekly budget"

// ShoppingPlan is the final output: what to cook, what to buy, and
// what it costs. TotalCents never exceeds the weekly cap.
type ShoppingPlan struct {
	Selected []RecipeCost `json:"selected"`
	// feasible recipes the budget could not accommodate
	Skipped []RecipeCost `json:"skipped,omitempty"`
	// recipes excluded before selection because of unpriced
	// ingredients
	Infeasible  []RecipeCost  `json:"infeasible,omitempty"`
	Ingredients []string      `json:"ingredients"`
	TotalCents  grocery.Cents `json:"total_cents"`
	Calories    CalorieReport `json:"calories"`
	// set when nothing was selected
	Reason string `json:"reason,omitempty"`
}

// SelectRecipes greedily fills the weekly budget: feasible recipes
// sorted by ascending cost (name breaks ties), each accepted when it
// still fits, skipped otherwise without terminating, since a cheaper
// later recipe may still fit. A greedy approximation, not a knapsack
// solver.
func SelectRecipes(costs []RecipeCost, budget Budget) ShoppingPlan {
	plan := ShoppingPlan{
		Calories: CalorieReport{WeeklyTarget: budget.DailyCalories * 7},
	}

	feasible := make([]RecipeCost, 0, len(costs))
	for _, cost := range costs {
		if cost.Feasible() {
			feasible = append(feasible, cost)
			continue
		}
		plan.Infeasible = append(plan.Infeasible, cost)
	}

	sort.Slice(feasible, func(i, j int) bool {
		if feasible[i].TotalCents != feasible[j].TotalCents {
			return feasible[i].TotalCents < feasible[j].TotalCents
		}
		return feasible[i].Recipe.Name < feasible[j].Recipe.Name
	})

	for _, cost := range feasible {
		if plan.TotalCents+cost.TotalCents > budget.WeeklyCents {
			plan.Skipped = append(plan.Skipped, cost)
			continue
		}
		plan.Selected = append(plan.Selected, cost)
		plan.TotalCents += cost.TotalCents
		plan.Calories.SelectedCalories += cost.Recipe.Calories
	}

	selected := make([]Recipe, 0, len(plan.Selected))
	for _, cost := range plan.Selected {
		selected = append(selected, cost.Recipe)
	}
	plan.Ingredients = IngredientUnion(selected)

	if len(plan.Selected) == 0 {
		plan.Reason = emptyPlanReason
	}
	return plan
}
