package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"budgeat-backend/lib/scrapers/grocery"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

// RenderPlanTable formats the plan for terminal output.
func RenderPlanTable(plan ShoppingPlan) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Recipe", "Cost", "Calories"})
	for _, cost := range plan.Selected {
		t.AppendRow(table.Row{cost.Recipe.Name, cost.TotalCents.String(), cost.Recipe.Calories})
	}
	t.AppendFooter(table.Row{"Total", plan.TotalCents.String(), plan.Calories.SelectedCalories})
	t.SetStyle(table.StyleRounded)

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")

	if plan.Reason != "" {
		fmt.Fprintf(&b, "\n%s\n", plan.Reason)
	}
	for _, cost := range plan.Skipped {
		fmt.Fprintf(&b, "skipped (over budget): %s at %s\n", cost.Recipe.Name, cost.TotalCents.String())
	}
	for _, cost := range plan.Infeasible {
		fmt.Fprintf(&b, "excluded (unpriced: %s): %s\n", strings.Join(cost.Unpriced, ", "), cost.Recipe.Name)
	}
	if len(plan.Ingredients) > 0 {
		fmt.Fprintf(&b, "\nshopping list: %s\n", strings.Join(plan.Ingredients, ", "))
	}
	return b.String()
}

// recipeExport is the per-recipe price breakdown of the JSON output.
type recipeExport struct {
	Name        string             `json:"name"`
	TotalCents  grocery.Cents      `json:"total_cents"`
	Total       string             `json:"total"`
	Selected    bool               `json:"selected"`
	Ingredients []ingredientExport `json:"ingredients"`
}

type ingredientExport struct {
	Name   string `json:"name"`
	Cents  int64  `json:"cents,omitempty"`
	Price  string `json:"price,omitempty"`
	Store  string `json:"store,omitempty"`
	Method string `json:"method,omitempty"`
	// true when no store produced a usable quote
	Unpriced bool `json:"unpriced,omitempty"`
}

type planExport struct {
	Recipes      []recipeExport `json:"recipes"`
	ShoppingList []string       `json:"shopping_list"`
	TotalCents   grocery.Cents  `json:"total_cents"`
	Total        string         `json:"total"`
	Reason       string         `json:"reason,omitempty"`
}

// ExportJSON serializes the per-recipe price data and the final plan.
func ExportJSON(result PlanResult) ([]byte, error) {
	selected := make(map[string]bool, len(result.Plan.Selected))
	for _, cost := range result.Plan.Selected {
		selected[cost.Recipe.Name] = true
	}

	export := planExport{
		ShoppingList: result.Plan.Ingredients,
		TotalCents:   result.Plan.TotalCents,
		Total:        result.Plan.TotalCents.String(),
		Reason:       result.Plan.Reason,
	}
	for _, cost := range result.Costs {
		recipe := recipeExport{
			Name:       cost.Recipe.Name,
			TotalCents: cost.TotalCents,
			Total:      cost.TotalCents.String(),
			Selected:   selected[cost.Recipe.Name],
		}
		for _, name := range uniqueIngredients(cost.Recipe.Ingredients) {
			entry := ingredientExport{Name: name}
			if research, ok := result.Research[name]; ok && !research.Aggregated.Unpriced {
				chosen := research.Aggregated.Chosen
				entry.Cents = int64(chosen.Cents)
				entry.Price = chosen.Cents.String()
				entry.Store = chosen.StoreId
				entry.Method = string(chosen.Method)
			} else {
				entry.Unpriced = true
			}
			recipe.Ingredients = append(recipe.Ingredients, entry)
		}
		export.Recipes = append(export.Recipes, recipe)
	}

	return json.MarshalIndent(export, "", "  ")
}

type SmtpConfig struct {
	Server       string
	Port         int
	EmailAddress string
	Password     string
}

// EmailPlan sends the rendered plan to the recipient over smtp.
func EmailPlan(ctx context.Context, config SmtpConfig, recipient string, plan ShoppingPlan) error {
	_, span := tracer.Start(ctx, "EmailPlan")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("BudgEat <%s>", config.EmailAddress)
	mail.To = []string{recipient}
	mail.Subject = "Your weekly shopping plan"
	mail.Text = []byte(RenderPlanTable(plan))

	err := mail.Send(
		fmt.Sprintf("%s:%d", config.Server, config.Port),
		smtp.PlainAuth("", config.EmailAddress, config.Password, config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(fmt.Sprintf("%s:%d", config.Server, config.Port), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
