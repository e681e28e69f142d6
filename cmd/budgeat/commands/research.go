package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"budgeat-backend/lib/browser"
	"budgeat-backend/lib/configutil"
	configsqlite "budgeat-backend/lib/configutil/sqlite"
	"budgeat-backend/lib/restyutil"
	"budgeat-backend/lib/scrapers/grocery"
	"budgeat-backend/lib/scrapers/spoonacular"
	"budgeat-backend/lib/scrapers/usda"
	"budgeat-backend/lib/serviceutil"
	"budgeat-backend/services/planner"
	"budgeat-backend/services/pricing"
	"budgeat-backend/services/pricing/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type BrowserConfig struct {
	// plain http fetches instead of headless chrome; disables the
	// vision tier since there is nothing to screenshot
	Disable  bool `json:"disable"`
	PoolSize int  `json:"pool_size"`
	// run chrome with a visible window, useful when debugging a
	// store's bot defenses
	Windowed bool `json:"windowed"`
}

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	Recipient    string `json:"recipient"`
}

type Config struct {
	Database configsqlite.Struct `json:"database"`

	VisionApiKey      string `json:"vision_api_key"`
	SpoonacularApiKey string `json:"spoonacular_api_key"`
	UsdaApiKey        string `json:"usda_api_key"`

	Browser BrowserConfig `json:"browser"`
	Smtp    SmtpConfig    `json:"smtp"`

	// when set, raw store responses are dumped here for debugging
	HttpDumpDir string `json:"http_dump_dir"`
}

var researchFlags struct {
	recipesFile string
	query       string
	diet        string
	maxCalories int

	budgetDollars float64
	dailyCalories int

	jsonOut string
	email   bool
}

func init() {
	rootCmd.AddCommand(researchCmd)

	researchCmd.Flags().StringVar(&researchFlags.recipesFile, "recipes", "", "path to a JSON file of {name, ingredients[]} records")
	researchCmd.Flags().StringVar(&researchFlags.query, "query", "", "recipe search query (spoonacular)")
	researchCmd.Flags().StringVar(&researchFlags.diet, "diet", "", "diet filter for the recipe search")
	researchCmd.Flags().IntVar(&researchFlags.maxCalories, "max-calories", 0, "per-recipe calorie ceiling for the recipe search")

	researchCmd.Flags().Float64Var(&researchFlags.budgetDollars, "budget", 0, "weekly grocery budget in dollars")
	researchCmd.Flags().IntVar(&researchFlags.dailyCalories, "calories", 2000, "daily calorie target")

	researchCmd.Flags().StringVar(&researchFlags.jsonOut, "json", "", "write per-recipe price data to this file")
	researchCmd.Flags().BoolVar(&researchFlags.email, "email", false, "email the plan to the configured recipient")
}

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Prices every ingredient across stores and selects recipes that fit the weekly budget.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if config.VisionApiKey == "" && !config.Browser.Disable {
			serviceutil.Fatal("vision_api_key is not set", nil)
		}
		if config.HttpDumpDir != "" {
			grocery.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(config.HttpDumpDir))
		}

		recipes := loadRecipes(ctx, config)
		budget := planner.Budget{
			WeeklyCents:   grocery.Cents(math.Round(researchFlags.budgetDollars * 100)),
			DailyCalories: researchFlags.dailyCalories,
		}

		var database = openDatabase(config)

		var navigator grocery.Navigator
		var extractors []grocery.Extractor
		if config.Browser.Disable {
			navigator = grocery.NewStaticNavigator()
			extractors = []grocery.Extractor{grocery.HTMLExtractor{}}
		} else {
			poolSize := config.Browser.PoolSize
			if poolSize <= 0 {
				poolSize = 2
			}
			b, err := browser.New(ctx, browser.Options{
				PoolSize: poolSize,
				Headless: !config.Browser.Windowed,
			})
			if err != nil {
				serviceutil.Fatal("failed to launch browser", err)
			}
			defer b.Close()
			navigator = grocery.NewChromeNavigator(b, grocery.ChromeNavigatorOptions{})

			vision, err := grocery.NewVisionExtractor(ctx, config.VisionApiKey)
			if err != nil {
				serviceutil.Fatal("failed to create vision extractor", err)
			}
			extractors = []grocery.Extractor{grocery.HTMLExtractor{}, vision}
		}

		pricer := pricing.NewService(database, navigator, extractors, pricing.Options{})
		calories := usda.NewClient(usda.ClientOptions{ApiKey: config.UsdaApiKey})
		svc := planner.NewService(pricer, calories)

		result, err := svc.Plan(ctx, recipes, budget)
		if err != nil {
			serviceutil.Fatal("planning failed", err)
		}

		fmt.Println(planner.RenderPlanTable(result.Plan))
		printDiagnostics(result.Research)

		if researchFlags.jsonOut != "" {
			raw, err := planner.ExportJSON(result)
			if err != nil {
				serviceutil.Fatal("failed to serialize results", err)
			}
			err = os.WriteFile(researchFlags.jsonOut, raw, 0644)
			if err != nil {
				serviceutil.Fatal("failed to write results", err)
			}
		}
		if researchFlags.email {
			err = planner.EmailPlan(ctx, planner.SmtpConfig{
				Server:       config.Smtp.Server,
				Port:         config.Smtp.Port,
				EmailAddress: config.Smtp.EmailAddress,
				Password:     config.Smtp.Password,
			}, config.Smtp.Recipient, result.Plan)
			if err != nil {
				serviceutil.Fatal("failed to email the plan", err)
			}
		}
	},
}

func openDatabase(config Config) *sql.DB {
	if config.Database.File == "" && config.Database.Url == "" {
		return nil
	}
	database, err := config.Database.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open quote log", err)
	}
	return database
}

func loadRecipes(ctx context.Context, config Config) []planner.Recipe {
	if researchFlags.recipesFile != "" {
		raw, err := os.ReadFile(researchFlags.recipesFile)
		if err != nil {
			serviceutil.Fatal("failed to read recipes file", err)
		}
		var recipes []planner.Recipe
		err = json.Unmarshal(raw, &recipes)
		if err != nil {
			serviceutil.Fatal("failed to parse recipes file", err)
		}
		return recipes
	}

	if researchFlags.query == "" {
		serviceutil.Fatal("either --recipes or --query must be provided", nil)
	}
	client, err := spoonacular.NewClient(spoonacular.ClientOptions{
		ApiKey: config.SpoonacularApiKey,
	})
	if err != nil {
		serviceutil.Fatal("failed to create recipe client", err)
	}
	found, err := client.SearchRecipes(ctx, spoonacular.SearchOptions{
		Query:       researchFlags.query,
		Diet:        researchFlags.diet,
		MaxCalories: researchFlags.maxCalories,
	})
	if err != nil {
		serviceutil.Fatal("recipe search failed", err)
	}

	recipes := make([]planner.Recipe, 0, len(found))
	for _, recipe := range found {
		recipes = append(recipes, planner.Recipe{
			Name:        recipe.Title,
			Ingredients: recipe.Ingredients,
			Calories:    recipe.Calories,
		})
	}
	return recipes
}

func printDiagnostics(research map[string]pricing.IngredientResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Ingredient", "Store", "Outcome", "Price", "Method"})
	for _, ingredient := range sortedKeys(research) {
		result := research[ingredient]
		for _, attempt := range result.Attempts {
			price := ""
			method := ""
			if attempt.Quote != nil {
				price = attempt.Quote.Cents.String()
				method = string(attempt.Quote.Method)
			}
			t.AppendRow(table.Row{ingredient, attempt.StoreId, string(attempt.Outcome), price, method})
		}
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func sortedKeys(research map[string]pricing.IngredientResult) []string {
	keys := make([]string, 0, len(research))
	for key := range research {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
