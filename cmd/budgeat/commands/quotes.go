package commands

import (
	"os"
	"time"

	"budgeat-backend/lib/configutil"
	"budgeat-backend/lib/serviceutil"
	"budgeat-backend/services/pricing/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var quotesLimit int64

func init() {
	rootCmd.AddCommand(quotesCmd)
	quotesCmd.Flags().Int64Var(&quotesLimit, "limit", 50, "number of entries to show")
}

var quotesCmd = &cobra.Command{
	Use:   "quotes [ingredient]",
	Short: "Prints the most recent entries of the persisted quote log.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		database := openDatabase(config)
		if database == nil {
			serviceutil.Fatal("no quote log database is configured", nil)
		}

		qry := db.New(database)
		var rows []db.ListRecentQuotesRow
		if len(args) == 1 {
			rows, err = qry.ListQuotesForIngredient(ctx, args[0], quotesLimit)
		} else {
			rows, err = qry.ListRecentQuotes(ctx, quotesLimit)
		}
		if err != nil {
			serviceutil.Fatal("failed to read quote log", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Ingredient", "Store", "Cents", "Method", "Confidence"})
		for _, row := range rows {
			t.AppendRow(table.Row{
				time.Unix(row.CreatedAt, 0).Format(time.DateTime),
				row.Ingredient,
				row.StoreID,
				row.Cents,
				row.Method,
				row.Confidence,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
