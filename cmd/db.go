package cmd

import (
	"os"

	"github.com/emrgen/coa/internal/config"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/repair"
	"github.com/emrgen/coa/internal/store"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "db commands",
}

func init() {
	dbCmd.AddCommand(Migrate())
	dbCmd.AddCommand(checkSchemaCmd())
}

func Migrate() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		Run: func(cmd *cobra.Command, args []string) {
			db := config.GetDb(config.LoadConfig())
			err := model.Migrate(db)
			if err != nil {
				logrus.Fatalf("migration failed: %v", err)
			}
			color.Green("database migrated")
		},
	}

	return command
}

func checkSchemaCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "check",
		Short: "Report which tables exist",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.LoadConfig()
			r := repair.New(store.NewGormStore(config.GetDb(cfg)), nil, objectResolver(cfg), repair.Options{DryRun: true})

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Table", "Exists"})
			missing := 0
			for _, status := range r.CheckSchema() {
				exists := "yes"
				if !status.Exists {
					exists = "no"
					missing++
				}
				table.Append([]string{status.Table, exists})
			}
			table.Render()

			if missing > 0 {
				color.Red("%d tables missing, run: coa db migrate", missing)
			}
		},
	}

	return command
}
