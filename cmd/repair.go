package cmd

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/emrgen/coa/internal/config"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/repair"
	"github.com/emrgen/coa/internal/server"
	"github.com/emrgen/coa/internal/store"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var dryRun bool
var jsonOutput bool

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "audit and repair coa file links",
}

func init() {
	repairCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	repairCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the report as json")

	repairCmd.AddCommand(repairTask("audit", "report file link issues", func(ctx context.Context, r *repair.Repairer, args []string) (*repair.Report, error) {
		return r.Audit(ctx)
	}))
	repairCmd.AddCommand(repairTask("fix-nested", "rewrite double nested file urls", func(ctx context.Context, r *repair.Repairer, args []string) (*repair.Report, error) {
		return r.FixNestedURLs(ctx)
	}))
	repairCmd.AddCommand(repairTask("relink", "point coas at the object matching their id", func(ctx context.Context, r *repair.Repairer, args []string) (*repair.Report, error) {
		return r.Relink(ctx)
	}))
	repairCmd.AddCommand(repairTask("reupload [coa id...]", "copy files to their canonical key", func(ctx context.Context, r *repair.Repairer, args []string) (*repair.Report, error) {
		return r.Reupload(ctx, args...)
	}))
	repairCmd.AddCommand(repairTask("seed", "insert default cms content when empty", func(ctx context.Context, r *repair.Repairer, args []string) (*repair.Report, error) {
		return r.Seed(ctx)
	}))
	repairCmd.AddCommand(renameCmd())
}

type repairFunc func(ctx context.Context, r *repair.Repairer, args []string) (*repair.Report, error)

func repairTask(use, short string, run repairFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			r := newRepairer(ctx)
			report, err := run(ctx, r, args)
			if err != nil {
				logrus.Fatalf("%s failed: %v", cmd.Name(), err)
			}
			printReport(report)
		},
	}
}

func renameCmd() *cobra.Command {
	var from, to string

	command := &cobra.Command{
		Use:   "rename",
		Short: "rename a coa and move its file to the new key",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"from", "to"}) {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			report, err := newRepairer(ctx).RenameCOA(ctx, from, to)
			if err != nil {
				logrus.Fatalf("rename failed: %v", err)
			}
			printReport(report)
		},
	}

	command.Flags().StringVar(&from, "from", "", "current coa id (required)")
	command.Flags().StringVar(&to, "to", "", "new coa id (required)")

	return command
}

func newRepairer(ctx context.Context) *repair.Repairer {
	cfg := config.LoadConfig()
	db := config.GetDb(cfg)
	blobs, err := server.OpenBlobs(ctx, cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	return repair.New(store.NewGormStore(db), blobs, objectResolver(cfg), repair.Options{DryRun: dryRun})
}

func objectResolver(cfg *config.Config) objref.Resolver {
	return objref.NewResolver(cfg.PublicBaseURL, cfg.Bucket)
}

func printReport(report *repair.Report) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logrus.Error(err)
		}
		return
	}

	if len(report.Issues) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Kind", "COA ID", "Key", "Detail"})
		for _, issue := range report.Issues {
			detail := issue.Detail
			if detail == "" {
				detail = issue.URL
			}
			table.Append([]string{string(issue.Kind), issue.Code, issue.Key, detail})
		}
		table.Render()
	}

	summary := tablewriter.NewWriter(os.Stdout)
	summary.SetHeader([]string{"Checked", "Fixed", "Failed"})
	summary.Append([]string{strconv.Itoa(report.Checked), strconv.Itoa(report.Fixed), strconv.Itoa(report.Failed)})
	summary.Render()

	switch {
	case report.Failed > 0:
		color.Red("%d failures, see log", report.Failed)
	case report.DryRun:
		color.Yellow("dry run, nothing was written")
	case len(report.Issues) == 0:
		color.Green("no issues")
	}
}
