package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	coa "github.com/emrgen/coa"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(createCOACmd())
	rootCmd.AddCommand(getCOACmd())
	rootCmd.AddCommand(listCOACmd())
	rootCmd.AddCommand(searchCOACmd())
	rootCmd.AddCommand(updateCOACmd())
	rootCmd.AddCommand(deleteCOACmd())
	rootCmd.AddCommand(nextIDCmd())
	rootCmd.AddCommand(uploadCmd())
}

type coaFlags struct {
	code         string
	clientName   string
	compound     string
	analysisType string
	testDate     string
	status       string
	purity       float64
	result       string
	notes        string
}

func (f *coaFlags) bind(command *cobra.Command) {
	command.Flags().StringVarP(&f.code, "code", "c", "", "coa id, e.g. ZT-2024-001")
	command.Flags().StringVar(&f.clientName, "client", "", "client name")
	command.Flags().StringVar(&f.compound, "compound", "", "compound")
	command.Flags().StringVar(&f.analysisType, "analysis", "", "analysis type (purity, potency, identity, contaminants, full_panel)")
	command.Flags().StringVar(&f.testDate, "date", "", "test date YYYY-MM-DD")
	command.Flags().StringVar(&f.status, "status", "", "status (pending, in_progress, completed, published)")
	command.Flags().Float64Var(&f.purity, "purity", 0, "purity percentage")
	command.Flags().StringVar(&f.result, "result", "", "result")
	command.Flags().StringVar(&f.notes, "notes", "", "notes")
}

func (f *coaFlags) input(cmd *cobra.Command) coa.Input {
	input := coa.Input{
		CoaID:        f.code,
		ClientName:   f.clientName,
		Compound:     f.compound,
		AnalysisType: f.analysisType,
		TestDate:     f.testDate,
		Status:       f.status,
		Notes:        f.notes,
	}
	if cmd.Flag("purity").Changed {
		input.Purity = &f.purity
	}
	if cmd.Flag("result").Changed {
		input.Result = &f.result
	}
	return input
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Minute)
}

func createCOACmd() *cobra.Command {
	var flags coaFlags
	var required = []string{"code", "client", "compound"}

	command := &cobra.Command{
		Use:     "create",
		Short:   "create a coa",
		Example: `coa create --code ZT-2024-001 --client "Acme Peptides" --compound BPC-157 --analysis purity`,
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			ctx, cancel := commandContext()
			defer cancel()
			created, err := newClient().CreateCOA(ctx, flags.input(cmd))
			if err != nil {
				logrus.Error(err)
				return
			}
			printCOAs(*created)
		},
	}

	flags.bind(command)
	bindContextFlags(command)
	command.Flags().SortFlags = false

	return command
}

func getCOACmd() *cobra.Command {
	var code string

	command := &cobra.Command{
		Use:   "get",
		Short: "get a coa",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"code"}) {
				return
			}

			ctx, cancel := commandContext()
			defer cancel()
			found, err := newClient().GetCOA(ctx, code)
			if err != nil {
				logrus.Error(err)
				return
			}

			printCOAs(*found)
			if found.FileURL != "" {
				fmt.Println("file:", found.FileURL)
			}
		},
	}

	command.Flags().StringVarP(&code, "code", "c", "", "coa id (required)")
	bindContextFlags(command)

	return command
}

func listCOACmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list coas, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()
			coas, err := newClient().ListCOAs(ctx)
			if err != nil {
				logrus.Error(err)
				return
			}
			printCOAs(coas...)
		},
	}

	bindContextFlags(command)

	return command
}

func searchCOACmd() *cobra.Command {
	var query string

	command := &cobra.Command{
		Use:   "search",
		Short: "search coas by code, client, compound or analysis type",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()
			coas, err := newClient().SearchCOAs(ctx, query)
			if err != nil {
				logrus.Error(err)
				return
			}
			printCOAs(coas...)
		},
	}

	command.Flags().StringVarP(&query, "query", "q", "", "search text")
	bindContextFlags(command)

	return command
}

func updateCOACmd() *cobra.Command {
	var flags coaFlags
	var current string

	command := &cobra.Command{
		Use:     "update",
		Short:   "update every field of a coa",
		Example: `coa update --id ZT-2024-001 --code ZT-2024-010 --client "Acme Peptides" --compound BPC-157`,
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"id", "client", "compound"}) {
				return
			}
			if flags.code == "" {
				flags.code = current
			}
			if flags.code != current {
				color.Magenta("renaming %s to %s\n", current, flags.code)
			}

			ctx, cancel := commandContext()
			defer cancel()
			updated, err := newClient().UpdateCOA(ctx, current, flags.input(cmd))
			if err != nil {
				logrus.Error(err)
				return
			}
			printCOAs(*updated)
		},
	}

	command.Flags().StringVarP(&current, "id", "i", "", "current coa id (required)")
	flags.bind(command)
	bindContextFlags(command)
	command.Flags().SortFlags = false

	return command
}

func deleteCOACmd() *cobra.Command {
	var code string

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a coa and its file",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"code"}) {
				return
			}

			ctx, cancel := commandContext()
			defer cancel()
			if err := newClient().DeleteCOA(ctx, code); err != nil {
				logrus.Error(err)
				return
			}
			color.Green("deleted %s", code)
		},
	}

	command.Flags().StringVarP(&code, "code", "c", "", "coa id (required)")
	bindContextFlags(command)

	return command
}

func nextIDCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "next-id",
		Short: "propose the next coa id for this year",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()
			code, err := newClient().NextCOAID(ctx)
			if err != nil {
				logrus.Error(err)
				return
			}
			fmt.Println(code)
		},
	}

	bindContextFlags(command)

	return command
}

func uploadCmd() *cobra.Command {
	var code string
	var path string

	command := &cobra.Command{
		Use:   "upload",
		Short: "attach a pdf to a coa",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"code", "file"}) {
				return
			}

			file, err := os.Open(path)
			if err != nil {
				logrus.Error(err)
				return
			}
			defer file.Close()

			ctx, cancel := commandContext()
			defer cancel()
			updated, err := newClient().UploadFile(ctx, code, filepath.Base(path), file)
			if err != nil {
				logrus.Error(err)
				return
			}
			printCOAs(*updated)
			fmt.Println("file:", updated.FileURL)
		},
	}

	command.Flags().StringVarP(&code, "code", "c", "", "coa id (required)")
	command.Flags().StringVarP(&path, "file", "f", "", "pdf to upload (required)")
	bindContextFlags(command)

	return command
}

func printCOAs(coas ...coa.COA) {
	if len(coas) == 0 {
		color.Yellow("no coas")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"COA ID", "Client", "Compound", "Analysis", "Status", "Purity", "File"})
	for _, c := range coas {
		purity := ""
		if c.Purity != nil {
			purity = strconv.FormatFloat(*c.Purity, 'f', -1, 64) + "%"
		}
		table.Append([]string{c.CoaID, c.ClientName, c.Compound, c.AnalysisType, c.Status, purity, c.FileName})
	}
	table.Render()
}

func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, "--"+required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		color.Red("missing: %s\n", strings.Join(missingFlags, " "))
		if len(providedFlags) > 0 {
			color.Yellow("provided: %s\n", strings.Join(providedFlags, " "))
		}
		return true
	}

	return false
}
