package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"instaetl/internal/config"
	"instaetl/internal/infrastructure"
	"instaetl/internal/services"
	"instaetl/pkg/contracts"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "instaetl",
		Short: "Batch ETL for social-media post exports",
		Long: `instaetl cleans a raw post export, derives engagement KPIs and reshapes
the result into a star schema (time, content, media and traffic dimensions plus
a post fact table). Tables are written as CSV and can be loaded into a SQL
warehouse.`,
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.register(root)

	root.AddCommand(
		newExtractCmd(opts),
		newTransformCmd(opts),
		newLoadCmd(opts),
		newRunCmd(opts),
		newCheckCmd(opts),
	)
	return root
}

func newExtractCmd(opts *globalOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Copy the raw export into the staging directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, func(cfg *config.Config) {
				if input != "" {
					cfg.Paths.InputPath = input
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			staged, err := a.service.Extract(infrastructure.EnsureRunID(cmd.Context()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("staged"), staged)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "raw export file, or a directory holding exports")
	return cmd
}

func newTransformCmd(opts *globalOptions) *cobra.Command {
	var (
		input string
		xlsx  bool
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Clean, derive KPIs and build the star schema from a staged file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, func(cfg *config.Config) {
				if cmd.Flags().Changed("xlsx") {
					cfg.Processing.WriteXLSX = xlsx
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			path := input
			if path == "" {
				path = a.cfg.Paths.StagedInputPath(a.cfg.Paths.InputPath)
			}

			summary, _, err := a.service.TransformFile(infrastructure.EnsureRunID(cmd.Context()), path)
			if err != nil {
				return err
			}
			services.RenderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "staged input file (default: the staging copy of the configured input)")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "also write the star schema as one workbook")
	return cmd
}

func newLoadCmd(opts *globalOptions) *cobra.Command {
	var driver, dsn string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the star-schema CSVs from the output directory into the warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, func(cfg *config.Config) {
				if driver != "" {
					cfg.Warehouse.Driver = driver
				}
				if dsn != "" {
					cfg.Warehouse.DSN = dsn
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			loads, err := a.service.Load(infrastructure.EnsureRunID(cmd.Context()))
			if err != nil {
				return err
			}
			services.RenderLoads(cmd.OutOrStdout(), loads)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "database/sql driver name (default from config: sqlite)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "warehouse data source name")
	return cmd
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		input string
		dsn   string
		load  bool
		xlsx  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, transform and optionally load in one go",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, func(cfg *config.Config) {
				if input != "" {
					cfg.Paths.InputPath = input
				}
				if dsn != "" {
					cfg.Warehouse.DSN = dsn
				}
				if cmd.Flags().Changed("load") {
					cfg.Warehouse.Enabled = load
				}
				if cmd.Flags().Changed("xlsx") {
					cfg.Processing.WriteXLSX = xlsx
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.service.Run(cmd.Context())
			if err != nil {
				return err
			}
			services.RenderSummary(cmd.OutOrStdout(), summary)
			fmt.Fprintf(cmd.OutOrStdout(), "%s in %s\n", color.GreenString("completed"), summary.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "raw export file, or a directory holding exports")
	cmd.Flags().StringVar(&dsn, "dsn", "", "warehouse data source name")
	cmd.Flags().BoolVar(&load, "load", false, "load the star schema into the warehouse")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "also write the star schema as one workbook")
	return cmd
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that directories, input and warehouse are ready for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, func(cfg *config.Config) {
				if input != "" {
					cfg.Paths.InputPath = input
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			hs := services.NewHealthService(contracts.Version, a.cfg, services.DefaultDBOpener, a.logger)
			status := hs.ReadinessCheck(cmd.Context())

			names := make([]string, 0, len(status.Services))
			for name := range status.Services {
				names = append(names, name)
			}
			sort.Strings(names)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Check", "Status", "Detail"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			for _, name := range names {
				svc := status.Services[name]
				table.Append([]string{name, colorStatus(svc.Status), svc.Message})
			}
			table.Render()

			if status.Status != services.StatusReady {
				return errors.New("environment is not ready")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "raw export file, or a directory holding exports")
	return cmd
}

func colorStatus(status string) string {
	switch status {
	case services.StatusReady:
		return color.GreenString(status)
	case services.StatusNotReady:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}
