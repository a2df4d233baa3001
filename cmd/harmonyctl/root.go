package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashinth-ffyo/harmony-cup/internal/app"
	"github.com/ashinth-ffyo/harmony-cup/internal/config"
	"github.com/ashinth-ffyo/harmony-cup/internal/export"
	"github.com/ashinth-ffyo/harmony-cup/internal/logger"
	"github.com/ashinth-ffyo/harmony-cup/internal/models"
	"github.com/ashinth-ffyo/harmony-cup/internal/registry"
	"github.com/ashinth-ffyo/harmony-cup/internal/store"
)

// openFunc returns a registry and a function that releases it.
type openFunc func(ctx context.Context) (*registry.Registry, func() error, error)

func openFromEnv(ctx context.Context) (*registry.Registry, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	// Keep stdout for command output.
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFile)
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a.Registry, a.Close, nil
}

func newRootCmd(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "harmonyctl",
		Short:         "Manage Harmony Cup team rosters",
		Long:          "Manage Harmony Cup team rosters from the command line, using the same store configuration as the server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newListCmd(open),
		newAddCmd(open),
		newUpdateCmd(open),
		newDeleteCmd(open),
		newExportCmd(open),
		newDumpCmd(open),
	)
	return root
}

// withRegistry opens the registry for the duration of fn.
func withRegistry(cmd *cobra.Command, open openFunc, fn func(ctx context.Context, reg *registry.Registry) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	reg, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, reg)
}

func newListCmd(open openFunc) *cobra.Command {
	var sortField string
	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List the teams of a category",
		Long: `List the teams of a category as a table.

Examples:
  harmonyctl list F1
  harmonyctl list F1 --sort Name_1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, open, func(ctx context.Context, reg *registry.Registry) error {
				teams, err := reg.List(ctx, args[0], sortField)
				if err != nil {
					return err
				}
				if len(teams) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No teams in %s.\n", args[0])
					return nil
				}
				return printTeams(cmd.OutOrStdout(), teams)
			})
		},
	}
	cmd.Flags().StringVarP(&sortField, "sort", "s", "", "column to sort by (e.g. REF_NO, Name_1)")
	return cmd
}

func newAddCmd(open openFunc) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "add <category>",
		Short: "Add a team; REF_NO is assigned automatically",
		Long: `Add a team to a category. Every Name_N and Class_N field is required.

Example:
  harmonyctl add F1 -f Name_1=Ann -f Name_2=Bo ... -f Class_5=5A -f Round1=Passed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFieldFlags(fields)
			if err != nil {
				return err
			}
			teamFields, err := models.FieldsFromMap(values)
			if err != nil {
				return err
			}
			return withRegistry(cmd, open, func(ctx context.Context, reg *registry.Registry) error {
				refNo, err := reg.Add(ctx, args[0], teamFields)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Team added with %s %d\n", models.ColRefNo, refNo)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "field value as COLUMN=VALUE (repeatable)")
	return cmd
}

func newUpdateCmd(open openFunc) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "update <category> <ref-no>",
		Short: "Update the supplied fields of a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refNo, err := parseRefNo(args[1])
			if err != nil {
				return err
			}
			values, err := parseFieldFlags(fields)
			if err != nil {
				return err
			}
			patch, err := models.PatchFromMap(values)
			if err != nil {
				return err
			}
			return withRegistry(cmd, open, func(ctx context.Context, reg *registry.Registry) error {
				if err := reg.Update(ctx, args[0], refNo, patch); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Team %d updated\n", refNo)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "field value as COLUMN=VALUE (repeatable)")
	return cmd
}

func newDeleteCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category> <ref-no>",
		Short: "Delete a team (no error if it does not exist)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refNo, err := parseRefNo(args[1])
			if err != nil {
				return err
			}
			return withRegistry(cmd, open, func(ctx context.Context, reg *registry.Registry) error {
				if err := reg.Delete(ctx, args[0], refNo); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Team %d removed from %s (if present)\n", refNo, args[0])
				return nil
			})
		},
	}
}

func newExportCmd(open openFunc) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every category to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, open, func(ctx context.Context, reg *registry.Registry) error {
				data, err := export.New(reg).ExportAll(ctx)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0644); err != nil {
					return fmt.Errorf("writing %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", export.FileName, "output file")
	return cmd
}

func newDumpCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the whole snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, open, func(ctx context.Context, reg *registry.Registry) error {
				snap, err := reg.Snapshot(ctx)
				if err != nil {
					return err
				}
				data, err := store.EncodeSnapshot(snap)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}

func parseRefNo(s string) (int, error) {
	refNo, err := strconv.Atoi(s)
	if err != nil || refNo < 1 {
		return 0, fmt.Errorf("invalid %s %q", models.ColRefNo, s)
	}
	return refNo, nil
}

func parseFieldFlags(flags []string) (map[string]string, error) {
	values := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected COLUMN=VALUE", f)
		}
		values[key] = value
	}
	return values, nil
}

func printTeams(w io.Writer, teams []models.Team) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(models.Columns, "\t"))
	for _, t := range teams {
		row := make([]string, len(models.Columns))
		for i, col := range models.Columns {
			row[i] = t.Value(col)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
