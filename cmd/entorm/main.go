package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hatlonely/entorm/rdb/database"
	"github.com/hatlonely/entorm/rdb/manager"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "entorm",
		Short:        "Manage tables described by entity definition files",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "entorm.yaml", "config file (ini, yaml, toml or json)")

	// withApp 为每次命令加载配置，命令结束后释放连接
	withApp := func(fn func(ctx context.Context, app *App, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			app, err := LoadApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return fn(cmd.Context(), app, cmd.OutOrStdout(), args)
		}
	}

	var ddl bool
	describe := &cobra.Command{
		Use:   "describe <entity>",
		Short: "Print the columns of an entity, or its CREATE TABLE statement with --ddl",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *App, out io.Writer, args []string) error {
			m, err := app.Manager(args[0])
			if err != nil {
				return err
			}
			if ddl {
				_, err = fmt.Fprintln(out, manager.BuildCreateTable(app.executor.Dialect(), m.Entity().Table(), time.Now()))
				return err
			}
			_, err = fmt.Fprint(out, m.Entity().Describe())
			return err
		}),
	}
	describe.Flags().BoolVar(&ddl, "ddl", false, "print the CREATE TABLE statement")

	var offset, limit int
	show := &cobra.Command{
		Use:   "show <table>",
		Short: "Print rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *App, out io.Writer, args []string) error {
			result, err := app.Admin().ShowTable(ctx, args[0], offset, limit)
			if err != nil {
				return err
			}
			return printResult(out, result)
		}),
	}
	show.Flags().IntVar(&offset, "offset", 0, "first row to print")
	show.Flags().IntVar(&limit, "limit", 100, "number of rows to print")

	root.AddCommand(
		&cobra.Command{
			Use:   "create <entity>...",
			Short: "Create the tables of the given entities",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(ctx context.Context, app *App, out io.Writer, args []string) error {
				for _, name := range args {
					m, err := app.Manager(name)
					if err != nil {
						return err
					}
					if err := m.CreateTable(ctx); err != nil {
						return err
					}
					fmt.Fprintf(out, "table %s created\n", m.Entity().TableName())
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "drop <entity>...",
			Short: "Drop the tables of the given entities",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(ctx context.Context, app *App, out io.Writer, args []string) error {
				for _, name := range args {
					m, err := app.Manager(name)
					if err != nil {
						return err
					}
					if err := m.DropTable(ctx); err != nil {
						return err
					}
					fmt.Fprintf(out, "table %s dropped\n", m.Entity().TableName())
				}
				return nil
			}),
		},
		describe,
		&cobra.Command{
			Use:   "entities",
			Short: "List entities found in the schema directory",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, app *App, out io.Writer, args []string) error {
				names, err := app.source.Entities()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, strings.Join(names, "\n"))
				return err
			}),
		},
		&cobra.Command{
			Use:   "tables",
			Short: "List tables in the database",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, app *App, out io.Writer, args []string) error {
				tables, err := app.Admin().ListTables(ctx)
				if err != nil {
					return err
				}
				for _, table := range tables {
					fmt.Fprintln(out, table)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clean <table>",
			Short: "Delete every row of a table",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, app *App, out io.Writer, args []string) error {
				n, err := app.Admin().CleanTable(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "table %s cleaned, %d rows deleted\n", args[0], n)
				return err
			}),
		},
		show,
		&cobra.Command{
			Use:   "desc <table>",
			Short: "Print the column layout the database reports for a table",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, app *App, out io.Writer, args []string) error {
				result, err := app.Admin().DescribeTable(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(out, result)
			}),
		},
	)

	return root
}

// printResult 以对齐的列输出结果集，NULL 输出为 NULL
func printResult(out io.Writer, result *database.ResultSet) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}
