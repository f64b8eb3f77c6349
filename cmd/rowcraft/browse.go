package main

import (
	"fmt"
	"strings"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List base tables grouped by schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, p, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := requireCatalog(p); err != nil {
			return err
		}

		schemas, err := st.ListTables(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range schemas {
			fmt.Fprintln(out, s.Name)
			for _, t := range s.Tables {
				fmt.Fprintf(out, "  %s\n", t.Name)
			}
		}
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe schema.table",
	Short: "Show columns, indexes and constraints of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseTableRef(args[0])
		if err != nil {
			return err
		}
		st, p, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := requireCatalog(p); err != nil {
			return err
		}

		ts, err := st.FetchTableStructure(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return printStructure(cmd.OutOrStdout(), ts)
	},
}

var (
	browseLimit  int
	browseOffset int
	browseSort   string
	browseFilter string
)

var browseCmd = &cobra.Command{
	Use:   "browse schema.table",
	Short: "Show one page of a table",
	Long: `Show one page of a table.

Filters take the form "column operator [value]", for example:
  --filter "name contains ann"
  --filter "deleted_at isNull"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := browseParams(args[0])
		if err != nil {
			return err
		}
		st, p, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := requireCatalog(p); err != nil {
			return err
		}

		rs, err := st.Select(cmd.Context(), params)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), rs, true)
	},
}

var queryCommand string

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run an ad-hoc statement",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sql := queryCommand
		if len(args) == 1 {
			sql = args[0]
		}
		if sql == "" {
			return errs.New(errs.ErrKindInvalidInput, "must specify a statement as an argument or with -c")
		}
		st, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		rs, err := st.Execute(cmd.Context(), sql)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), rs, false)
	},
}

func init() {
	browseCmd.Flags().IntVarP(&browseLimit, "limit", "n", 0, "Rows per page (default: browse.page_size)")
	browseCmd.Flags().IntVar(&browseOffset, "offset", 0, "Rows to skip")
	browseCmd.Flags().StringVarP(&browseSort, "sort", "s", "", "Sort column, optionally suffixed with :asc or :desc")
	browseCmd.Flags().StringVarP(&browseFilter, "filter", "f", "", "Filter expression")

	queryCmd.Flags().StringVarP(&queryCommand, "command", "c", "", "SQL command to execute")

	rootCmd.AddCommand(tablesCmd, describeCmd, browseCmd, queryCmd)
}

func browseParams(table string) (model.QueryParameters, error) {
	ref, err := parseTableRef(table)
	if err != nil {
		return model.QueryParameters{}, err
	}
	params := model.QueryParameters{Target: &ref, Limit: browseLimit, Offset: browseOffset}
	if params.Limit == 0 {
		params.Limit = cfg.Browse.PageSize
	}
	if browseSort != "" {
		col, dir, _ := strings.Cut(browseSort, ":")
		params.Sort = &model.Sort{Column: col, Direction: model.SortDirection(strings.ToLower(dir))}
	}
	if browseFilter != "" {
		f, err := parseFilter(browseFilter)
		if err != nil {
			return params, err
		}
		params.Filter = &f
	}
	return params, nil
}

// parseFilter reads "column operator [value]". The value keeps any inner
// spaces.
func parseFilter(s string) (model.Filter, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 3)
	if len(parts) < 2 {
		return model.Filter{}, errs.Newf(errs.ErrKindInvalidInput, "invalid filter %q, want \"column operator [value]\"", s)
	}
	f := model.Filter{Column: parts[0], Operator: model.FilterOperator(parts[1])}
	if len(parts) == 3 {
		f.Value = parts[2]
	}
	if f.Operator.TakesValue() && len(parts) < 3 {
		return f, errs.Newf(errs.ErrKindInvalidInput, "filter operator %s needs a value", f.Operator)
	}
	return f, nil
}
