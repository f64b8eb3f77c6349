package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/rowcraft/internal/edit"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/koustreak/rowcraft/internal/query"
	"github.com/koustreak/rowcraft/internal/store"
	"github.com/spf13/cobra"
)

var (
	editSet    []string
	editRow    string
	editRows   []string
	editDryRun bool
)

var insertCmd = &cobra.Command{
	Use:   "insert schema.table --set column=value ...",
	Short: "Insert a row; columns without --set are sent as NULL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd, args[0], "")
	},
}

var updateCmd = &cobra.Command{
	Use:   "update schema.table --row LOCATOR --set column=value ...",
	Short: "Update the cells of one row",
	Long: `Update the cells of one row. LOCATOR is the value of the ROW column printed
by browse. Only cells whose value actually changes are written. Use NULL or an
empty value to set a cell to NULL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if editRow == "" {
			return errs.New(errs.ErrKindInvalidInput, "--row is required")
		}
		return runEdit(cmd, args[0], editRow)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete schema.table --row LOCATOR ...",
	Short: "Delete rows by locator",
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

		if editDryRun {
			sql, err := st.PreviewDelete(ref, editRows)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		}
		n, err := st.DeleteRows(cmd.Context(), ref, editRows)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d rows\n", n)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{insertCmd, updateCmd} {
		c.Flags().StringArrayVar(&editSet, "set", nil, "column=value to stage, repeatable")
		c.Flags().BoolVar(&editDryRun, "dry-run", false, "Print the statement instead of running it")
	}
	updateCmd.Flags().StringVar(&editRow, "row", "", "Locator of the row to update")
	deleteCmd.Flags().StringArrayVar(&editRows, "row", nil, "Locator of a row to delete, repeatable")
	deleteCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Print the statement instead of running it")

	rootCmd.AddCommand(insertCmd, updateCmd, deleteCmd)
}

// runEdit loads the target row (or just the columns, for an insert) and
// drives an edit session through to commit.
func runEdit(cmd *cobra.Command, table, identity string) error {
	ref, err := parseTableRef(table)
	if err != nil {
		return err
	}
	values, err := parseAssignments(editSet)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, p, err := connect(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := requireCatalog(p); err != nil {
		return err
	}

	rs, err := loadForEdit(ctx, st, ref, identity)
	if err != nil {
		return err
	}

	sess := edit.NewSession(rs, st)
	if identity == "" {
		err = sess.BeginInsert()
	} else {
		err = sess.BeginUpdate(0)
	}
	if err != nil {
		return err
	}
	if err := stage(sess, values); err != nil {
		return err
	}

	if editDryRun {
		cells, err := sess.Diff()
		if err != nil {
			return err
		}
		var sql string
		if identity == "" {
			sql, err = st.PreviewInsert(ref, cells)
		} else {
			sql, err = st.PreviewUpdate(ref, identity, cells)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sql)
		return nil
	}

	if err := sess.Commit(ctx); err != nil {
		for col, cerr := range sess.Errors().Columns {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", col, cerr)
		}
		return err
	}

	last := rs.Rows[len(rs.Rows)-1]
	if identity != "" {
		last = rs.Rows[0]
	}
	return printResult(cmd.OutOrStdout(), &model.ResultSet{Columns: rs.Columns, Rows: []model.Row{last}}, true)
}

// loadForEdit fetches the columns of ref and, for an update, the single row
// at identity.
func loadForEdit(ctx context.Context, st *store.Store, ref model.TableRef, identity string) (*model.ResultSet, error) {
	params := model.QueryParameters{Target: &ref, Limit: 1}
	if identity != "" {
		params.Filter = &model.Filter{Column: query.IdentityColumn, Operator: model.OpEquals, Value: identity}
	}
	rs, err := st.Select(ctx, params)
	if err != nil {
		return nil, err
	}
	if identity == "" {
		rs.Rows = nil
		return rs, nil
	}
	if len(rs.Rows) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "no row %s in %s", identity, ref)
	}
	return rs, nil
}

func stage(sess *edit.Session, values map[string]string) error {
	draft := sess.Draft()
	for name, text := range values {
		pos := -1
		for i, c := range draft.Cells {
			if c.Column.Name == name {
				pos = i
				break
			}
		}
		if pos < 0 {
			return errs.Newf(errs.ErrKindInvalidInput, "unknown column %q", name)
		}
		if err := sess.SetText(pos, text); err != nil {
			return err
		}
	}
	return nil
}

// parseAssignments reads column=value pairs. The value may contain '='.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		if !ok || col == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "invalid assignment %q, want column=value", p)
		}
		out[col] = val
	}
	return out, nil
}
