package main

import (
	"fmt"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/export"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/spf13/cobra"
)

var (
	exportSQL    string
	exportTable  string
	exportFormat string
	exportName   string
	exportList   bool
	exportShow   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a query or a table page to the object store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		exp, err := newExporter(ctx)
		if err != nil {
			return err
		}
		if exp == nil {
			return errs.New(errs.ErrKindInvalidInput, "export.endpoint is not configured")
		}
		out := cmd.OutOrStdout()

		if exportList {
			objs, err := exp.List(ctx)
			if err != nil {
				return err
			}
			for _, o := range objs {
				fmt.Fprintf(out, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format("2006-01-02 15:04:05"))
			}
			return nil
		}

		if exportShow != "" {
			res, err := exp.Lookup(ctx, exportShow)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s/%s\t%d rows\t%d bytes\n%s\n", res.Bucket, res.Key, res.Rows, res.Object.Size, res.URL)
			return nil
		}

		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		if (exportSQL == "") == (exportTable == "") {
			return errs.New(errs.ErrKindInvalidInput, "exactly one of --sql or --table is required")
		}

		st, p, err := connect(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var rs *model.ResultSet
		if exportSQL != "" {
			rs, err = st.Execute(ctx, exportSQL)
		} else {
			if err := requireCatalog(p); err != nil {
				return err
			}
			var params model.QueryParameters
			if params, err = browseParams(exportTable); err == nil {
				rs, err = st.Select(ctx, params)
			}
		}
		if err != nil {
			return err
		}

		res, err := exp.Export(ctx, rs, format, exportName)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d rows to %s/%s\n", res.Rows, res.Bucket, res.Key)
		if res.URL != "" {
			fmt.Fprintln(out, res.URL)
		}
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportSQL, "sql", "", "Statement whose result is exported")
	f.StringVar(&exportTable, "table", "", "Table to export, as schema.table")
	f.StringVar(&exportFormat, "format", "csv", "Output format: csv or jsonl")
	f.StringVar(&exportName, "name", "", "Base name of the object key")
	f.BoolVar(&exportList, "list", false, "List previous exports instead")
	f.StringVar(&exportShow, "show", "", "Describe an earlier export by key and print a fresh download link")
	f.IntVarP(&browseLimit, "limit", "n", 0, "Rows to export with --table (default: browse.page_size)")
	f.StringVarP(&browseSort, "sort", "s", "", "Sort column for --table, optionally suffixed with :asc or :desc")
	f.StringVarP(&browseFilter, "filter", "f", "", "Filter expression for --table")

	rootCmd.AddCommand(exportCmd)
}
