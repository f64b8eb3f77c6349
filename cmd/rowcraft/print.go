package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/koustreak/rowcraft/internal/model"
	"github.com/koustreak/rowcraft/internal/schema"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// printResult writes rs as aligned columns. With identities set, the row
// locator is printed first so it can be passed to update and delete.
func printResult(w io.Writer, rs *model.ResultSet, identities bool) error {
	tw := newTable(w)
	header := make([]string, 0, len(rs.Columns)+1)
	if identities {
		header = append(header, "ROW")
	}
	for _, c := range rs.Columns {
		header = append(header, c.Name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range rs.Rows {
		vals := make([]string, 0, len(r.Cells)+1)
		if identities {
			vals = append(vals, r.Identity)
		}
		for _, c := range r.Cells {
			vals = append(vals, c.Value.Display())
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(rs.Rows))
	return err
}

func printStructure(w io.Writer, ts *schema.TableStructure) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULL\tDEFAULT\tKEY")
	for _, c := range ts.Columns {
		def := ""
		if c.Default != nil {
			def = *c.Default
		}
		key := ""
		switch {
		case c.IsPrimaryKey:
			key = "PK"
		case c.ForeignKey != nil:
			key = "FK " + c.ForeignKey.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", c.Name, c.DataType, c.IsNullable, def, key)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(ts.Indexes) > 0 {
		fmt.Fprintln(w, "\nIndexes:")
		for _, idx := range ts.Indexes {
			fmt.Fprintf(w, "  %s\n", idx.Definition)
		}
	}
	if len(ts.Constraints) > 0 {
		fmt.Fprintln(w, "\nConstraints:")
		for _, c := range ts.Constraints {
			fmt.Fprintf(w, "  %s %s (%s)\n", c.Name, c.Kind, strings.Join(c.Columns, ", "))
		}
	}
	return nil
}
