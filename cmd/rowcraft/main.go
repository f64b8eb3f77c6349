// Command rowcraft browses, edits and exports database tables from the
// terminal, or serves the same operations as a local JSON API.
//
// Examples:
//
//	rowcraft tables
//	rowcraft browse public.users --sort name:desc --limit 20
//	rowcraft query "select count(*) from orders"
//	rowcraft export --table public.users --format jsonl
//	rowcraft serve --listen 127.0.0.1:7070
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
