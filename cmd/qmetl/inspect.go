package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qmetl/internal/inspect"
	"qmetl/internal/normalize"
	"qmetl/internal/parser/csv"
)

var flagInspectHeaderRows int

func init() {
	inspectCmd.Flags().IntVar(&flagInspectHeaderRows, "header-rows", 2, "leading header rows to skip")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <export.csv>",
	Short: "Summarize an export's columns to help author a mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := csv.ReadFile(args[0], csv.Options{
			HeaderRows: flagInspectHeaderRows,
			TrimSpace:  true,
			LazyQuotes: true,
		})
		if err != nil {
			return err
		}

		norm := normalize.New([]int{year() - 1, year(), year() + 1})
		fmt.Print(inspect.Columns(rows, norm).Render())
		return nil
	},
}
