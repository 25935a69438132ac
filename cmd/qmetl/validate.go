package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"qmetl/internal/schema"
)

var flagValidateIn string

func init() {
	validateCmd.Flags().StringVar(&flagValidateIn, "in", "-", "collection JSON file, or - for stdin")
	rootCmd.AddCommand(validateCmd)
}

// Exit codes: 0 the collection is valid, 1 it violates the schema, 2 the
// validation itself could not run (bad input, missing schema document).
var validateCmd = &cobra.Command{
	Use:   "validate <record-type>",
	Short: "Validate an existing record collection against a year's schema document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runValidate(args[0]))
	},
}

func runValidate(recordType string) int {
	var (
		b   []byte
		err error
	)
	if flagValidateIn == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(flagValidateIn)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read collection:", err)
		return 2
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		fmt.Fprintln(os.Stderr, "parse collection:", err)
		return 2
	}

	sd, err := schema.NewRegistry(schemaDir()).Load(recordType, year())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	res, err := sd.Validate(doc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if !res.Valid {
		for _, v := range res.Errors {
			fmt.Fprintf(os.Stderr, "%s: %s\n", v.Path, v.Expected)
		}
		fmt.Printf("%s/%d: %s\n", recordType, year(), res.Summary())
		return 1
	}

	fmt.Printf("%s/%d: valid\n", recordType, year())
	return 0
}
