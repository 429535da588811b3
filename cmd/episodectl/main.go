package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag string
	rootCmd = &cobra.Command{
		Use:   "episodectl",
		Short: "CLI client for the episode service REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Episode service base URL")

	// search subcommand
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search episodes with tokens and free text",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			status, _ := cmd.Flags().GetString("status")
			return runSearch(apiFlag, status, query, os.Stdout)
		},
	}
	searchCmd.Flags().StringP("query", "q", "", "Query text, e.g. 'tag:仕事 person:田中 free text'")
	searchCmd.Flags().StringP("status", "s", "all", "Status filter: all, ok or locked")
	rootCmd.AddCommand(searchCmd)

	// suggest subcommand
	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Fetch autocomplete suggestions for a field",
		RunE: func(cmd *cobra.Command, args []string) error {
			field, _ := cmd.Flags().GetString("field")
			query, _ := cmd.Flags().GetString("query")
			if field == "" {
				return fmt.Errorf("--field required")
			}
			return runSuggest(apiFlag, field, query, os.Stdout)
		},
	}
	suggestCmd.Flags().StringP("field", "f", "", "Field name, e.g. tag, person, mediaType (required)")
	suggestCmd.Flags().StringP("query", "q", "", "Substring filter")
	rootCmd.AddCommand(suggestCmd)

	// validate-tag subcommand
	validateCmd := &cobra.Command{
		Use:   "validate-tag <name>",
		Short: "Check a tag name against the naming rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateTag(apiFlag, args[0], os.Stdout)
		},
	}
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
