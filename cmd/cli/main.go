package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pep299/article-bias-analyzer/internal/apperror"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		printError(root, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "biasctl",
		Short:         "Estimate the political leaning of news articles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(keyCmd(), analyzeCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// printError shows the error and, for categorized failures, what to do
func printError(cmd *cobra.Command, err error) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Error: %v\n", err)

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		fmt.Fprintln(out, appErr.Kind.Remediation())
	}
}
