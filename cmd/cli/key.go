package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pep299/article-bias-analyzer/internal/application"
	"github.com/pep299/article-bias-analyzer/internal/credential"
)

func keyCmd() *cobra.Command {
	key := &cobra.Command{
		Use:   "key",
		Short: "Manage the OpenAI API key",
	}
	key.AddCommand(keySetCmd(), keyShowCmd(), keyClearCmd())
	return key
}

func keySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <api-key>",
		Short: "Validate and save an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *application.Application) error {
				result, err := app.Credentials.Save(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "API key saved and verified successfully! (%s)\n", result.Masked)
				if !result.Durable {
					fmt.Fprintln(out, "Note: API key saved for this session only. Configure STORAGE_TYPE to keep it.")
				}
				return nil
			})
		},
	}
}

func keyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the saved key, masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *application.Application) error {
				writeStatus(cmd.OutOrStdout(), app.Credentials.Status())
				return nil
			})
		},
	}
}

func keyClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *application.Application) error {
				confirm := promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
				if yes {
					confirm = func(string) bool { return true }
				}

				err := app.Credentials.Clear(cmd.Context(), confirm)
				if errors.Is(err, credential.ErrNotConfirmed) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// promptConfirmer asks on out and reads a y/yes answer from in
func promptConfirmer(in io.Reader, out io.Writer) credential.Confirmer {
	return func(question string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", question)
		answer, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

func writeStatus(w io.Writer, status credential.Status) {
	if !status.Present {
		fmt.Fprintln(w, "No API key saved.")
		return
	}

	fmt.Fprintf(w, "Key:     %s\n", status.Masked)
	fmt.Fprintf(w, "State:   %s\n", status.State)
	fmt.Fprintf(w, "Durable: %t\n", status.Durable)
	if status.VerifiedAt != nil {
		fmt.Fprintf(w, "Verified: %s\n", status.VerifiedAt.Format("2006-01-02 15:04:05 MST"))
	}
}

// withApp builds the application for one command and closes it after
func withApp(ctx context.Context, fn func(app *application.Application) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := application.New(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app)
}
