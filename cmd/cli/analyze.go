package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pep299/article-bias-analyzer/internal/application"
	"github.com/pep299/article-bias-analyzer/internal/model"
	"github.com/pep299/article-bias-analyzer/internal/render"
)

func analyzeCmd() *cobra.Command {
	var (
		output  string
		svgPath string
		width   int
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Estimate the left/right leaning of the article at url",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return checkFormat(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *application.Application) error {
				if refresh {
					if err := app.Analyzer.ForgetURL(cmd.Context(), args[0]); err != nil {
						return err
					}
				}

				payload, err := app.Analyzer.AnalyzeURL(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if svgPath != "" {
					if err := os.WriteFile(svgPath, []byte(render.DonutSVG(payload.Left, payload.Right)), 0o644); err != nil {
						return fmt.Errorf("writing chart: %w", err)
					}
				}

				return writePayload(cmd.OutOrStdout(), *payload, output, width)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().StringVar(&svgPath, "svg", "", "also write a donut chart to this SVG file")
	cmd.Flags().IntVar(&width, "width", render.DefaultWidth, "terminal width for text output")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore any cached estimate for this page")
	return cmd
}

func checkFormat(format string) error {
	switch format {
	case "", "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writePayload(w io.Writer, payload model.Payload, format string, width int) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	switch format {
	case "", "text":
		return render.Text(w, payload, width)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(payload)
	}
	return nil
}
