package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kangxh75/NextPM/internal/app"
	"github.com/kangxh75/NextPM/internal/export"
)

func exportCmd(g *globals) *cobra.Command {
	var (
		format string
		title  string
		query  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dashboard as a PDF or HTML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			parsed, err := export.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("%w: %s", err, format)
			}
			service := app.New(cfg, nil, logger)
			_ = service.Reload(cmd.Context())

			result, err := service.Export(cmd.Context(), export.Request{Format: parsed, Title: title, Query: query})
			if err != nil {
				return err
			}
			if output == "" {
				output = result.Filename
			}
			if err := os.WriteFile(output, result.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(result.Data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatPDF), "Export format (pdf, html)")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Dashboard view query, e.g. status=draft&sort=id")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default derived from the title)")
	return cmd
}
