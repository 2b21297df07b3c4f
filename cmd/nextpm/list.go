package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kangxh75/NextPM/internal/app"
	"github.com/kangxh75/NextPM/internal/dashboard"
	tablesort "github.com/kangxh75/NextPM/internal/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func listCmd(g *globals) *cobra.Command {
	view := dashboard.DefaultView()
	var desc bool

	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "Search the published specs from the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if len(args) == 1 {
				view.Search.Query = args[0]
			}
			if cmd.Flags().Changed("sort") || cmd.Flags().Changed("desc") {
				view.Sort.Ascending = !desc
				view.SortExplicit = true
			}

			service := app.New(cfg, nil, logger)
			_ = service.Reload(cmd.Context())
			resp, err := service.Specs(view)
			if err != nil {
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "TITLE", "STATUS", "PRIORITY", "COMMITS", "UPDATED").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, r := range resp.Results {
				t.Row(r.ID, r.Title,
					tablesort.StatusBadge(r.Status).Text,
					string(r.Priority),
					strconv.Itoa(r.GitCommits),
					tablesort.FormatDate(r.LastUpdated, time.Now()),
				)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.Render())
			fmt.Fprintln(out, dimStyle.Render(resp.Stats))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&view.Search.Filters.Status, "status", view.Search.Filters.Status, "Status facet")
	flags.StringVar(&view.Search.Filters.Priority, "priority", view.Search.Filters.Priority, "Priority facet")
	flags.StringVar(&view.Search.Filters.Category, "category", view.Search.Filters.Category, "Category facet")
	flags.StringVar(&view.Sort.Column, "sort", view.Sort.Column, "Sort column (id, status, commits, prs, updated)")
	flags.BoolVar(&desc, "desc", false, "Sort descending")
	return cmd
}
