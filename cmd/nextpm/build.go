package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kangxh75/NextPM/internal/config"
	"github.com/kangxh75/NextPM/internal/gitrepo"
	"github.com/kangxh75/NextPM/internal/publish"
)

func buildCmd(g *globals) *cobra.Command {
	var noGit bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Publish the specs directory into the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			result, err := newBuilder(cfg, !noGit, logger).Build(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d specs (%d timeline events, %d new workflow summaries) to %s\n",
				len(result.Specs), len(result.Timeline.Events), len(result.Workflows), cfg.OutDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noGit, "no-git", false, "Skip git activity collection")
	return cmd
}

func newBuilder(cfg config.Config, withGit bool, logger *zap.Logger) *publish.Builder {
	var git *gitrepo.Service
	if withGit {
		git = gitrepo.New(cfg.RepoDir, cfg.GitHubRepo)
	}
	return publish.New(publish.Options{
		SpecsDir:   cfg.SpecsDir,
		OutDir:     cfg.OutDir,
		GitHubRepo: cfg.GitHubRepo,
		Pattern:    cfg.SpecPattern,
	}, git, logger)
}

func rebuild(builder *publish.Builder, reload func(context.Context) error) func(context.Context, []string) error {
	return func(ctx context.Context, _ []string) error {
		if _, err := builder.Build(ctx); err != nil {
			return err
		}
		return reload(ctx)
	}
}
