// Package main provides the nextpm binary: it publishes a specs directory
// into a static site and serves the spec dashboard over it.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kangxh75/NextPM/internal/authpw"
	"github.com/kangxh75/NextPM/internal/config"
	"github.com/kangxh75/NextPM/internal/logging"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "nextpm"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand. Flags
// override the config file, which overrides the environment.
type globals struct {
	configPath string
	logLevel   string
	specsDir   string
	outDir     string
	repoDir    string
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Spec publishing and dashboard",
		Long: `nextpm turns a directory of markdown specs into a static site with a
search index, an activity timeline built from git history and a
navigation file, and serves the interactive spec dashboard on top of it.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Config file path (JSONC)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&g.specsDir, "specs", "", "Specs directory")
	flags.StringVar(&g.outDir, "out", "", "Site output directory")
	flags.StringVar(&g.repoDir, "repo", "", "Git repository holding the specs")

	cmd.AddCommand(
		buildCmd(g),
		serveCmd(g),
		listCmd(g),
		exportCmd(g),
		addUserCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

func (g *globals) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadWithFile(g.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	for _, o := range []struct {
		flag  string
		value *string
	}{
		{g.logLevel, &cfg.LogLevel},
		{g.specsDir, &cfg.SpecsDir},
		{g.outDir, &cfg.OutDir},
		{g.repoDir, &cfg.RepoDir},
	} {
		if o.flag != "" {
			*o.value = o.flag
		}
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// usersService picks the credentials source: a users file wins over the
// inline table. Nil means the server runs open.
func usersService(cfg config.Config) (*authpw.Service, error) {
	if cfg.UsersFile != "" {
		return authpw.NewService(authpw.FileStore{Path: cfg.UsersFile}), nil
	}
	users, err := authpw.ParseUsers(cfg.BasicAuthUsers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", authpw.EnvVar, err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return authpw.NewService(authpw.StaticStore{Users: users}), nil
}
