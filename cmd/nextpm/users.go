package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kangxh75/NextPM/internal/authpw"
)

func addUserCmd(g *globals) *cobra.Command {
	var (
		usersFile string
		password  string
	)

	cmd := &cobra.Command{
		Use:   "add-user <username>",
		Short: "Add or update a dashboard user",
		Long: `Hashes the password, stores it in the users file and prints the
value to use for ` + authpw.EnvVar + ` when the server reads its users from
the environment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if usersFile == "" {
				usersFile = cfg.UsersFile
			}
			if usersFile == "" {
				return errors.New("no users file: pass --users-file or set users_file in the config")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}

			svc := authpw.NewService(authpw.FileStore{Path: usersFile})
			users, err := svc.AddUser(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			value, err := users.EnvValue()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved %s to %s\n", args[0], usersFile)
			fmt.Fprintf(out, "%s='%s'\n", authpw.EnvVar, value)
			return nil
		},
	}

	cmd.Flags().StringVar(&usersFile, "users-file", "", "Users file (overrides config)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	return cmd
}
