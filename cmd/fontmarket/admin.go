package main

import (
	"errors"
	"fmt"

	"github.com/egannguyen/fontmarket/internal/auth"
	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository/postgres"
	"github.com/egannguyen/fontmarket/internal/service"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.Store.Driver != "postgres" {
				return errors.New("migrate requires the postgres store")
			}
			db, err := postgres.InitDB(cmd.Context(), opts.cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.Migrate(cmd.Context(), db)
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			return seedCatalog(cmd.Context(), store)
		},
	}
}

func newSetRoleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <userID> <role>",
		Short: "Change a user's role (buyer, seller or admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := entity.Role(args[1])
			store, closeStore, err := openStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			return service.NewUserService(store).SetRole(cmd.Context(), args[0], role)
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "token <userID>",
		Short: "Mint a development JWT for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.Auth.Provider != "jwt" {
				return errors.New("token requires the jwt auth provider")
			}
			signer := auth.NewJWT(opts.cfg.Auth.JWTSecret, opts.cfg.Auth.TokenTTL)
			token, err := signer.Sign(auth.Identity{UserID: args[0], Email: email, Name: name})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	return cmd
}
