package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "verein-backend",
		Short:         "Association administration backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", db.DefaultConfigPath, "path to config.yaml")

	root.AddCommand(serveCmd(&configPath), migrateCmd(&configPath), accountCmd(&configPath))
	return root
}

// setup loads the config, builds the logger and opens the database.
func setup(ctx context.Context, configPath string) (*db.Config, zerolog.Logger, *sql.DB, error) {
	cfg, err := db.LoadConfig(configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger := logging.New(cfg.Mode, cfg.Log.Level)
	conn, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, logger, nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info().Str("mode", cfg.Mode).Str("db", cfg.DB.DBName).Msg("connected to database")
	return cfg, logger, conn, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, conn, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return serve(cfg, conn, logger)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and views",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, conn, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := db.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			logger.Info().Int("statements", n).Msg("schema migrated")
			return nil
		},
	}
}

func accountCmd(configPath *string) *cobra.Command {
	account := &cobra.Command{Use: "account", Short: "Manage login accounts"}

	var (
		in            auth.RegisterInput
		associationID int64
		memberID      int64
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a login account",
		Example: "  verein-backend account create --id admin --role admin\n" +
			"  verein-backend account create --id kasse --role dernek --association 1",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			cfg, _, conn, err := setup(ctx, *configPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			if in.Password == "" {
				in.Password = os.Getenv("VEREIN_ACCOUNT_PASSWORD")
			}
			if cmd.Flags().Changed("association") {
				in.AssociationID = &associationID
			}
			if cmd.Flags().Changed("member") {
				in.MemberID = &memberID
			}
			if err := auth.NewService(conn, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL).Register(ctx, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %q created (%s)\n", in.ID, in.Role)
			return nil
		},
	}
	create.Flags().StringVar(&in.ID, "id", "", "login id")
	create.Flags().StringVar(&in.Password, "password", "", "password (default $VEREIN_ACCOUNT_PASSWORD)")
	create.Flags().StringVar(&in.Role, "role", auth.RoleAdmin, "admin, dernek or mitglied")
	create.Flags().Int64Var(&associationID, "association", 0, "association id for dernek and mitglied accounts")
	create.Flags().Int64Var(&memberID, "member", 0, "member id for mitglied accounts")
	_ = create.MarkFlagRequired("id")

	account.AddCommand(create)
	return account
}
