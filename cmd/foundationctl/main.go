// Command foundationctl runs operator tasks against the foundation database
// without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/pkg/config"
	"github.com/noah-isme/foundation-api/pkg/database"
	"github.com/noah-isme/foundation-api/pkg/logger"
)

// env holds the lazily opened process dependencies shared by subcommands.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func (e *env) load() error {
	if e.cfg != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	e.cfg = cfg
	e.logger = logger.Component(logr, "foundationctl")
	return nil
}

func (e *env) database(ctx context.Context) (*sqlx.DB, error) {
	if err := e.load(); err != nil {
		return nil, err
	}
	if e.db != nil {
		return e.db, nil
	}
	db, err := database.NewPostgres(ctx, e.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	e.db = db
	return db, nil
}

func (e *env) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "foundationctl",
		Short:         "Operator tools for the foundation API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(e),
		newSeedCmd(e),
		newResolveCmd(),
		newTokenCmd(e),
		newOutboxCmd(e),
		newStorageCmd(e),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{}
	err := newRootCmd(e).ExecuteContext(ctx)
	e.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
