package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/internal/repository"
	"github.com/noah-isme/foundation-api/internal/service"
	"github.com/noah-isme/foundation-api/migrations"
	"github.com/noah-isme/foundation-api/pkg/cache"
	"github.com/noah-isme/foundation-api/pkg/storage"
)

func newMigrateCmd(e *env) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if list {
				names, err := migrations.Names()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			db, err := e.database(cmd.Context())
			if err != nil {
				return err
			}
			applied, err := migrations.Up(cmd.Context(), db, e.logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(out, "applied", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print embedded migrations without touching the database")
	return cmd
}

func newSeedCmd(e *env) *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Upsert support configurations from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			db, err := e.database(cmd.Context())
			if err != nil {
				return err
			}

			var configCache *service.CacheService
			redisClient, err := cache.NewRedis(cmd.Context(), e.cfg.Redis)
			if err != nil {
				e.logger.Warn("redis unavailable, cached configurations expire on their own", zap.Error(err))
			}
			if redisClient != nil {
				defer redisClient.Close() //nolint:errcheck
				configCache = service.NewCacheService(repository.NewCacheRepository(redisClient, e.logger), nil, e.cfg.SupportConfigs.CacheTTL, e.logger, true)
			}

			svc := service.NewSupportConfigService(repository.NewSupportConfigRepository(db), configCache, repository.NewAuditRepository(db), validator.New(), e.logger, e.cfg.SupportConfigs.CacheTTL)
			seeded, err := svc.SeedFromYAML(cmd.Context(), data, actorID)
			if err != nil {
				return err
			}
			for _, cfg := range seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tactive=%t\n", cfg.SupportType, cfg.IsActive)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "user id recorded as creator of the rows")
	return cmd
}

type resolveOptions struct {
	configFile    string
	supportType   string
	academicLevel string
	schoolType    string
	age           int
	lastGrade     float64
}

func newResolveCmd() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Evaluate eligibility offline against a YAML configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject := models.EligibilitySubject{
				AcademicLevel: models.AcademicLevel(opts.academicLevel),
				SchoolType:    models.SchoolType(opts.schoolType),
				Age:           opts.age,
			}
			if cmd.Flags().Changed("last-grade") {
				grade := opts.lastGrade
				subject.LastGrade = &grade
			}
			return runResolve(cmd.OutOrStdout(), opts.configFile, opts.supportType, subject)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "YAML file with support configurations")
	flags.StringVar(&opts.supportType, "type", "", "support type to evaluate")
	flags.StringVar(&opts.academicLevel, "level", "", "academic level of the subject")
	flags.StringVar(&opts.schoolType, "school", "", "school type of the subject")
	flags.IntVar(&opts.age, "age", 0, "age of the subject")
	flags.Float64Var(&opts.lastGrade, "last-grade", 0, "last grade of the subject")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runResolve(out io.Writer, configFile, supportType string, subject models.EligibilitySubject) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	cfgs, err := service.ParseSupportConfigsYAML(data)
	if err != nil {
		return err
	}
	for _, cfg := range cfgs {
		if cfg.SupportType != supportType {
			continue
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(service.ResolveEligibility(subject, cfg))
	}
	return fmt.Errorf("support type %q not found in %s", supportType, configFile)
}

func newTokenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an API token for an existing active user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.database(cmd.Context())
			if err != nil {
				return err
			}
			auth := service.NewAuthService(repository.NewUserRepository(db), e.logger, service.AuthConfig{
				AccessTokenSecret: e.cfg.JWT.Secret,
				AccessTokenExpiry: e.cfg.JWT.Expiration,
				Issuer:            e.cfg.JWT.Issuer,
			})
			token, err := auth.IssueToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
			fmt.Fprintln(cmd.ErrOrStderr(), "expires", token.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newOutboxCmd(e *env) *cobra.Command {
	outbox := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and deliver queued notifications",
	}
	outbox.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Deliver every due notification and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.database(cmd.Context())
			if err != nil {
				return err
			}
			providers, err := service.NewDeliveryProviders(e.cfg.Notifications, e.logger)
			if err != nil {
				return err
			}
			dispatcher := service.NewOutboxDispatcher(repository.NewNotificationRepository(db), providers, nil, e.logger, service.OutboxDispatcherConfig{
				BatchSize:   e.cfg.Notifications.BatchSize,
				MaxAttempts: e.cfg.Notifications.MaxAttempts,
				RetryDelay:  e.cfg.Notifications.RetryDelay,
			})
			attempted, err := dispatcher.Drain(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "attempted %d notifications\n", attempted)
			return err
		},
	})
	return outbox
}

func newStorageCmd(e *env) *cobra.Command {
	var olderThan time.Duration
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Maintain the document object store",
	}
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Remove uploaded objects that were never registered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.database(cmd.Context())
			if err != nil {
				return err
			}
			store, err := storage.NewLocalStore(e.cfg.Storage.Dir)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			documents := repository.NewDocumentRepository(db)
			svc := service.NewDocumentService(documents, nil, nil, nil, store, nil, nil, nil, e.logger, service.DocumentServiceConfig{})
			removed, err := svc.PurgeOrphans(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			for _, key := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), "removed", key)
			}
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum age of an unregistered object")
	storageCmd.AddCommand(purge)
	return storageCmd
}
