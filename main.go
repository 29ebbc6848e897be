package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"factcheck_gateway/internal/config"
	"factcheck_gateway/internal/intent"
	"factcheck_gateway/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "factcheck-gateway",
	Short: "Chat fact-check gateway (Telegram, WhatsApp, Discord, REST)",
	Long: `Routes chat messages by intent and verifies claims against the
Google Fact Check Tools API, caching results in Redis and storing them in Postgres.

Without a subcommand the HTTP server is started.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, webhooks and chat adapters",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQL migrations and exit",
	RunE:  runMigrate,
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Print the intent detected for a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detected := intent.NewKeywordClassifier().Classify(strings.Join(args, " "))
		_, err := fmt.Fprintln(cmd.OutOrStdout(), detected)
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, classifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap загружает конфигурацию и создаёт логгер
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func connectDB(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("connected to database", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))
	return db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := connectDB(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return runMigrations(cmd.Context(), db, cfg.Database.MigrationsDir, log)
}

type migrationExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// runMigrations выполняет *.sql из каталога в лексикографическом порядке.
// Каждый запуск выполняет все файлы, скрипты должны быть идемпотентны.
func runMigrations(ctx context.Context, db migrationExecer, migrationsDir string, log *zap.Logger) error {
	log.Info("running database migrations", zap.String("dir", migrationsDir))

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		log.Info("running migration", zap.String("file", filename))

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		log.Info("migration completed", zap.String("file", filename))
	}

	log.Info("all migrations completed successfully", zap.Int("count", len(migrationFiles)))
	return nil
}
