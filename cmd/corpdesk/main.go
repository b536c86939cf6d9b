package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"corpdesk/internal/config"
	"corpdesk/internal/engine"
	"corpdesk/internal/identity"
	"corpdesk/internal/logger"
	"corpdesk/internal/migrate"
	"corpdesk/internal/pool"
	"corpdesk/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "corpdesk",
	Short: "Corpdesk API server",
	Long: `Corpdesk is the document management backend: multi-tenant document
trays with an automatic lifecycle, support tickets, and the user and
organization administration behind them.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(gerenciaCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CORPDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{
		"config", "database_url", "jwt_secret",
		"server.addr", "server.base_path", "server.token_ttl", "server.uploads_dir",
		"database.min_conns", "database.max_conns", "database.max_conn_idle_time",
		"database.command_timeout", "database.retry_attempts",
		"database.retry_wait", "database.overload_wait",
		"lifecycle.pending_after", "lifecycle.omitted_after", "lifecycle.expiry_window",
		"log.format", "log.level",
	} {
		_ = viper.BindEnv(key)
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "corpdesk.yaml", "config file")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("database-url"))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyOverrides lifts every CORPDESK_* environment value (and bound
// flag) over the file config.
func applyOverrides(cfg *config.Config) error {
	setString := func(key string, dst *string) {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	var firstErr error
	setDuration := func(key string, dst *config.Duration) {
		v := viper.GetString(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: invalid duration %q", key, v)
			}
			return
		}
		*dst = config.Duration(d)
	}
	setInt := func(key string, apply func(int64)) {
		v := viper.GetString(key)
		if v == "" {
			return
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: invalid number %q", key, v)
			}
			return
		}
		apply(n)
	}

	setString("database_url", &cfg.Database.URL)
	setString("jwt_secret", &cfg.Server.JWTSecret)
	setString("server.addr", &cfg.Server.Addr)
	setString("server.base_path", &cfg.Server.BasePath)
	setString("server.uploads_dir", &cfg.Server.UploadsDir)
	setString("log.format", &cfg.Log.Format)
	setString("log.level", &cfg.Log.Level)

	setDuration("server.token_ttl", &cfg.Server.TokenTTL)
	setDuration("database.max_conn_idle_time", &cfg.Database.MaxConnIdleTime)
	setDuration("database.command_timeout", &cfg.Database.CommandTimeout)
	setDuration("database.retry_wait", &cfg.Database.RetryWait)
	setDuration("database.overload_wait", &cfg.Database.OverloadWait)
	setDuration("lifecycle.pending_after", &cfg.Lifecycle.PendingAfter)
	setDuration("lifecycle.omitted_after", &cfg.Lifecycle.OmittedAfter)
	setDuration("lifecycle.expiry_window", &cfg.Lifecycle.ExpiryWindow)

	setInt("database.min_conns", func(n int64) { cfg.Database.MinConns = int32(n) })
	setInt("database.max_conns", func(n int64) { cfg.Database.MaxConns = int32(n) })
	setInt("database.retry_attempts", func(n int64) { cfg.Database.RetryAttempts = int(n) })

	return firstErr
}

func poolConfig(cfg *config.Config) pool.Config {
	return pool.Config{
		URL:             cfg.Database.URL,
		MinConns:        cfg.Database.MinConns,
		MaxConns:        cfg.Database.MaxConns,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime.Std(),
		CommandTimeout:  cfg.Database.CommandTimeout.Std(),
		RetryAttempts:   cfg.Database.RetryAttempts,
		RetryWait:       cfg.Database.RetryWait.Std(),
		OverloadWait:    cfg.Database.OverloadWait.Std(),
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("jwt_secret is required (CORPDESK_JWT_SECRET)")
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			log, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mgr := pool.NewManager(poolConfig(cfg), log)
			defer mgr.Shutdown()
			// Startup is fail-open: a database that never comes up leaves
			// the pool degraded and the API answering 503s.
			if err := mgr.Init(ctx); err != nil {
				return err
			}
			if mgr.State() == pool.StateDegraded {
				log.Warn("starting degraded: database unreachable after bootstrap retries")
			}

			e := engine.New(mgr, cfg, afero.NewOsFs(), log)
			handler, err := server.New(server.Config{
				Engine:      e,
				Resolver:    identity.TokenResolver{Secret: cfg.Server.JWTSecret},
				Log:         log,
				BasePath:    cfg.Server.BasePath,
				CORSOrigins: cfg.Server.CORSOrigins,
				UploadsDir:  cfg.Server.UploadsDir,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Info("serving API",
				zap.String("addr", cfg.Server.Addr),
				zap.String("base_path", cfg.Server.BasePath))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func gerenciaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "gerencia", Short: "Inspect gerencias"}
	cmd.AddCommand(gerenciaListCmd())
	return cmd
}

// withEngine runs fn against an engine on a live pool; unlike serve it
// fails closed when the database never comes up.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database url is required (CORPDESK_DATABASE_URL)")
	}
	log, err := logger.NewLogger(cfg.Log.Format, "error")
	if err != nil {
		return err
	}
	mgr := pool.NewManager(poolConfig(cfg), log)
	defer mgr.Shutdown()
	if err := mgr.Init(cmd.Context()); err != nil {
		return err
	}
	if mgr.State() == pool.StateDegraded {
		return fmt.Errorf("database unreachable")
	}
	return fn(cmd.Context(), engine.New(mgr, cfg, afero.NewOsFs(), log))
}

func gerenciaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List gerencias",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListGerencias(ctx)
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"ID", "Nombre", "Siglas", "Categoría"})
				for _, g := range items {
					t.AppendRow(table.Row{g.ID, g.Nombre, g.Siglas, g.Categoria})
				}
				t.Render()
				return nil
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Manage schema migrations"}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateStatusCmd())
	return cmd
}

func openSQL() (*sql.DB, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database url is required (CORPDESK_DATABASE_URL)")
	}
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openSQL()
			if err != nil {
				return err
			}
			defer db.Close()
			return migrate.Up(cmd.Context(), db)
		},
	}
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openSQL()
			if err != nil {
				return err
			}
			defer db.Close()
			records, err := migrate.Status(cmd.Context(), db)
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Version", "Source", "Applied", "Applied At"})
			for _, r := range records {
				applied := "pending"
				appliedAt := ""
				if r.Applied {
					applied = "applied"
					appliedAt = r.AppliedAt.Format(time.RFC3339)
				}
				t.AppendRow(table.Row{r.Version, r.Source, applied, appliedAt})
			}
			t.Render()
			return nil
		},
	}
}
