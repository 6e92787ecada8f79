package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"adminkit/internal/api"
	"adminkit/internal/db"
	"adminkit/internal/page"
	"adminkit/internal/pg"
	"adminkit/internal/schema"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve admin pages for the DSL tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		md, catalogs, err := loadMetadata()
		if err != nil {
			return err
		}

		gdb, err := db.Open(cfg.DBDriver, cfg.DBURL)
		if err != nil {
			return err
		}
		var pool *pgxpool.Pool
		if cfg.PGURL != "" {
			if pool, err = pg.Open(ctx, cfg.PGURL); err != nil {
				return fmt.Errorf("connecting to postgres: %w", err)
			}
		}
		mgr, err := db.NewManager(db.Options{Gorm: gdb, Pool: pool, Logger: logger})
		if err != nil {
			return err
		}
		defer func() {
			if err := mgr.Close(context.Background()); err != nil {
				logger.Error("closing session manager", "err", err)
			}
		}()

		if cfg.CreateTables {
			if err := createTables(ctx, md, gdb, pool); err != nil {
				return err
			}
		}

		reg := page.NewRegistry()
		if err := api.TablePages(reg, md, mgr); err != nil {
			return err
		}
		admin, err := api.New(md, reg, api.Options{
			Title:       cfg.Title,
			RootURL:     cfg.RootURL,
			PathMode:    cfg.PathMode,
			PathStrip:   cfg.PathStrip,
			PrebuiltURL: cfg.PrebuiltURL,
			Logger:      logger,
			Catalogs:    catalogs,
		})
		if err != nil {
			return err
		}

		srv := &http.Server{Addr: ":" + cfg.Port, Handler: admin.Handler(), ReadHeaderTimeout: 10 * time.Second}
		errc := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", srv.Addr, "root", cfg.RootURL, "frontend", cfg.PathStrip)
			errc <- srv.ListenAndServe()
		}()
		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// createTables создаёт отсутствующие в gorm-базе таблицы; при заданном pool
// та же схема применяется к Postgres через pgx (уже созданное пропускается).
func createTables(ctx context.Context, md *schema.Metadata, gdb *gorm.DB, pool *pgxpool.Pool) error {
	var missing []schema.Tabler
	for _, t := range md.Tables() {
		if !gdb.Migrator().HasTable(t.TableName()) {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		dialect, err := pg.ParseDialect(cfg.DBDriver)
		if err != nil {
			return err
		}
		stmts, err := pg.GenerateDDL(missing, dialect)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if err := gdb.WithContext(ctx).Exec(stmt).Error; err != nil {
				return fmt.Errorf("DDL apply failed: %w", err)
			}
		}
		logger.Info("tables created", "driver", cfg.DBDriver, "tables", len(missing), "statements", len(stmts))
	}

	if pool == nil {
		return nil
	}
	stmts, err := pg.GenerateDDL(md.Tables(), pg.Postgres)
	if err != nil {
		return err
	}
	return pg.ApplyDDL(ctx, pool, stmts, logger)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
