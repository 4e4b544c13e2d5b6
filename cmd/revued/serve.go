package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"revue/internal/auth"
	"revue/internal/catalog"
	"revue/internal/config"
	"revue/internal/eventlog"
	"revue/internal/review"
	"revue/internal/store"
	"revue/internal/user"
	"revue/internal/web"
)

func newServeCmd(loadConfig func() (config.Config, *zap.Logger, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			srv := web.NewServer(
				cfg,
				log,
				catalog.NewStore(db, log),
				review.NewStore(db, log),
				user.NewStore(db, cfg.BcryptCost, cfg.TestAccountSuffix),
				eventlog.NewStore(db),
				auth.NewSessions(db, time.Duration(cfg.SessionTTLHours)*time.Hour),
				auth.NewLoginLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst),
			)

			log.Info("listening", zap.String("addr", cfg.Addr), zap.String("db", cfg.DatabasePath))
			httpSrv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return httpSrv.ListenAndServe()
		},
	}
}
