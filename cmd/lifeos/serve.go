package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifeos/internal/db"
	"github.com/lifeos/internal/handler"
	"github.com/lifeos/internal/router"
	"github.com/lifeos/internal/service"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily brain scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, err := openDatabase()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ListenAddr
			}

			if _, err := db.EnsureUser(gdb, cfg.DefaultUserID, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
				return fmt.Errorf("ensure root user: %w", err)
			}

			gin.SetMode(cfg.GinMode)
			loc := cfg.Location()

			api := handler.NewAPI(gdb, handler.Options{
				Location:         loc,
				DefaultUserID:    cfg.DefaultUserID,
				AllowDefaultUser: cfg.AllowDefaultUser,
				TokenSecret:      cfg.JWTSecret,
				TokenTTL:         cfg.TokenTTL,
				UploadDir:        cfg.UploadDir,
				UploadURL:        cfg.UploadURLPath,
			})

			engine := router.SetupRouter(api, router.Options{
				SessionSecret: cfg.SessionSecret,
				UploadDir:     cfg.UploadDir,
				UploadURLPath: cfg.UploadURLPath,
			})

			corsHandler := cors.New(cors.Options{
				AllowedOrigins:   cfg.CORSAllowedOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
				AllowedHeaders:   []string{"Authorization", "Content-Type"},
				AllowCredentials: true,
			})

			scheduler := service.NewSchedulerService(loc)
			if cfg.BrainEnabled && cfg.AllowDefaultUser {
				if _, err := scheduler.ScheduleDaily(cfg.BrainRunAt, api.Guardian().DailyJob(cfg.DefaultUserID)); err != nil {
					return fmt.Errorf("schedule brain: %w", err)
				}
				log.Printf("[brain] daily run scheduled at %s %s", cfg.BrainRunAt, loc)
			}
			scheduler.Start()
			defer scheduler.Stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           corsHandler.Handler(engine),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("[server] listening on %s", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("run server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Printf("[server] shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to LISTEN_ADDR)")
	return cmd
}
