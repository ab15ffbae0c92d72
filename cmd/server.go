package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/httpapp"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the cratekeeper HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.Close()

		// Restore annotations for a returning session before the UI asks
		// for anything; a failed identity resolution just means the user
		// has not configured a credential yet.
		rt.Phases.IdentityLoadingStarted()
		username, err := rt.Resolver.Resolve(context.Background())
		if err != nil {
			if err != auth.ErrCredentialPending {
				rt.Logger.Warn("Identity resolution failed at startup", "error", err)
			}
			rt.Phases.IdentityConcluded(false)
		} else {
			rt.Phases.IdentityConcluded(true)
			if err := rt.Sync.LoadAnnotations(username); err != nil {
				rt.Logger.Warn("Failed to load annotations", "error", err)
			}
		}

		handler := httpapp.NewHandler(rt.Library, rt.Sync, rt.Annotate, rt.Sessions, rt.Prices, rt.Resolver, rt.Accounts, rt.Login, rt.Phases, rt.Logger)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		handler.RegisterRoutes(r)

		srv := &http.Server{
			Addr:    ":" + rt.Config.Port,
			Handler: r,
		}

		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			rt.Logger.Info("Server starting", "port", rt.Config.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				rt.Logger.Error("Server failed", "error", err)
				os.Exit(1)
			}
		}()

		<-done
		rt.Logger.Info("Server stopping")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}
