package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/provision"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/scheduler"
)

// lastVerification — источник результата последней проверки.
type lastVerification interface {
	Last() (*provision.Verification, error)
}

// NewWatchCmd создаёт команду периодической проверки топологии.
func NewWatchCmd(depsFn func() (*Deps, error)) *cobra.Command {
	var schedule string
	var provisionFirst bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Verify the topology on a cron schedule and serve /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := depsFn()
			if err != nil {
				return err
			}
			defer d.Close()

			if err := scheduler.ValidateCronExpr(schedule); err != nil {
				return err
			}

			ctx := cmd.Context()

			if provisionFirst {
				if err := runSetup(ctx, d); err != nil {
					return err
				}
			}

			w, err := scheduler.New(scheduler.Config{
				Definition: d.Definition,
				Connect:    d.Connect,
				Schedule:   schedule,
				Logger:     d.Logger,
				Metrics:    d.Metrics,
			})
			if err != nil {
				return err
			}

			addr := fmt.Sprintf(":%d", d.Config.Metrics.Port)
			server := &http.Server{
				Addr:              addr,
				Handler:           newWatchMux(d.Registry, w),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				d.Logger.Info("listening", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.Logger.Error("metrics server error", "error", err)
				}
			}()

			if err := w.Tick(ctx); err != nil {
				d.Logger.Error("initial verification failed", "error", err)
			}

			d.Logger.Info("watching topology", "schedule", schedule)
			err = w.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
				d.Logger.Error("shutdown error", "error", shutdownErr)
			}

			if errors.Is(err, context.Canceled) {
				d.Logger.Info("stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "@every 1m", "Cron expression for verification passes")
	cmd.Flags().BoolVar(&provisionFirst, "provision", false, "Run a full setup before watching")

	return cmd
}

// newWatchMux возвращает обработчики /metrics и /healthz.
func newWatchMux(reg *prometheus.Registry, last lastVerification) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		v, err := last.Last()
		switch {
		case err != nil:
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, err.Error())
		case v.Aborted:
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "verification aborted: %v", v.AbortErr)
		case !v.AllPresent():
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "missing: %s", strings.Join(v.MissingResources(), ", "))
		default:
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "ok %s", v.CheckedAt.Format(time.RFC3339))
		}
	})
	return mux
}
