package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"settlement-times/internal/dataset"
	"settlement-times/internal/engine"
	"settlement-times/internal/scheduler"
	"settlement-times/internal/server"
	"settlement-times/internal/service"
	"settlement-times/internal/storage"
)

// Run executes the long-running estimate service: HTTP surface plus the
// aligned refresh loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	source, err := a.newSource(store)
	if err != nil {
		return err
	}

	loader := dataset.NewLoader(a.Logger)
	holder := engine.NewHolder()
	eng := engine.New(holder)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Refresh.Interval,
		AlignToCycle: a.Config.Refresh.AlignToCycle,
		StartupDelay: a.Config.Refresh.StartupDelay,
	}, a.Logger)

	var auditor storage.RefreshAuditor
	var locker storage.AdvisoryLocker
	if store != nil {
		auditor = store
		locker = store
	}

	svc := service.New(sched, source, loader, holder, auditor, locker, a.Config.Refresh.AdvisoryLockKey, a.Logger)

	// Load eagerly so the HTTP surface can serve estimates from the start.
	// A failed initial load is not fatal: estimates stay absent until the
	// first successful refresh cycle.
	if err := svc.Refresh(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("initial dataset load failed; serving without estimates")
	}

	srv := server.New(server.Options{
		ListenAddr:     a.Config.Server.ListenAddr,
		RequestTimeout: a.Config.Server.RequestTimeout,
		LatencyBudget:  a.Config.Server.LatencyBudget,
	}, eng, holder, a.Logger)

	httpSrv := srv.HTTPServer()
	errCh := make(chan error, 2)

	go func() {
		a.Logger.Info().Str("addr", a.Config.Server.ListenAddr).Msg("http server listening")
		if serveErr := httpSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	go func() {
		if runErr := svc.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			errCh <- runErr
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		a.Logger.Error().Err(err).Msg("component terminated with error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.Logger.Warn().Err(shutdownErr).Msg("http shutdown incomplete")
	}

	a.Logger.Info().Msg("estimate service stopped")
	return err
}
