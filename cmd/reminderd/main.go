package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/StephTapera/AMENAPP-sub020/internal/config"
	"github.com/StephTapera/AMENAPP-sub020/internal/observability/pprof"
	"github.com/StephTapera/AMENAPP-sub020/internal/platform"
	"github.com/StephTapera/AMENAPP-sub020/internal/runtime/supervisor"
	"github.com/StephTapera/AMENAPP-sub020/internal/scheduler"
	"github.com/StephTapera/AMENAPP-sub020/internal/store"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to config file (json or yaml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	var (
		cfg *config.Config
		mgr *config.Manager
		err error
	)
	if cfgPath == "" {
		cfg = config.Default()
	} else {
		mgr = config.NewManager(cfgPath, logx.NewConsole("info"))
		cfg, err = mgr.Load()
		if err != nil {
			return err
		}
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logSvc.Close()

	busyTimeout, _ := cfg.StoreBusyTimeout()
	st, err := store.Open(store.Config{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("svc", "store")))
	if err != nil {
		return err
	}
	defer st.Close()

	perms := platform.NewStaticPermissions(
		parsePermission(cfg.Permissions.Notification),
		parsePermission(cfg.Permissions.Location),
	)
	regions := platform.NewSimulatedRegions(cfg.Scheduler.GeofenceCapacity)
	timers := platform.NewClockTimers(nil)
	defer timers.Close()

	retryDelay, _ := cfg.StoreRetryDelay()
	sched := scheduler.New(scheduler.Config{
		Timezone:         cfg.Scheduler.Timezone,
		GeofenceCapacity: cfg.Scheduler.GeofenceCapacity,
		StoreRetryDelay:  retryDelay,
	}, scheduler.Deps{
		Store:       st,
		Timers:      timers,
		Regions:     regions,
		Permissions: perms,
	}, log.With(logx.String("svc", "scheduler")))
	defer sched.Close()

	rep, err := sched.Rehydrate(ctx, cfg.OwnerID)
	if err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}
	for _, f := range rep.Failures {
		log.Warn("reminder not reactivated", logx.String("id", f.ReminderID), logx.Err(f.Err))
	}

	sup := supervisor.New(ctx, supervisor.WithLogger(log.With(logx.String("svc", "supervisor"))))

	prof := pprof.New(pprof.Config{Enabled: cfg.Pprof.Enabled, Addr: cfg.Pprof.Addr}, log.With(logx.String("svc", "pprof")))
	prof.Start(ctx)
	defer prof.Stop(context.Background())

	// Alert sink: renders fired events as log lines, rate-limited so a
	// burst of fires cannot flood the output.
	sup.Go0("alerts", func(ctx context.Context) {
		alertSink(ctx, sched, cfg.Scheduler.NotifyRatePerSec, log.With(logx.String("svc", "alerts")))
	})

	// Config hot reload adjusts logging and pprof at runtime.
	if mgr != nil {
		sup.GoRestart("config.watch", mgr.Watch)
		sup.Go0("config.apply", func(ctx context.Context) {
			updates, unsub := mgr.Subscribe()
			defer unsub()
			for {
				select {
				case <-ctx.Done():
					return
				case next, ok := <-updates:
					if !ok {
						return
					}
					logSvc.Apply(logx.Config{
						Level:   next.Logging.Level,
						Console: next.ConsoleLogging(),
						File:    logx.FileConfig{Enabled: next.Logging.File.Enabled, Path: next.Logging.File.Path},
					})
					prof.Reconfigure(ctx, pprof.Config{Enabled: next.Pprof.Enabled, Addr: next.Pprof.Addr})
				}
			}
		})
	}

	addr := cfg.HTTP.Addr
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: newRouter(cfg.OwnerID, sched, perms, regions, log.With(logx.String("svc", "http"))),
	}
	errCh := make(chan error, 1)
	sup.Go("http.serve", func(context.Context) error {
		log.Info("http listening", logx.String("addr", addr))
		err := srv.ListenAndServe()
		errCh <- err
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	return sup.Stop(shutCtx)
}

func alertSink(ctx context.Context, sched *scheduler.Service, ratePerSec int, log logx.Logger) {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)

	fired, unsub := sched.SubscribeFired(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fired:
			if !ok {
				return
			}
			if !limiter.Allow() {
				continue
			}
			title := ""
			if r, err := sched.Get(ctx, ev.ReminderID); err == nil && r != nil {
				title = r.Title
			}
			log.Info("reminder fired",
				logx.String("id", ev.ReminderID),
				logx.String("title", title),
				logx.String("source", string(ev.Source)),
				logx.Time("at", ev.FiredAt))
		}
	}
}

func parsePermission(s string) platform.PermissionState {
	switch s {
	case "granted":
		return platform.PermissionGranted
	case "denied":
		return platform.PermissionDenied
	default:
		return platform.PermissionNotDetermined
	}
}
