// Package pprof runs an optional, loopback-only profiling HTTP server for
// the reminder daemon. It is disabled unless configured.
package pprof

import (
	"context"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	"github.com/StephTapera/AMENAPP-sub020/internal/runtime/supervisor"
	"github.com/StephTapera/AMENAPP-sub020/pkg/logx"
)

type Config struct {
	Enabled bool
	// Addr defaults to 127.0.0.1:6060. Non-loopback binds are refused;
	// the profiling surface carries no authentication.
	Addr string
}

type Service struct {
	log logx.Logger

	mu  sync.Mutex
	cfg Config
	srv *http.Server
	sup *supervisor.Supervisor
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log}
}

// Reconfigure applies cfg, starting or stopping the server as needed. Safe
// to call from a config hot-reload.
func (s *Service) Reconfigure(ctx context.Context, cfg Config) {
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	running := s.srv != nil
	s.mu.Unlock()

	switch {
	case !cfg.Enabled && running:
		s.Stop(ctx)
	case cfg.Enabled && !running:
		s.Start(ctx)
	case cfg.Enabled && running && addrOf(prev) != addrOf(cfg):
		s.Stop(ctx)
		s.Start(ctx)
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil || !s.cfg.Enabled {
		return
	}

	addr := addrOf(s.cfg)
	if !loopback(addr) {
		s.log.Error("refusing non-loopback pprof bind", logx.String("addr", addr))
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", hpprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.srv = srv
	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))
	s.sup.Go("pprof.serve", func(context.Context) error {
		s.log.Info("pprof listening", logx.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	srv, sup := s.srv, s.sup
	s.srv, s.sup = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return
	}

	_ = srv.Shutdown(ctx)
	if sup != nil {
		_ = sup.Stop(ctx)
	}
	s.log.Info("pprof stopped")
}

func addrOf(cfg Config) string {
	if strings.TrimSpace(cfg.Addr) == "" {
		return "127.0.0.1:6060"
	}
	return cfg.Addr
}

func loopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
