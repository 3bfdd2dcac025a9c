package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// HandlerConfig selects the endpoints served next to JSON-RPC.
type HandlerConfig struct {
	Options

	// WebSocket enables /ws
	WebSocket bool

	// Gatherer serves /metrics when not nil
	Gatherer prometheus.Gatherer
}

// NewHandler builds the HTTP surface: JSON-RPC on /, the transaction
// stream on /ws, Prometheus metrics on /metrics and a liveness probe on
// /health. The returned close function detaches the WebSocket server from
// the service.
func NewHandler(svc LedgerService, cfg HandlerConfig) (http.Handler, func()) {
	rpcServer := NewServer(svc, cfg.Options)

	mux := http.NewServeMux()
	mux.Handle("/", rpcServer)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":               "ok",
			"ledger_current_index": svc.Sequence(),
		})
	})
	if cfg.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	closeFn := func() {}
	if cfg.WebSocket {
		ws := NewWebSocketServer(rpcServer.Registry(), cfg.Timeout)
		remove := svc.Events().AddHooks(ws.Hooks())
		mux.Handle("/ws", ws)
		closeFn = func() {
			remove()
			ws.Close()
		}
	}
	return mux, closeFn
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, lis, handler, readTimeout, writeTimeout)
}

// Serve is ListenAndServe over an existing listener.
func Serve(ctx context.Context, lis net.Listener, handler http.Handler, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", lis.Addr().String()).Info("rpc server listening")
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info("rpc server stopped")
		return nil
	}
}

// callWithTimeout runs handler with ctx bounded by timeout when positive.
func callWithTimeout(handler MethodHandler, ctx *RpcContext, params json.RawMessage, timeout time.Duration) (interface{}, *RpcError) {
	if timeout <= 0 {
		return handler.Handle(ctx, params)
	}
	c, cancel := context.WithTimeout(ctx.Context, timeout)
	defer cancel()
	bounded := *ctx
	bounded.Context = c
	return handler.Handle(&bounded, params)
}
