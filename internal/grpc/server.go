package grpc

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/LeJamon/offerd/internal/core/ledger/service"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// LedgerServiceInterface defines the ledger operations the gRPC handlers
// need. It is implemented by *service.Service.
type LedgerServiceInterface interface {
	Submit(ctx context.Context, raw []byte) (*service.SubmitResult, error)
	Offer(ctx context.Context, id uint64) (*service.OfferInfo, error)
	Offers(ctx context.Context, filter service.OfferFilter) ([]*service.OfferInfo, error)
	Sequence() uint64
}

// Server represents the gRPC server for ledger operations.
type Server struct {
	mu sync.RWMutex

	// grpcServer is the underlying gRPC server
	grpcServer *grpc.Server

	// ledgerService provides access to ledger operations
	ledgerService LedgerServiceInterface

	// config holds the server configuration
	config *ServerConfig

	// listener is the network listener
	listener net.Listener

	// running indicates if the server is currently running
	running bool
}

// NewServer creates a new gRPC server with the given configuration.
func NewServer(cfg *ServerConfig, ledgerSvc LedgerServiceInterface) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ledgerSvc == nil {
		return nil, errors.New("ledger service is required")
	}

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor()),
	}
	grpcServer := grpc.NewServer(opts...)

	server := &Server{
		grpcServer:    grpcServer,
		ledgerService: ledgerSvc,
		config:        cfg,
	}
	grpcServer.RegisterService(&LedgerServiceDesc, server)
	return server, nil
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.listener = lis
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", lis.Addr().String()).Info("grpc server listening")
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case err := <-errCh:
		s.setStopped()
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Stop()
		<-errCh
		log.Info("grpc server stopped")
		return nil
	}
}

// ListenAndServe listens on the configured address and serves until ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) setStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Stop gracefully stops the gRPC server.
// It stops accepting new connections and waits for existing calls to complete.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.grpcServer.GracefulStop()
	s.running = false
}

// IsRunning returns true if the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Address returns the address the server is listening on.
// Returns empty string if the server is not running.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// UnaryServerInterceptor logs every call with its duration and outcome.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		entry := log.WithFields(log.Fields{
			"method":   info.FullMethod,
			"duration": time.Since(start),
		})
		if err != nil {
			entry.WithError(err).Debug("grpc call failed")
		} else {
			entry.Debug("grpc call")
		}
		return resp, err
	}
}
