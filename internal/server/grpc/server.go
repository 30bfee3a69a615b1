// Package grpc exposes the RewardService over gRPC.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/classmint/internal/logging"
	"github.com/dmitrijs2005/classmint/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address   string
	rewards   *services.RewardService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, rs *services.RewardService, jwtSecret []byte) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		rewards:   rs,
		jwtSecret: jwtSecret,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv.RegisterService(&serviceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
		if err := <-serveErr; !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	case err := <-serveErr:
		return err
	}
}
