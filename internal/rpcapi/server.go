package rpcapi

import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified advisory service name.
const ServiceName = "advisor.Advisor"

const adviseMethod = "/" + ServiceName + "/Advise"

// #region service-desc
// AdvisorServer is the advisory RPC surface. Messages are Struct values so
// no generated code is needed.
type AdvisorServer interface {
	Advise(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func adviseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisorServer).Advise(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: adviseMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisorServer).Advise(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the advisory service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdvisorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Advise", Handler: adviseHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "advisor.proto",
}

// #endregion service-desc

// #region server
// Server answers advisory RPCs from an advisor.Service.
type Server struct {
	svc    *advisor.Service
	health *health.Server
}

// NewServer builds a grpc.Server exposing the advisory and health services.
// Health starts NOT_SERVING; call SyncHealth after loading a table.
func NewServer(svc *advisor.Service, logger zerolog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *Server) {
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	gs := grpc.NewServer(opts...)
	s := &Server{svc: svc, health: health.NewServer()}
	gs.RegisterService(&ServiceDesc, s)
	healthpb.RegisterHealthServer(gs, s.health)
	s.SyncHealth()
	return gs, s
}

// SyncHealth publishes SERVING when a table is loaded, NOT_SERVING otherwise.
func (s *Server) SyncHealth() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.svc.Ready() {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Shutdown marks every service NOT_SERVING.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

// Advise implements AdvisorServer.
func (s *Server) Advise(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := StructToRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	adv, err := s.svc.Advise(req)
	if errors.Is(err, advisor.ErrNotReady) {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := AdviceToStruct(adv)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// #endregion server

func loggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug().
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("elapsed", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}
