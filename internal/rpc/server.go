package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront/internal/catalog"
	"storefront/pkg/netutil"
)

// CatalogService implements CatalogServer on top of the catalog workflows.
type CatalogService struct {
	svc *catalog.Service
}

func NewCatalogService(svc *catalog.Service) *CatalogService {
	return &CatalogService{svc: svc}
}

func (s *CatalogService) GetProduct(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	slug := in.GetFields()["slug"].GetStringValue()
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug is required")
	}

	product, err := s.svc.GetProduct(ctx, slug)
	if err != nil {
		return nil, statusError(err)
	}
	return toStruct(product)
}

func (s *CatalogService) RecordView(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	slug := fields["slug"].GetStringValue()
	visitor := fields["visitor"].GetStringValue()
	if slug == "" || visitor == "" {
		return nil, status.Error(codes.InvalidArgument, "slug and visitor are required")
	}

	outcome, err := s.svc.RecordView(ctx, slug, visitor)
	if err != nil {
		return nil, statusError(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"outcome": outcomeName(outcome),
		"message": outcome.Message(),
	})
}

func outcomeName(o catalog.ViewOutcome) string {
	switch o {
	case catalog.ViewFirst:
		return "first"
	case catalog.ViewNew:
		return "new"
	default:
		return "repeat"
	}
}

func statusError(err error) error {
	if errors.Is(err, catalog.ErrProductNotFound) {
		return status.Error(codes.NotFound, "Product does not exist")
	}
	logrus.WithError(err).Error("Catalog RPC failed")
	return status.Error(codes.Internal, "internal error")
}

// toStruct converts v through its JSON form, so the document matches the
// HTTP API field for field.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return structpb.NewStruct(m)
}

func logRequests(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	entry := logrus.WithFields(logrus.Fields{
		"method":  info.FullMethod,
		"code":    status.Code(err).String(),
		"latency": time.Since(start).String(),
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("RPC handled")
	return resp, err
}

// NewServer builds a gRPC server with the catalog and health services.
func NewServer(svc *catalog.Service) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(logRequests))
	RegisterCatalogServer(s, NewCatalogService(svc))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	return s
}

// Serve listens on the first free port from basePort upwards and blocks
// until s stops.
func Serve(s *grpc.Server, basePort int) error {
	port := netutil.FindAvailablePort(basePort, "Catalog gRPC")
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.Wrapf(err, "listen on port %d", port)
	}

	logrus.WithField("port", port).Info("Starting Catalog gRPC server")
	return s.Serve(lis)
}
