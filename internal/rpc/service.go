// Package rpc exposes catalog reads and view tracking to other services over
// gRPC. Messages are google.protobuf.Struct values, so no generated code is
// needed on either side.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "catalog.v1.CatalogService"

const (
	getProductMethod = "/" + ServiceName + "/GetProduct"
	recordViewMethod = "/" + ServiceName + "/RecordView"
)

// CatalogServer is the server side of catalog.v1.CatalogService.
//
// GetProduct takes {"slug": string} and returns the product document.
// RecordView takes {"slug": string, "visitor": string} and returns
// {"outcome": string, "message": string}.
type CatalogServer interface {
	GetProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordView(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProduct", Handler: getProductHandler},
		{MethodName: "RecordView", Handler: recordViewHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/catalog.proto",
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getProductHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).GetProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getProductMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServer).GetProduct(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func recordViewHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).RecordView(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: recordViewMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServer).RecordView(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls catalog.v1.CatalogService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetProduct(ctx context.Context, slug string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	in := &structpb.Struct{Fields: map[string]*structpb.Value{"slug": structpb.NewStringValue(slug)}}
	if err := c.cc.Invoke(ctx, getProductMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RecordView(ctx context.Context, slug, visitor string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"slug":    structpb.NewStringValue(slug),
		"visitor": structpb.NewStringValue(visitor),
	}}
	if err := c.cc.Invoke(ctx, recordViewMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
