package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "receipts.v1.Recognizer"

// RecognizerServer is the server API for the receipts.v1.Recognizer service.
// Messages are protobuf well-known types so no generated code is needed.
type RecognizerServer interface {
	// ParseText parses OCR text into a receipt record.
	ParseText(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// GetReceipt loads a stored receipt by ID.
	GetReceipt(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// IngestFile recognizes a receipt file readable by the server.
	IngestFile(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// ExportReceipts renders stored receipts as XLSX; the request carries
	// optional "from_date" and "to_date" (YYYY-MM-DD).
	ExportReceipts(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

func RegisterRecognizerServer(s grpc.ServiceRegistrar, srv RecognizerServer) {
	s.RegisterService(&RecognizerServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(RecognizerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RecognizerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RecognizerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RecognizerServiceDesc is the grpc.ServiceDesc for the Recognizer service.
var RecognizerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecognizerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ParseText", RecognizerServer.ParseText),
		unaryHandler("GetReceipt", RecognizerServer.GetReceipt),
		unaryHandler("IngestFile", RecognizerServer.IngestFile),
		unaryHandler("ExportReceipts", RecognizerServer.ExportReceipts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "receipts/v1/recognizer.proto",
}

// RecognizerClient is the client API for the Recognizer service.
type RecognizerClient struct {
	cc grpc.ClientConnInterface
}

func NewRecognizerClient(cc grpc.ClientConnInterface) *RecognizerClient {
	return &RecognizerClient{cc: cc}
}

func (c *RecognizerClient) ParseText(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ParseText", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecognizerClient) GetReceipt(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetReceipt", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecognizerClient) IngestFile(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/IngestFile", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecognizerClient) ExportReceipts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ExportReceipts", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
