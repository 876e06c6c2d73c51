package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/rl1809/bizdesk/internal/core/domain"
)

// The sales service has no generated stubs. Messages are plain structs sent
// with a JSON codec, so clients must call with grpc.CallContentSubtype(CodecName).
const (
	CodecName          = "json"
	SalesServiceName   = "bizdesk.v1.SalesService"
	recordSaleMethod   = "/" + SalesServiceName + "/RecordSale"
	checkFeatureMethod = "/" + SalesServiceName + "/CheckFeature"
	getTierMethod      = "/" + SalesServiceName + "/GetTier"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type RecordSaleRequest struct {
	RequestID string `json:"request_id"`
	ItemID    string `json:"item_id"`
	Quantity  int32  `json:"quantity"`
}

type RecordSaleResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Sale    *domain.Sale `json:"sale,omitempty"`
}

type CheckFeatureRequest struct {
	Feature string `json:"feature"`
}

type CheckFeatureResponse struct {
	Allowed bool   `json:"allowed"`
	Paywall bool   `json:"paywall"`
	Feature string `json:"feature"`
}

type GetTierRequest struct{}

type GetTierResponse struct {
	Tier domain.Tier `json:"tier"`
}

type SalesServiceServer interface {
	RecordSale(context.Context, *RecordSaleRequest) (*RecordSaleResponse, error)
	CheckFeature(context.Context, *CheckFeatureRequest) (*CheckFeatureResponse, error)
	GetTier(context.Context, *GetTierRequest) (*GetTierResponse, error)
}

func RegisterSalesServiceServer(s grpc.ServiceRegistrar, srv SalesServiceServer) {
	s.RegisterService(&salesServiceDesc, srv)
}

var salesServiceDesc = grpc.ServiceDesc{
	ServiceName: SalesServiceName,
	HandlerType: (*SalesServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecordSale", Handler: recordSaleHandler},
		{MethodName: "CheckFeature", Handler: checkFeatureHandler},
		{MethodName: "GetTier", Handler: getTierHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bizdesk/v1/sales",
}

func recordSaleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RecordSaleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SalesServiceServer).RecordSale(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: recordSaleMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SalesServiceServer).RecordSale(ctx, req.(*RecordSaleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func checkFeatureHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckFeatureRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SalesServiceServer).CheckFeature(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkFeatureMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SalesServiceServer).CheckFeature(ctx, req.(*CheckFeatureRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getTierHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetTierRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SalesServiceServer).GetTier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getTierMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SalesServiceServer).GetTier(ctx, req.(*GetTierRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// SalesServiceClient is the client side of SalesServiceServer.
type SalesServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSalesServiceClient(cc grpc.ClientConnInterface) *SalesServiceClient {
	return &SalesServiceClient{cc: cc}
}

func (c *SalesServiceClient) RecordSale(ctx context.Context, in *RecordSaleRequest, opts ...grpc.CallOption) (*RecordSaleResponse, error) {
	out := new(RecordSaleResponse)
	if err := c.invoke(ctx, recordSaleMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SalesServiceClient) CheckFeature(ctx context.Context, in *CheckFeatureRequest, opts ...grpc.CallOption) (*CheckFeatureResponse, error) {
	out := new(CheckFeatureResponse)
	if err := c.invoke(ctx, checkFeatureMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SalesServiceClient) GetTier(ctx context.Context, in *GetTierRequest, opts ...grpc.CallOption) (*GetTierResponse, error) {
	out := new(GetTierResponse)
	if err := c.invoke(ctx, getTierMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SalesServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
