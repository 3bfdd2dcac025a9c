package grpc

import (
	"context"

	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/LeJamon/offerd/internal/types"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "offerd.Ledger"

// SubmitRequest carries a serialized, signed transaction.
type SubmitRequest struct {
	TxBlob []byte `json:"tx_blob"`
}

// SubmitResponse is the engine outcome.
type SubmitResponse struct {
	Result *service.SubmitResult `json:"result"`
}

// GetOfferRequest selects an offer by id.
type GetOfferRequest struct {
	ID uint64 `json:"id,string"`
}

// GetOfferResponse is one open offer.
type GetOfferResponse struct {
	Offer *service.OfferInfo `json:"offer"`
}

// ListOffersRequest optionally filters by maker or offered asset.
type ListOffersRequest struct {
	Maker *types.Address `json:"maker,omitempty"`
	Asset *types.Address `json:"asset,omitempty"`
}

// ListOffersResponse lists open offers ordered by id.
type ListOffersResponse struct {
	Offers   []*service.OfferInfo `json:"offers"`
	Sequence uint64               `json:"sequence"`
}

// GetSequenceRequest has no fields.
type GetSequenceRequest struct{}

// GetSequenceResponse is the current ledger sequence.
type GetSequenceResponse struct {
	Sequence uint64 `json:"sequence"`
}

// LedgerServer is the server API of offerd.Ledger.
type LedgerServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	GetOffer(context.Context, *GetOfferRequest) (*GetOfferResponse, error)
	ListOffers(context.Context, *ListOffersRequest) (*ListOffersResponse, error)
	GetSequence(context.Context, *GetSequenceRequest) (*GetSequenceResponse, error)
}

// unaryHandler builds the method handler for one unary call.
func unaryHandler[Req any, Resp any](name string, call func(LedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerServiceDesc describes offerd.Ledger for grpc.Server.RegisterService.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Submit", LedgerServer.Submit),
		unaryHandler("GetOffer", LedgerServer.GetOffer),
		unaryHandler("ListOffers", LedgerServer.ListOffers),
		unaryHandler("GetSequence", LedgerServer.GetSequence),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "offerd/ledger",
}

// LedgerClient calls offerd.Ledger.
type LedgerClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerClient wraps a client connection.
func NewLedgerClient(cc grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{cc: cc}
}

func (c *LedgerClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

// Submit applies a serialized transaction.
func (c *LedgerClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	out := new(SubmitResponse)
	if err := c.invoke(ctx, "Submit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOffer returns one open offer.
func (c *LedgerClient) GetOffer(ctx context.Context, in *GetOfferRequest, opts ...grpc.CallOption) (*GetOfferResponse, error) {
	out := new(GetOfferResponse)
	if err := c.invoke(ctx, "GetOffer", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOffers lists open offers.
func (c *LedgerClient) ListOffers(ctx context.Context, in *ListOffersRequest, opts ...grpc.CallOption) (*ListOffersResponse, error) {
	out := new(ListOffersResponse)
	if err := c.invoke(ctx, "ListOffers", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSequence returns the current ledger sequence.
func (c *LedgerClient) GetSequence(ctx context.Context, in *GetSequenceRequest, opts ...grpc.CallOption) (*GetSequenceResponse, error) {
	out := new(GetSequenceResponse)
	if err := c.invoke(ctx, "GetSequence", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
