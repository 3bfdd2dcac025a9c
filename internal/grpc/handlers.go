package grpc

import (
	"context"
	"errors"

	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ LedgerServer = (*Server)(nil)

// Submit implements LedgerServer.
func (s *Server) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	if len(req.TxBlob) == 0 {
		return nil, status.Error(codes.InvalidArgument, "tx_blob is required")
	}
	res, err := s.ledgerService.Submit(ctx, req.TxBlob)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SubmitResponse{Result: res}, nil
}

// GetOffer implements LedgerServer.
func (s *Server) GetOffer(ctx context.Context, req *GetOfferRequest) (*GetOfferResponse, error) {
	info, err := s.ledgerService.Offer(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetOfferResponse{Offer: info}, nil
}

// ListOffers implements LedgerServer.
func (s *Server) ListOffers(ctx context.Context, req *ListOffersRequest) (*ListOffersResponse, error) {
	offers, err := s.ledgerService.Offers(ctx, service.OfferFilter{
		Maker:            req.Maker,
		OfferedAssetKind: req.Asset,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListOffersResponse{Offers: offers, Sequence: s.ledgerService.Sequence()}, nil
}

// GetSequence implements LedgerServer.
func (s *Server) GetSequence(ctx context.Context, req *GetSequenceRequest) (*GetSequenceResponse, error) {
	return &GetSequenceResponse{Sequence: s.ledgerService.Sequence()}, nil
}

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrEntryNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransaction):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNotStarted):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
