package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/gate"
	"github.com/rl1809/bizdesk/internal/core/service"
	"github.com/rl1809/bizdesk/internal/obs"
)

type tierReader interface {
	Tier() domain.Tier
}

type GRPCHandler struct {
	saleService *service.SaleService
	gate        *gate.Gate
	tiers       tierReader
}

var _ SalesServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(saleService *service.SaleService, g *gate.Gate, tiers tierReader) *GRPCHandler {
	return &GRPCHandler{saleService: saleService, gate: g, tiers: tiers}
}

func (h *GRPCHandler) RecordSale(ctx context.Context, req *RecordSaleRequest) (*RecordSaleResponse, error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	sale, err := h.saleService.RecordSale(ctx, requestID, req.ItemID, int(req.Quantity))
	if err != nil {
		message := "internal error"
		switch {
		case errors.Is(err, service.ErrDuplicateRequest):
			message = "duplicate request"
		case errors.Is(err, service.ErrInsufficientStock):
			message = "insufficient stock"
		case errors.Is(err, service.ErrInvalidQuantity):
			message = "invalid quantity"
		case errors.Is(err, service.ErrItemNotFound):
			message = "item not found"
		default:
			obs.Logger.Error("grpc_record_sale_failed", "request_id", requestID, "error", err)
		}
		return &RecordSaleResponse{
			Success: false,
			Message: message,
		}, nil
	}

	return &RecordSaleResponse{
		Success: true,
		Message: "sale recorded",
		Sale:    &sale,
	}, nil
}

func (h *GRPCHandler) CheckFeature(ctx context.Context, req *CheckFeatureRequest) (*CheckFeatureResponse, error) {
	err := h.gate.Check(gate.Feature(req.Feature))
	_, paywall := gate.AsPaywall(err)
	return &CheckFeatureResponse{
		Allowed: err == nil,
		Paywall: paywall,
		Feature: req.Feature,
	}, nil
}

func (h *GRPCHandler) GetTier(ctx context.Context, req *GetTierRequest) (*GetTierResponse, error) {
	return &GetTierResponse{Tier: h.tiers.Tier()}, nil
}

// UnaryAuthInterceptor requires "authorization: Bearer <token>" metadata on
// every call.
func UnaryAuthInterceptor(tokens TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization metadata required")
		}
		token := strings.TrimPrefix(values[0], "Bearer ")
		if _, err := tokens.Verify(token); err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(ctx, req)
	}
}
