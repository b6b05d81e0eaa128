package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/core/service"
)

const (
	OrderServiceName = "shopadmin.v1.OrderService"
	JSONCodecName    = "json"
)

// jsonCodec carries plain Go structs over gRPC. Clients select it with
// grpc.CallContentSubtype(JSONCodecName).
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type GetOrderRequest struct {
	ID string `json:"id"`
}

type ListOrdersRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type OrderServiceServer interface {
	Quote(context.Context, *domain.QuoteRequest) (*domain.Quote, error)
	GetOrder(context.Context, *GetOrderRequest) (*domain.Order, error)
	ListOrders(context.Context, *ListOrdersRequest) (*domain.OrderPage, error)
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&orderServiceDesc, srv)
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Quote", Handler: unaryHandler("Quote", OrderServiceServer.Quote)},
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", OrderServiceServer.GetOrder)},
		{MethodName: "ListOrders", Handler: unaryHandler("ListOrders", OrderServiceServer.ListOrders)},
	},
	Metadata: "shopadmin/v1/order_service",
}

func unaryHandler[Req, Resp any](method string, call func(OrderServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + OrderServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCHandler exposes read-only order operations over gRPC.
type GRPCHandler struct {
	orderService *service.OrderService
	logger       *slog.Logger
}

func NewGRPCHandler(orderService *service.OrderService, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{orderService: orderService, logger: logger}
}

func (h *GRPCHandler) Quote(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
	quote, err := h.orderService.Quote(ctx, *req)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return quote, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*domain.Order, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	order, err := h.orderService.Get(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return order, nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, req *ListOrdersRequest) (*domain.OrderPage, error) {
	page, err := h.orderService.List(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return page, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrAuth):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrUpload):
		return status.Error(codes.Unavailable, err.Error())
	default:
		h.logger.Error("grpc call failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

// RecoveryInterceptor turns a handler panic into codes.Internal so one call
// cannot take the server down.
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc handler panicked", "method", info.FullMethod, "panic", r)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// Authenticator resolves a session token. Satisfied by *service.IdentityService.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, string, error)
}

// AuthInterceptor requires a bearer token in the "authorization" metadata on
// every call except the health service.
func AuthInterceptor(auth Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		var token string
		if values := md.Get("authorization"); len(values) > 0 {
			token = bearerToken(values[0])
		}
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		if _, _, err := auth.Authenticate(ctx, token); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(ctx, req)
	}
}

// OrderServiceClient calls shopadmin.v1.OrderService with the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) Quote(ctx context.Context, in *domain.QuoteRequest, opts ...grpc.CallOption) (*domain.Quote, error) {
	out := new(domain.Quote)
	if err := c.invoke(ctx, "Quote", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*domain.Order, error) {
	out := new(domain.Order)
	if err := c.invoke(ctx, "GetOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*domain.OrderPage, error) {
	out := new(domain.OrderPage)
	if err := c.invoke(ctx, "ListOrders", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+OrderServiceName+"/"+method, in, out, opts...)
}
