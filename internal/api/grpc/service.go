package grpc

import (
	"context"

	"github.com/olyamironova/game-exchange/internal/api/dto"
	"google.golang.org/grpc"
)

const serviceName = "exchange.v1.Exchange"

func fullMethod(name string) string { return "/" + serviceName + "/" + name }

// ExchangeService is the server side of exchange.v1.Exchange.
type ExchangeService interface {
	PlaceOrder(context.Context, *dto.PlaceOrderRequest) (*dto.ExecutionResponse, error)
	CancelOrder(context.Context, *dto.CancelOrderRequest) (*dto.CancelOrderResponse, error)
	TakeAsks(context.Context, *dto.TakeRequest) (*dto.TradesResponse, error)
	TakeBids(context.Context, *dto.TakeRequest) (*dto.TradesResponse, error)
	GetOrderBook(context.Context, *dto.GetOrderBookRequest) (*dto.OrderBook, error)
	ListActiveOrders(context.Context, *dto.ListOrdersRequest) (*dto.OrdersResponse, error)
	GetAccount(context.Context, *dto.GetAccountRequest) (*dto.Account, error)
	StreamEvents(*dto.StreamEventsRequest, EventStream) error
}

// EventStream is the server end of StreamEvents.
type EventStream interface {
	Context() context.Context
	Send(*dto.Event) error
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unary[Req, Resp any](method string, call func(ExchangeService, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		svc := srv.(ExchangeService)
		if interceptor == nil {
			return call(svc, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
			return call(svc, ctx, r.(*Req))
		})
	}
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(ev *dto.Event) error { return s.SendMsg(ev) }

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	req := new(dto.StreamEventsRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(ExchangeService).StreamEvents(req, &eventStream{stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ExchangeService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: unary("PlaceOrder", ExchangeService.PlaceOrder)},
		{MethodName: "CancelOrder", Handler: unary("CancelOrder", ExchangeService.CancelOrder)},
		{MethodName: "TakeAsks", Handler: unary("TakeAsks", ExchangeService.TakeAsks)},
		{MethodName: "TakeBids", Handler: unary("TakeBids", ExchangeService.TakeBids)},
		{MethodName: "GetOrderBook", Handler: unary("GetOrderBook", ExchangeService.GetOrderBook)},
		{MethodName: "ListActiveOrders", Handler: unary("ListActiveOrders", ExchangeService.ListActiveOrders)},
		{MethodName: "GetAccount", Handler: unary("GetAccount", ExchangeService.GetAccount)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamEvents", Handler: streamEventsHandler, ServerStreams: true},
	},
	Metadata: "exchange/v1/exchange",
}
