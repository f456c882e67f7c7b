package grpc

import (
	"context"

	"github.com/olyamironova/game-exchange/internal/api/dto"
	"google.golang.org/grpc"
)

// Client calls exchange.v1.Exchange over an existing connection. Server
// errors come back as *domain.Error where the server attached one.
type Client struct {
	conn *grpc.ClientConn
}

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, fullMethod(method), req, out, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req *dto.PlaceOrderRequest) (*dto.ExecutionResponse, error) {
	return invoke[dto.ExecutionResponse](ctx, c, "PlaceOrder", req)
}

func (c *Client) CancelOrder(ctx context.Context, req *dto.CancelOrderRequest) (*dto.CancelOrderResponse, error) {
	return invoke[dto.CancelOrderResponse](ctx, c, "CancelOrder", req)
}

func (c *Client) TakeAsks(ctx context.Context, req *dto.TakeRequest) (*dto.TradesResponse, error) {
	return invoke[dto.TradesResponse](ctx, c, "TakeAsks", req)
}

func (c *Client) TakeBids(ctx context.Context, req *dto.TakeRequest) (*dto.TradesResponse, error) {
	return invoke[dto.TradesResponse](ctx, c, "TakeBids", req)
}

func (c *Client) GetOrderBook(ctx context.Context, req *dto.GetOrderBookRequest) (*dto.OrderBook, error) {
	return invoke[dto.OrderBook](ctx, c, "GetOrderBook", req)
}

func (c *Client) ListActiveOrders(ctx context.Context, req *dto.ListOrdersRequest) (*dto.OrdersResponse, error) {
	return invoke[dto.OrdersResponse](ctx, c, "ListActiveOrders", req)
}

func (c *Client) GetAccount(ctx context.Context, req *dto.GetAccountRequest) (*dto.Account, error) {
	return invoke[dto.Account](ctx, c, "GetAccount", req)
}

// EventReceiver reads a StreamEvents subscription.
type EventReceiver struct {
	stream grpc.ClientStream
}

func (r *EventReceiver) Recv() (*dto.Event, error) {
	ev := new(dto.Event)
	if err := r.stream.RecvMsg(ev); err != nil {
		return nil, FromStatus(err)
	}
	return ev, nil
}

// StreamEvents subscribes and returns once the server confirms the
// subscription. Cancel ctx to end it.
func (c *Client) StreamEvents(ctx context.Context, req *dto.StreamEventsRequest) (*EventReceiver, error) {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], fullMethod("StreamEvents"), grpc.ForceCodec(jsonCodec{}))
	if err != nil {
		return nil, FromStatus(err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, FromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, FromStatus(err)
	}
	if _, err := stream.Header(); err != nil {
		return nil, FromStatus(err)
	}
	return &EventReceiver{stream: stream}, nil
}
