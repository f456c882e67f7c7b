package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/olyamironova/game-exchange/internal/adapter/in_memory"
	"github.com/olyamironova/game-exchange/internal/api/dto"
	"github.com/olyamironova/game-exchange/internal/core"
	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCServer struct {
	eng    *core.Engine
	broker *in_memory.Broker
	log    *zap.Logger
	srv    *grpc.Server
	health *health.Server
	quit   chan struct{}
}

var _ ExchangeService = (*GRPCServer)(nil)

// NewGRPCServer registers the exchange and health services. broker feeds
// StreamEvents and may be nil, in which case streaming is unavailable.
func NewGRPCServer(eng *core.Engine, broker *in_memory.Broker, log *zap.Logger, opts ...grpc.ServerOption) *GRPCServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &GRPCServer{eng: eng, broker: broker, log: log, health: health.NewServer(), quit: make(chan struct{})}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.logUnary)}, opts...)
	s.srv = grpc.NewServer(opts...)
	s.srv.RegisterService(&serviceDesc, s)
	grpc_health_v1.RegisterHealthServer(s.srv, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return s
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
		errc <- s.srv.Serve(lis)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		// Open event streams would otherwise hold GracefulStop forever.
		close(s.quit)
		s.srv.GracefulStop()
		if err := <-errc; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	}
}

func (s *GRPCServer) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.String("code", code.String()),
		zap.Duration("latency", time.Since(start)),
	}
	if code == codes.Internal {
		s.log.Error("grpc request failed", append(fields, zap.Error(err))...)
	} else {
		s.log.Info("grpc request", fields...)
	}
	return resp, err
}

func (s *GRPCServer) PlaceOrder(ctx context.Context, req *dto.PlaceOrderRequest) (*dto.ExecutionResponse, error) {
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		return nil, toStatus(err)
	}
	exec, err := s.eng.PlaceOrder(ctx, core.PlaceOrderRequest{
		Owner:    req.Owner,
		Asset:    req.Asset,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := dto.FromExecution(exec.Order, exec.Trades)
	return &resp, nil
}

func (s *GRPCServer) CancelOrder(ctx context.Context, req *dto.CancelOrderRequest) (*dto.CancelOrderResponse, error) {
	o, err := s.eng.CancelOrder(ctx, req.Owner, req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.CancelOrderResponse{Order: dto.FromOrder(o)}, nil
}

func (s *GRPCServer) TakeAsks(ctx context.Context, req *dto.TakeRequest) (*dto.TradesResponse, error) {
	return s.take(ctx, req, s.eng.TakeAsks)
}

func (s *GRPCServer) TakeBids(ctx context.Context, req *dto.TakeRequest) (*dto.TradesResponse, error) {
	return s.take(ctx, req, s.eng.TakeBids)
}

func (s *GRPCServer) take(ctx context.Context, req *dto.TakeRequest, fn func(context.Context, core.TakeRequest) ([]*domain.Trade, error)) (*dto.TradesResponse, error) {
	trades, err := fn(ctx, core.TakeRequest{
		Taker:    req.Taker,
		Asset:    req.Asset,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.TradesResponse{Trades: dto.FromTrades(trades)}, nil
}

func (s *GRPCServer) GetOrderBook(ctx context.Context, req *dto.GetOrderBookRequest) (*dto.OrderBook, error) {
	ob, err := s.eng.GetOrderBook(ctx, req.Asset)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := dto.FromSnapshot(ob)
	return &resp, nil
}

func (s *GRPCServer) ListActiveOrders(ctx context.Context, req *dto.ListOrdersRequest) (*dto.OrdersResponse, error) {
	filter := port.OrderFilter{Owner: req.Owner, Asset: req.Asset}
	if req.Side != "" {
		side, err := domain.ParseSide(req.Side)
		if err != nil {
			return nil, toStatus(err)
		}
		filter.Side = side
	}
	orders, err := s.eng.ListActiveOrders(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.OrdersResponse{Orders: dto.FromOrders(orders)}, nil
}

func (s *GRPCServer) GetAccount(ctx context.Context, req *dto.GetAccountRequest) (*dto.Account, error) {
	acct, err := s.eng.GetAccount(ctx, req.Owner)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := dto.FromAccount(acct)
	return &resp, nil
}

// StreamEvents relays committed events for one asset, or all assets when
// the request leaves it empty. Headers are sent once the subscription is
// live, so a client that has read them will not miss later events.
func (s *GRPCServer) StreamEvents(req *dto.StreamEventsRequest, stream EventStream) error {
	if s.broker == nil {
		return status.Error(codes.Unavailable, "event streaming is not configured")
	}
	events, cancel := s.broker.Subscribe(req.Asset)
	defer cancel()
	if hs, ok := stream.(interface{ SendHeader(metadata.MD) error }); ok {
		if err := hs.SendHeader(metadata.Pairs("subscribed", req.Asset)); err != nil {
			return err
		}
	}
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.quit:
			return status.Error(codes.Unavailable, "server is shutting down")
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			out := dto.FromEvent(ev)
			if err := stream.Send(&out); err != nil {
				return err
			}
		}
	}
}
