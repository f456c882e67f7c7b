package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/game-exchange/internal/api/dto"
	"github.com/olyamironova/game-exchange/internal/core"
	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/middleware"
	"github.com/olyamironova/game-exchange/internal/port"
	"go.uber.org/zap"
)

type HTTPServer struct {
	eng          *core.Engine
	limiter      *middleware.RateLimiter
	defaultAsset string
	log          *zap.Logger
}

func NewHTTPServer(eng *core.Engine, limiter *middleware.RateLimiter, defaultAsset string, log *zap.Logger) *HTTPServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPServer{eng: eng, limiter: limiter, defaultAsset: defaultAsset, log: log}
}

// Handler builds the gin router.
func (s *HTTPServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(s.log))

	// mutations on behalf of the caller named by X-Owner-ID
	mut := r.Group("/")
	mut.Use(s.limiter.Middleware())
	mut.POST("/orders", s.placeOrder)
	mut.POST("/orders/cancel", s.cancelOrder)
	mut.POST("/take/asks", s.takeAsks)
	mut.POST("/take/bids", s.takeBids)

	r.GET("/orders", s.listOrders)
	r.GET("/orders/:id", s.getOrder)
	r.GET("/orders/:id/trades", s.getTrades)
	r.GET("/orderbook", s.getOrderbook)
	r.GET("/accounts/:owner", s.getAccount)
	r.POST("/accounts/:owner/fund", s.fund)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *HTTPServer) placeOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		s.fail(c, err)
		return
	}
	exec, err := s.eng.PlaceOrder(c.Request.Context(), core.PlaceOrderRequest{
		Owner:    c.GetHeader(middleware.OwnerHeader),
		Asset:    req.Asset,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromExecution(exec.Order, exec.Trades))
}

func (s *HTTPServer) cancelOrder(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	o, err := s.eng.CancelOrder(c.Request.Context(), c.GetHeader(middleware.OwnerHeader), req.OrderID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CancelOrderResponse{Order: dto.FromOrder(o)})
}

func (s *HTTPServer) takeAsks(c *gin.Context) { s.take(c, s.eng.TakeAsks) }
func (s *HTTPServer) takeBids(c *gin.Context) { s.take(c, s.eng.TakeBids) }

func (s *HTTPServer) take(c *gin.Context, fn func(context.Context, core.TakeRequest) ([]*domain.Trade, error)) {
	var req dto.TakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trades, err := fn(c.Request.Context(), core.TakeRequest{
		Taker:    c.GetHeader(middleware.OwnerHeader),
		Asset:    req.Asset,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TradesResponse{Trades: dto.FromTrades(trades)})
}

func (s *HTTPServer) listOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	filter := port.OrderFilter{Owner: req.Owner, Asset: req.Asset}
	if req.Side != "" {
		side, err := domain.ParseSide(req.Side)
		if err != nil {
			s.fail(c, err)
			return
		}
		filter.Side = side
	}
	orders, err := s.eng.ListActiveOrders(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrdersResponse{Orders: dto.FromOrders(orders)})
}

func (s *HTTPServer) getOrder(c *gin.Context) {
	o, err := s.eng.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.GetOrderResponse{Order: dto.FromOrder(o)})
}

func (s *HTTPServer) getTrades(c *gin.Context) {
	trades, err := s.eng.GetTradesForOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TradesResponse{Trades: dto.FromTrades(trades)})
}

func (s *HTTPServer) getOrderbook(c *gin.Context) {
	asset := c.DefaultQuery("asset", s.defaultAsset)
	ob, err := s.eng.GetOrderBook(c.Request.Context(), asset)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSnapshot(ob))
}

func (s *HTTPServer) getAccount(c *gin.Context) {
	acct, err := s.eng.GetAccount(c.Request.Context(), c.Param("owner"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromAccount(acct))
}

func (s *HTTPServer) fund(c *gin.Context) {
	var req dto.FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	acct, err := s.eng.Fund(c.Request.Context(), core.FundRequest{
		Owner:    c.Param("owner"),
		Cash:     req.Cash,
		Asset:    req.Asset,
		Quantity: req.Quantity,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromAccount(acct))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: string(domain.KindValidation)})
}

// fail maps err to a status code once, at the edge.
func (s *HTTPServer) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, dto.FromError(err))
}

func StatusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInsufficientFunds, domain.KindInsufficientLiquidity:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
