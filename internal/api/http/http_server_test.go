package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/game-exchange/internal/adapter/in_memory"
	"github.com/olyamironova/game-exchange/internal/api/dto"
	"github.com/olyamironova/game-exchange/internal/core"
	"github.com/olyamironova/game-exchange/internal/middleware"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eng := core.NewEngine(in_memory.NewMemoryRepo(), in_memory.NewCache())
	return NewHTTPServer(eng, middleware.NewRateLimiter(0), "GEM", nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path, owner string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

func TestPlaceMatchAndQuery(t *testing.T) {
	h := newTestServer(t)

	if code := do(t, h, http.MethodPost, "/accounts/seller/fund", "", dto.FundRequest{Asset: "GEM", Quantity: decimal.NewFromInt(10)}, nil); code != http.StatusOK {
		t.Fatalf("fund seller = %d", code)
	}
	if code := do(t, h, http.MethodPost, "/accounts/buyer/fund", "", dto.FundRequest{Cash: decimal.NewFromInt(1000)}, nil); code != http.StatusOK {
		t.Fatalf("fund buyer = %d", code)
	}

	var sell dto.ExecutionResponse
	code := do(t, h, http.MethodPost, "/orders", "seller", dto.PlaceOrderRequest{Asset: "GEM", Side: "sell", Quantity: decimal.NewFromInt(10), Price: 50}, &sell)
	if code != http.StatusCreated || sell.Order.Status != "active" || sell.Order.Owner != "seller" {
		t.Fatalf("place sell = %d %+v", code, sell)
	}

	var book dto.OrderBook
	if code := do(t, h, http.MethodGet, "/orderbook", "", nil, &book); code != http.StatusOK || len(book.Asks) != 1 || book.Asks[0].Price != 50 {
		t.Fatalf("orderbook = %d %+v", code, book)
	}

	var buy dto.ExecutionResponse
	code = do(t, h, http.MethodPost, "/orders", "buyer", dto.PlaceOrderRequest{Asset: "GEM", Side: "BUY", Quantity: decimal.NewFromInt(10), Price: 50}, &buy)
	if code != http.StatusCreated || len(buy.Trades) != 1 || buy.Order.Status != "completed" {
		t.Fatalf("place buy = %d %+v", code, buy)
	}

	var trades dto.TradesResponse
	if code := do(t, h, http.MethodGet, "/orders/"+sell.Order.ID+"/trades", "", nil, &trades); code != http.StatusOK || len(trades.Trades) != 1 {
		t.Fatalf("trades = %d %+v", code, trades)
	}
	var acct dto.Account
	if code := do(t, h, http.MethodGet, "/accounts/seller", "", nil, &acct); code != http.StatusOK || !acct.Cash.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("seller account = %d %+v", code, acct)
	}
	var orders dto.OrdersResponse
	if code := do(t, h, http.MethodGet, "/orders?asset=GEM", "", nil, &orders); code != http.StatusOK || len(orders.Orders) != 0 {
		t.Fatalf("active orders = %d %+v", code, orders)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/accounts/seller/fund", "", dto.FundRequest{Asset: "GEM", Quantity: decimal.NewFromInt(5)}, nil)
	do(t, h, http.MethodPost, "/accounts/taker/fund", "", dto.FundRequest{Cash: decimal.NewFromInt(1000)}, nil)
	do(t, h, http.MethodPost, "/orders", "seller", dto.PlaceOrderRequest{Asset: "GEM", Side: "sell", Quantity: decimal.NewFromInt(5), Price: 50}, nil)

	var e dto.ErrorResponse
	code := do(t, h, http.MethodPost, "/take/asks", "taker", dto.TakeRequest{Asset: "GEM", Price: 50, Quantity: decimal.NewFromInt(10)}, &e)
	if code != http.StatusUnprocessableEntity || e.Kind != "INSUFFICIENT_LIQUIDITY" {
		t.Fatalf("take asks = %d %+v", code, e)
	}
	if e.Required == nil || !e.Required.Equal(decimal.NewFromInt(10)) || !e.Available.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("amounts = %v / %v", e.Required, e.Available)
	}

	e = dto.ErrorResponse{}
	code = do(t, h, http.MethodPost, "/orders", "seller", dto.PlaceOrderRequest{Asset: "GEM", Side: "sell", Quantity: decimal.NewFromInt(1), Price: 50}, &e)
	if code != http.StatusUnprocessableEntity || e.Kind != "INSUFFICIENT_FUNDS" {
		t.Fatalf("oversell = %d %+v", code, e)
	}

	e = dto.ErrorResponse{}
	code = do(t, h, http.MethodPost, "/orders", "seller", dto.PlaceOrderRequest{Asset: "GEM", Side: "hold", Quantity: decimal.NewFromInt(1), Price: 50}, &e)
	if code != http.StatusBadRequest || e.Kind != "VALIDATION" {
		t.Fatalf("bad side = %d %+v", code, e)
	}

	e = dto.ErrorResponse{}
	code = do(t, h, http.MethodPost, "/orders/cancel", "taker", dto.CancelOrderRequest{OrderID: "missing"}, &e)
	if code != http.StatusNotFound || e.Kind != "NOT_FOUND" {
		t.Fatalf("cancel = %d %+v", code, e)
	}

	if code := do(t, h, http.MethodPost, "/orders", "", dto.PlaceOrderRequest{Asset: "GEM", Side: "sell"}, nil); code != http.StatusBadRequest {
		t.Fatalf("missing owner header = %d", code)
	}
	if code := do(t, h, http.MethodGet, "/orders/nope", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown order = %d", code)
	}
}
