package handlers

import (
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"orderbook-engine/src/engine"
	"orderbook-engine/src/models"
)

type OrderHandler struct {
	Book            *engine.OrderBook
	StartTime       time.Time
	OrdersReceived  int64
	OrdersRejected  int64
	OrdersCancelled int64
	TradesExecuted  int64

	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int
}

func NewOrderHandler(book *engine.OrderBook) *OrderHandler {
	maxLatencies := 10000
	if envMax := os.Getenv("METRICS_MAX_LATENCIES"); envMax != "" {
		if parsed, err := strconv.Atoi(envMax); err == nil && parsed > 0 {
			maxLatencies = parsed
		}
	}

	return &OrderHandler{
		Book:         book,
		StartTime:    time.Now(),
		latencies:    make([]time.Duration, 0, maxLatencies),
		maxLatencies: maxLatencies,
	}
}

func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	if err := validateSubmitOrderRequest(&req); err != nil {
		log.Warn().
			Err(err).
			Uint64("order_id", req.OrderID).
			Str("side", req.Side).
			Str("type", req.Type).
			Str("ip", c.IP()).
			Msg("Invalid order request")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	orderID := engine.OrderID(req.OrderID)

	// edge case: surface duplicate ids as a conflict instead of the
	// engine's silent rejection, so callers can tell them apart
	if _, exists := h.Book.Order(orderID); exists {
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{
			Error: "Order id already in use",
		})
	}

	side := engine.Side(req.Side)
	orderType := engine.OrderType(req.Type)

	var order *engine.Order
	if orderType == engine.TypeMarket {
		order = engine.NewMarketOrder(orderID, side, req.Quantity)
	} else {
		order = engine.NewOrder(orderID, side, orderType, req.Price, req.Quantity)
	}

	atomic.AddInt64(&h.OrdersReceived, 1)

	startTime := time.Now()
	trades := h.Book.Add(order)
	h.recordLatency(time.Since(startTime))

	_, resting := h.Book.Order(orderID)
	accepted := resting || len(trades) > 0

	atomic.AddInt64(&h.TradesExecuted, int64(len(trades)))
	if !accepted {
		atomic.AddInt64(&h.OrdersRejected, 1)
	}

	response := models.SubmitOrderResponse{
		OrderID:  req.OrderID,
		Accepted: accepted,
		Resting:  resting,
		Trades:   renderTrades(trades),
	}

	log.Info().
		Uint64("order_id", req.OrderID).
		Str("side", req.Side).
		Str("type", req.Type).
		Int64("price", req.Price).
		Int64("quantity", req.Quantity).
		Bool("accepted", accepted).
		Bool("resting", resting).
		Int("trades_count", len(trades)).
		Msg("Order processed")

	if !accepted {
		// A rejection is a defined outcome of the order-entry protocol,
		// not an HTTP error: unmatchable fill-and-kill, or a market order
		// with no opposing liquidity.
		response.Message = "Order rejected"
		return c.Status(fiber.StatusOK).JSON(response)
	}

	if resting && len(trades) == 0 {
		response.Message = "Order added to book"
		return c.Status(fiber.StatusCreated).JSON(response)
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order id",
		})
	}

	// Cancellation is idempotent: cancelling an unknown or already
	// cancelled id succeeds with no state change.
	h.Book.Cancel(orderID)
	atomic.AddInt64(&h.OrdersCancelled, 1)

	log.Info().
		Uint64("order_id", uint64(orderID)).
		Str("ip", c.IP()).
		Msg("Order cancelled")

	return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
		OrderID: uint64(orderID),
		Status:  "CANCELLED",
	})
}

func (h *OrderHandler) ModifyOrder(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order id",
		})
	}

	var req models.ModifyOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	if req.Side != string(engine.SideBuy) && req.Side != string(engine.SideSell) {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order: side must be BUY or SELL",
		})
	}
	if req.Quantity <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order: quantity must be positive",
		})
	}

	if _, exists := h.Book.Order(orderID); !exists {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	startTime := time.Now()
	trades := h.Book.Modify(orderID, engine.Side(req.Side), req.Price, req.Quantity)
	h.recordLatency(time.Since(startTime))

	_, resting := h.Book.Order(orderID)
	atomic.AddInt64(&h.TradesExecuted, int64(len(trades)))

	log.Info().
		Uint64("order_id", uint64(orderID)).
		Str("side", req.Side).
		Int64("price", req.Price).
		Int64("quantity", req.Quantity).
		Int("trades_count", len(trades)).
		Msg("Order modified")

	return c.Status(fiber.StatusOK).JSON(models.SubmitOrderResponse{
		OrderID:  uint64(orderID),
		Accepted: resting || len(trades) > 0,
		Resting:  resting,
		Trades:   renderTrades(trades),
	})
}

func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order id",
		})
	}

	order, exists := h.Book.Order(orderID)
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.OrderStatusResponse{
		OrderID:           uint64(order.ID),
		Side:              string(order.Side),
		Type:              string(order.Type),
		Price:             order.Price,
		InitialQuantity:   order.InitialQuantity,
		RemainingQuantity: order.RemainingQuantity,
	})
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	uptime := time.Since(h.StartTime).Seconds()

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:        "healthy",
		UptimeSeconds: int64(uptime),
		RestingOrders: h.Book.Size(),
	})
}

func (h *OrderHandler) Metrics(c *fiber.Ctx) error {
	p50, p99 := h.calculateLatencyPercentiles()

	return c.Status(fiber.StatusOK).JSON(models.MetricsResponse{
		OrdersReceived:         atomic.LoadInt64(&h.OrdersReceived),
		OrdersRejected:         atomic.LoadInt64(&h.OrdersRejected),
		OrdersCancelled:        atomic.LoadInt64(&h.OrdersCancelled),
		RestingOrders:          h.Book.Size(),
		TradesExecuted:         atomic.LoadInt64(&h.TradesExecuted),
		LatencyP50Ms:           p50,
		LatencyP99Ms:           p99,
		ThroughputOrdersPerSec: h.calculateThroughput(),
	})
}

func renderTrades(trades []engine.Trade) []models.TradeInfo {
	rendered := make([]models.TradeInfo, 0, len(trades))
	for _, trade := range trades {
		rendered = append(rendered, models.TradeInfo{
			TradeID:  uuid.New().String(),
			BidOrder: uint64(trade.Bid.OrderID),
			BidPrice: trade.Bid.Price,
			AskOrder: uint64(trade.Ask.OrderID),
			AskPrice: trade.Ask.Price,
			Quantity: trade.Bid.Quantity,
		})
	}
	return rendered
}

func parseOrderID(raw string) (engine.OrderID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	return engine.OrderID(id), err
}

func (h *OrderHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	h.latencies = append(h.latencies, latency)

	// edge case: maintain rolling window by removing oldest measurements
	if len(h.latencies) > h.maxLatencies {
		h.latencies = h.latencies[len(h.latencies)-h.maxLatencies:]
	}
}

func (h *OrderHandler) calculateLatencyPercentiles() (p50, p99 float64) {
	h.latenciesMu.RLock()
	defer h.latenciesMu.RUnlock()

	if len(h.latencies) == 0 {
		return 0, 0
	}

	sorted := make([]time.Duration, len(h.latencies))
	copy(sorted, h.latencies)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	percentile := func(q float64) float64 {
		idx := int(float64(len(sorted)) * q)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return float64(sorted[idx].Nanoseconds()) / 1e6
	}

	return percentile(0.50), percentile(0.99)
}

func (h *OrderHandler) calculateThroughput() float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}

	return float64(atomic.LoadInt64(&h.OrdersReceived)) / uptime
}

func validateSubmitOrderRequest(req *models.SubmitOrderRequest) error {
	if req.OrderID == 0 {
		return &ValidationError{Message: "Invalid order: order_id is required"}
	}

	if req.Side != string(engine.SideBuy) && req.Side != string(engine.SideSell) {
		return &ValidationError{Message: "Invalid order: side must be BUY or SELL"}
	}

	switch engine.OrderType(req.Type) {
	case engine.TypeGoodTillCancel, engine.TypeFillAndKill, engine.TypeGoodForDay:
		// edge case: price required for limit order types
		if req.Price <= 0 {
			return &ValidationError{Message: "Invalid order: price must be positive for limit orders"}
		}
	case engine.TypeMarket:
	default:
		return &ValidationError{Message: "Invalid order: type must be GTC, FAK, GFD or MARKET"}
	}

	if req.Quantity <= 0 {
		return &ValidationError{Message: "Invalid order: quantity must be positive"}
	}

	return nil
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
