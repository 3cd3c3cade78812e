package models

// SubmitOrderRequest carries the order fields on the wire: side is BUY or
// SELL, type is GTC, FAK, GFD or MARKET, and price is in minimal tick
// units (ignored for MARKET).
type SubmitOrderRequest struct {
	OrderID  uint64 `json:"order_id"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type ModifyOrderRequest struct {
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type SubmitOrderResponse struct {
	OrderID  uint64      `json:"order_id"`
	Accepted bool        `json:"accepted"`
	Resting  bool        `json:"resting"`
	Message  string      `json:"message,omitempty"`
	Trades   []TradeInfo `json:"trades,omitempty"`
}

// TradeInfo is a rendered match: one execution against both orders'
// resting prices.
type TradeInfo struct {
	TradeID  string `json:"trade_id"`
	BidOrder uint64 `json:"bid_order_id"`
	BidPrice int64  `json:"bid_price"`
	AskOrder uint64 `json:"ask_order_id"`
	AskPrice int64  `json:"ask_price"`
	Quantity int64  `json:"quantity"`
}

type CancelOrderResponse struct {
	OrderID uint64 `json:"order_id"`
	Status  string `json:"status"`
}

type OrderStatusResponse struct {
	OrderID           uint64 `json:"order_id"`
	Side              string `json:"side"`
	Type              string `json:"type"`
	Price             int64  `json:"price"`
	InitialQuantity   int64  `json:"initial_quantity"`
	RemainingQuantity int64  `json:"remaining_quantity"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	RestingOrders int    `json:"resting_orders"`
}

type MetricsResponse struct {
	OrdersReceived         int64   `json:"orders_received"`
	OrdersRejected         int64   `json:"orders_rejected"`
	OrdersCancelled        int64   `json:"orders_cancelled"`
	RestingOrders          int     `json:"resting_orders"`
	TradesExecuted         int64   `json:"trades_executed"`
	LatencyP50Ms           float64 `json:"latency_p50_ms"`
	LatencyP99Ms           float64 `json:"latency_p99_ms"`
	ThroughputOrdersPerSec float64 `json:"throughput_orders_per_sec"`
}
