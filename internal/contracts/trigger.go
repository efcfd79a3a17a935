package contracts

// TriggerKind selects which trigger handler processes an event
// ⭐ SSOT: 트리거 종류 정의는 여기서만
type TriggerKind string

const (
	TriggerTrendingTopic  TriggerKind = "trending_topic"
	TriggerLimitUp        TriggerKind = "limit_up"
	TriggerStockList      TriggerKind = "stock_list"
	TriggerNewsEvent      TriggerKind = "news_event"
	TriggerEarningsReport TriggerKind = "earnings_report"
)

// TriggerConfig is one transient trigger event
type TriggerConfig struct {
	Kind TriggerKind `json:"kind"`

	// Keywords seed trending-topic and news-event handlers
	Keywords []string `json:"keywords,omitempty"`

	// StockCodes seed stock-list and earnings-report handlers
	StockCodes []string `json:"stock_codes,omitempty"`

	// Payload carries handler-specific structured input (e.g. a news body)
	Payload map[string]string `json:"payload,omitempty"`
}

// TriggerResult summarizes one trigger execution
type TriggerResult struct {
	Processed int      `json:"processed"` // topics normalized from the trigger
	Generated int      `json:"generated"` // post records created
	Errors    []string `json:"errors,omitempty"`
}
