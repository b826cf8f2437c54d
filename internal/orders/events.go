package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderSubmitted     = "OrderSubmitted"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "takeout-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type LineQty struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	ItemID   int64   `json:"item_id"`
	Flavor   *string `json:"flavor,omitempty"`
	Quantity int     `json:"quantity"`
}

type OrderSubmittedPayload struct {
	OrderID   int64           `json:"order_id"`
	Number    string          `json:"number"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Remark    string          `json:"remark,omitempty"`
	Lines     []LineQty       `json:"lines"`
	OrderTime time.Time       `json:"order_time"`
}

type OrderStatusChangedPayload struct {
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

func lineQtys(lines []Line) []LineQty {
	out := make([]LineQty, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineQty{Name: l.Name, Kind: string(l.Item.Kind), ItemID: l.Item.ID, Flavor: l.Flavor, Quantity: l.Quantity})
	}
	return out
}
