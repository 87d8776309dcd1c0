package order

import (
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the timestamp format the ledger has always used.
const TimeLayout = "2006-01-02 15:04:05"

// Pickup methods a customer can choose at checkout.
const (
	MethodPickup   = "Pickup"
	MethodDelivery = "Delivery"
)

// Order is one unit of one snack promised to a customer. Every field is
// fixed at creation except Delivered, which flips to true exactly once when
// the admin hands the snack over.
type Order struct {
	ID           string `json:"id"`
	Item         string `json:"item"`
	Name         string `json:"name"`
	PickupMethod string `json:"pickup_method"`
	Time         string `json:"time"`
	Delivered    bool   `json:"delivered"`
}

// New stamps a fresh order with a generated identifier so fulfillment can
// address it even while other orders are being appended.
func New(item, name, method string, at time.Time) Order {
	return Order{
		ID:           uuid.NewString(),
		Item:         item,
		Name:         name,
		PickupMethod: NormalizeMethod(method),
		Time:         at.Format(TimeLayout),
	}
}

// NormalizeMethod folds any unexpected value to Pickup rather than rejecting it.
func NormalizeMethod(method string) string {
	switch method {
	case MethodPickup, MethodDelivery:
		return method
	default:
		return MethodPickup
	}
}
