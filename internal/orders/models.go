package orders

import (
	"time"

	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

// SelectedVariation carries the price resolved at checkout.
type SelectedVariation struct {
	PartID        string      `json:"part_id"`
	VariationID   string      `json:"variation_id"`
	VariationName string      `json:"variation_name"`
	Price         money.Money `json:"price"`
}

type OrderItem struct {
	ProductID  string              `json:"product_id"`
	Variations []SelectedVariation `json:"variations"`
}

type Order struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	Items          []OrderItem   `json:"items"`
	Status         Status        `json:"status"`
	CheckoutState  CheckoutState `json:"checkout_state"`
	TotalPrice     money.Money   `json:"total_price"`
	Currency       string        `json:"currency"`
	IdempotencyKey string        `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Transactions   []Transaction `json:"transactions,omitempty"`
}

func (o *Order) Phase() Phase { return Phase{Status: o.Status, State: o.CheckoutState} }

// VariationIDs lists every selected variation, one entry per unit.
func (o *Order) VariationIDs() []string {
	var out []string
	for _, it := range o.Items {
		for _, v := range it.Variations {
			out = append(out, v.VariationID)
		}
	}
	return out
}

type Transaction struct {
	ID             string         `json:"id"`
	OrderID        string         `json:"order_id"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentStatus  TxStatus       `json:"payment_status"`
	PaymentGateway string         `json:"payment_gateway"`
	GatewayRef     string         `json:"gateway_ref"`
	Amount         money.Money    `json:"amount"`
	Currency       string         `json:"currency"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TxUpdate is applied to a transaction when a payment outcome arrives.
type TxUpdate struct {
	Status         TxStatus
	GatewayRef     string
	PaymentMethod  string
	PaymentGateway string
	Details        map[string]any
}
