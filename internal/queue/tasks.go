package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	DefaultQueue = "checkout"

	// TaskPaymentTimeout cancels an order whose payment never arrived.
	TaskPaymentTimeout = "payment:timeout"
)

type PaymentTimeoutPayload struct {
	OrderID string `json:"order_id"`
}

func NewPaymentTimeoutTask(payload PaymentTimeoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentTimeout, body), nil
}

// paymentTimeoutTaskID keeps one pending timeout per order.
func paymentTimeoutTaskID(orderID string) string {
	return TaskPaymentTimeout + ":" + orderID
}
