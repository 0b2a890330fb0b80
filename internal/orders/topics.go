package orders

const (
	TopicOrderCreated     = "order.created"
	TopicOrderPaid        = "order.paid"
	TopicOrderCancelled   = "order.cancelled"
	TopicPaymentRequested = "payment.requested"
	TopicPaymentResult    = "payment.result"
)

// Partition key = order_id so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
