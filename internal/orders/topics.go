package orders

const (
	TopicOrderPaid        = "order.paid"
	TopicPaymentFailed    = "order.payment.failed"
	TopicStockRemediation = "inventory.remediation"
)

// Partition key = order_id, so every event for one order stays ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
