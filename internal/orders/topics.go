package orders

const (
	TopicOrderCreated  = "order.created"
	TopicPaymentResult = "order.payment.result"
)

// Partition key = order number so every event of one order keeps its order.
func PartitionKey(s string) []byte { return []byte(s) }
