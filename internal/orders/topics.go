package orders

const (
	TopicOrderConfirmed = "order.confirmed"
	TopicNotifyUser     = "notify.user"
)

// Partition key = order_id supaya event satu order tetap urut.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
