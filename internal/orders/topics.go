package orders

import "strconv"

const (
	TopicOrderSubmitted = "takeout.order.submitted"
	TopicOrderStatus    = "takeout.order.status"
)

// Partition key = order id, so every event of one order stays in order.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
