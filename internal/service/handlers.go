package service

// OrderPlacedNotifier delivers OrderPlaced records to the orders queue.
type OrderPlacedNotifier struct{}

// JobClass implements JobHandler.
func (OrderPlacedNotifier) JobClass() string { return "OrderPlacedNotifier" }

// Queue implements JobHandler.
func (OrderPlacedNotifier) Queue() string { return "orders" }

// ThroughOutbox implements OutboxSubscriber.
func (OrderPlacedNotifier) ThroughOutbox() bool { return true }
