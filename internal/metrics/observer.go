package metrics

// DeliveryObserver receives delivery and stream events from the worker and
// the hub. The prometheus implementation is the only production one; tests
// plug in no-ops.
type DeliveryObserver interface {
	RecordSent()
	RecordFailed()
	ObserveBatchDuration(seconds float64)
	ObserveQueueLag(seconds float64)
	IncWatchers()
	DecWatchers()
}
