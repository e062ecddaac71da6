package notify

import (
	"context"
	"time"

	"github.com/riverqueue/river"
)

type DeliverArgs struct {
	Event Event `json:"event"`
}

func (DeliverArgs) Kind() string { return "deliver_notification" }

// DeliverWorker runs Deliverer for jobs enqueued by RiverSink. Retries are safe
// because the inbox insert is idempotent on the event id.
type DeliverWorker struct {
	river.WorkerDefaults[DeliverArgs]
	deliverer *Deliverer
	timeout   time.Duration
}

func NewDeliverWorker(d *Deliverer, timeout time.Duration) *DeliverWorker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DeliverWorker{deliverer: d, timeout: timeout}
}

func (w *DeliverWorker) Timeout(*river.Job[DeliverArgs]) time.Duration { return w.timeout }

func (w *DeliverWorker) Work(ctx context.Context, job *river.Job[DeliverArgs]) error {
	return w.deliverer.Publish(ctx, job.Args.Event)
}

// InsertFunc enqueues a delivery job. It is set after the River client exists.
type InsertFunc func(ctx context.Context, args DeliverArgs) error

// RiverSink enqueues each event as a River job.
type RiverSink struct {
	insert InsertFunc
}

func NewRiverSink(insert InsertFunc) *RiverSink {
	return &RiverSink{insert: insert}
}

func (s *RiverSink) Publish(ctx context.Context, ev Event) error {
	return s.insert(ctx, DeliverArgs{Event: ev})
}
