package kafka

import (
	"context"
	"log"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message is fully processed and
// its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers}
}

// offsetMarks tracks the highest offset seen per partition so the
// committer never moves a group offset backwards when workers finish
// out of order.
type offsetMarks map[int]int64

// Advance reports whether offset is a new high-water mark for the
// partition and records it if so.
func (om offsetMarks) Advance(partition int, offset int64) bool {
	last, seen := om[partition]
	if seen && offset <= last {
		return false
	}
	om[partition] = offset
	return true
}

// Start reads until ctx is cancelled or the reader fails, fanning
// messages out to the worker pool. Offsets are committed by a single
// goroutine in per-partition order; a handler error leaves the offset
// uncommitted so the message comes back after a rebalance.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	done := make(chan kafka.Message, 1024)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					log.Printf("handler %s[%d]@%d: %v", m.Topic, m.Partition, m.Offset, err)
					continue
				}
				select {
				case done <- m:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	committed := make(chan struct{})
	go func() {
		defer close(committed)
		marks := offsetMarks{}
		for m := range done {
			if !marks.Advance(m.Partition, m.Offset) {
				continue
			}
			if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
				log.Printf("commit %s[%d]@%d: %v", m.Topic, m.Partition, m.Offset, err)
			}
		}
	}()

	readErr := c.dispatch(ctx, jobs)
	close(jobs)
	wg.Wait()
	close(done)
	<-committed
	return readErr
}

func (c *Consumer) dispatch(ctx context.Context, jobs chan<- kafka.Message) error {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			// keep shutdown quiet
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}
