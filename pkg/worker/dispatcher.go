package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscan/medscan-api/pkg/messaging"
	"github.com/medscan/medscan-api/pkg/metrics"
)

// ErrQueueFull is returned by Publish when the buffer has no room.
var ErrQueueFull = errors.New("event queue full")

type DispatcherConfig struct {
	QueueSize     int
	RetryAttempts int
	RetryDelay    time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:     256,
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
	}
}

type job struct {
	eventType string
	payload   interface{}
}

// Dispatcher is a messaging.Publisher that buffers events and hands them to the
// next publisher from a single background goroutine, so callers never wait on
// the broker.
type Dispatcher struct {
	next    messaging.Publisher
	config  DispatcherConfig
	queue   chan job
	logger  zerolog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewDispatcher(next messaging.Publisher, config DispatcherConfig, logger zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = defaults.RetryAttempts
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}

	return &Dispatcher{
		next:    next,
		config:  config,
		queue:   make(chan job, config.QueueSize),
		logger:  logger.With().Str("component", "event-dispatcher").Logger(),
		metrics: m,
	}
}

// Publish enqueues the event without blocking.
func (d *Dispatcher) Publish(_ context.Context, eventType string, payload interface{}) error {
	select {
	case d.queue <- job{eventType: eventType, payload: payload}:
		return nil
	default:
		d.count("dropped")
		return ErrQueueFull
	}
}

// Start runs the delivery loop until ctx is cancelled, then drains what is
// already queued. Wait blocks until it has returned.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.logger.Info().Msg("starting event dispatcher")

		for {
			select {
			case <-ctx.Done():
				d.drain()
				d.logger.Info().Msg("event dispatcher stopped")
				return
			case j := <-d.queue:
				d.deliver(ctx, j)
			}
		}
	}()
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.queue:
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			d.deliver(ctx, j)
			cancel()
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	err := retry(ctx, d.config.RetryAttempts, d.config.RetryDelay, func() error {
		return d.next.Publish(ctx, j.eventType, j.payload)
	})
	if err != nil {
		d.count("error")
		d.logger.Warn().Err(err).Str("event_type", j.eventType).Msg("failed to publish event")
		return
	}
	d.count("ok")
}

func (d *Dispatcher) count(status string) {
	if d.metrics != nil {
		d.metrics.EventsPublished.WithLabelValues(status).Inc()
	}
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(delay):
			}
		}
	}
	return err
}
