// Package notifier follows block events pushed by a MultiversX events notifier.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/price-getter/business/blockchain/app"
	"github.com/fd1az/price-getter/business/blockchain/domain"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/wsconn"
)

const (
	meterName  = "blockchain.notifier"
	sourceName = "notifier"

	// EventFinalized is pushed once per finalized block.
	EventFinalized = "finalized_events"
	// EventBlock is pushed once per committed block.
	EventBlock = "block_events"
)

// Ensure Subscriber implements BlockSource.
var _ app.BlockSource = (*Subscriber)(nil)

// InvalidatingSource is a block source whose memoised answer can be dropped.
type InvalidatingSource interface {
	app.BlockSource
	Invalidate(ctx context.Context)
}

type subscribeRequest struct {
	SubscriptionEntries []subscriptionEntry `json:"subscriptionEntries"`
}

type subscriptionEntry struct {
	EventType string `json:"eventType"`
}

type event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type subscriberMetrics struct {
	eventsReceived metric.Int64Counter
}

// Subscriber keeps a status source fresh: every pushed block event drops the
// source's memo, so the next LatestBlock reflects the new block.
type Subscriber struct {
	ws     *wsconn.Client
	source InvalidatingSource
	events []string
	logger logger.LoggerInterface

	received  atomic.Int64
	lastEvent atomic.Int64 // unix nanos

	metrics *subscriberMetrics
}

// NewSubscriber creates a subscriber to url. It does not dial until Connect.
func NewSubscriber(url string, source InvalidatingSource, log logger.LoggerInterface) (*Subscriber, error) {
	ws, err := wsconn.New(wsconn.DefaultConfig(url, "events-notifier"))
	if err != nil {
		return nil, err
	}
	return newSubscriber(ws, source, log)
}

func newSubscriber(ws *wsconn.Client, source InvalidatingSource, log logger.LoggerInterface) (*Subscriber, error) {
	s := &Subscriber{
		ws:     ws,
		source: source,
		events: []string{EventFinalized, EventBlock},
		logger: log,
	}

	counter, err := otel.Meter(meterName).Int64Counter("mvx_notifier_events_total",
		metric.WithDescription("Block events received from the notifier"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	s.metrics = &subscriberMetrics{eventsReceived: counter}

	ws.OnMessage(s.handleMessage)
	ws.OnConnect(s.subscribe)
	ws.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			log.Warn(context.Background(), "notifier connection state changed", "state", string(state), "error", err)
			return
		}
		log.Info(context.Background(), "notifier connection state changed", "state", string(state))
	})

	return s, nil
}

// Connect dials the notifier and subscribes to block events.
func (s *Subscriber) Connect(ctx context.Context) error {
	return s.ws.Connect(ctx)
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	req := subscribeRequest{}
	for _, e := range s.events {
		req.SubscriptionEntries = append(req.SubscriptionEntries, subscriptionEntry{EventType: e})
	}
	return s.ws.SendJSON(ctx, req)
}

func (s *Subscriber) handleMessage(ctx context.Context, msg []byte) {
	var ev event
	if err := json.Unmarshal(msg, &ev); err != nil {
		s.logger.Debug(ctx, "ignoring notifier message", "error", err)
		return
	}

	switch ev.Type {
	case EventFinalized, EventBlock:
	default:
		return
	}

	s.received.Add(1)
	s.lastEvent.Store(time.Now().UnixNano())
	s.metrics.eventsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("type", ev.Type)))
	s.source.Invalidate(ctx)
}

// LatestBlock reads through the underlying source.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	b, err := s.source.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	b.Source = sourceName
	return b, nil
}

// State maps the websocket state.
func (s *Subscriber) State() domain.ConnectionState {
	switch s.ws.State() {
	case wsconn.StateConnected:
		return domain.StateConnected
	case wsconn.StateConnecting:
		return domain.StateConnecting
	case wsconn.StateReconnecting:
		return domain.StateReconnecting
	default:
		return domain.StateDisconnected
	}
}

// Status returns detailed connection status.
func (s *Subscriber) Status() domain.ConnectionStatus {
	var last time.Time
	if n := s.lastEvent.Load(); n > 0 {
		last = time.Unix(0, n)
	}
	return domain.ConnectionStatus{
		State:      s.State(),
		Source:     sourceName,
		LastUpdate: last,
	}
}

// EventsReceived returns the number of block events seen.
func (s *Subscriber) EventsReceived() int64 {
	return s.received.Load()
}

// Close stops the subscription.
func (s *Subscriber) Close() error {
	return s.ws.Close()
}
