package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/store"
)

// DefaultMaxInFlight bounds how many clone operations a single event may run
// concurrently when no explicit limit is configured.
const DefaultMaxInFlight = 50

// ResourceCreated is the in-process, non-durable message the coordinator
// consumes. If the process crashes before the event is handled, it is lost;
// enrichment runs independently, so only the subscribers' lists miss out.
type ResourceCreated struct {
	ResourceID uuid.UUID
}

// ResourceStore is the slice of resource persistence the coordinator needs.
type ResourceStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
	Create(ctx context.Context, resource *domain.Resource) error
}

// IntegrationStore locates the subscriptions pointing at a source list.
type IntegrationStore interface {
	FindSubscriptions(ctx context.Context, sourceListID uuid.UUID) ([]*domain.Integration, error)
}

// ListStore is used to refresh target-list activity after a clone lands.
type ListStore interface {
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Positioner computes the insertion position for a clone in its target list.
type Positioner interface {
	NextPosition(ctx context.Context, listID uuid.UUID) (int, error)
}

// Config holds coordinator tunables.
type Config struct {
	// MaxInFlight caps concurrent clone operations per event.
	// If zero or negative, DefaultMaxInFlight is used.
	MaxInFlight int
}

// Coordinator replicates newly created resources into every list subscribed
// to their source list.
//
// It runs as a single-consumer actor: events are appended to an unbounded
// mailbox by Enqueue (which never blocks) and handled strictly one at a time,
// in order, by one goroutine. Within one event the per-integration clones run
// with bounded concurrency; two integrations targeting the same list can
// therefore still race on position, which is accepted rather than fixed here.
//
// Clones never re-enter the mailbox, so fan-out is one level deep and cannot
// cycle through mutually subscribed lists.
type Coordinator struct {
	resources    ResourceStore
	integrations IntegrationStore
	lists        ListStore
	positioner   Positioner

	maxInFlight int
	logger      *slog.Logger

	// failureHandler plays the supervisor role: it receives the event and the
	// error when handling fails as a whole. The default just logs.
	failureHandler func(event ResourceCreated, err error)

	mu      sync.Mutex
	mailbox []ResourceCreated
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator creates a fan-out coordinator.
// If logger is nil, the default logger is used.
func NewCoordinator(
	resources ResourceStore,
	integrations IntegrationStore,
	lists ListStore,
	positioner Positioner,
	cfg Config,
	logger *slog.Logger,
) (*Coordinator, error) {
	if resources == nil {
		return nil, errors.New("resource store cannot be nil")
	}
	if integrations == nil {
		return nil, errors.New("integration store cannot be nil")
	}
	if lists == nil {
		return nil, errors.New("list store cannot be nil")
	}
	if positioner == nil {
		return nil, errors.New("positioner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		resources:    resources,
		integrations: integrations,
		lists:        lists,
		positioner:   positioner,
		maxInFlight:  maxInFlight,
		logger:       logger.With("component", "fanout_coordinator"),
		wake:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
	}
	c.failureHandler = func(event ResourceCreated, err error) {
		c.logger.Error("fan-out event handling failed",
			"resource_id", event.ResourceID,
			"error", err)
	}

	return c, nil
}

// SetFailureHandler installs a custom supervisor callback invoked when an
// event fails as a whole. Must be called before Start.
func (c *Coordinator) SetFailureHandler(handler func(event ResourceCreated, err error)) {
	c.failureHandler = handler
}

// Enqueue appends an event to the mailbox and returns immediately. It is safe
// for concurrent use and never blocks, which makes it suitable for the
// fire-and-forget trigger on the request path.
func (c *Coordinator) Enqueue(event ResourceCreated) {
	c.mu.Lock()
	c.mailbox = append(c.mailbox, event)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Start launches the consumer goroutine.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go c.run()
}

// Stop shuts the consumer down. In-flight event handling runs to completion;
// events still queued in the mailbox are dropped (the message is non-durable
// by design).
func (c *Coordinator) Stop() {
	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	dropped := len(c.mailbox)
	c.mailbox = nil
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.Warn("dropped queued fan-out events on shutdown", "count", dropped)
	}
}

// run drains the mailbox one event at a time, in arrival order.
func (c *Coordinator) run() {
	defer c.wg.Done()

	for {
		event, ok := c.next()
		if !ok {
			select {
			case <-c.ctx.Done():
				return
			case <-c.wake:
				continue
			}
		}

		if err := c.handle(c.ctx, event); err != nil {
			c.failureHandler(event, err)
		}
	}
}

// next pops the oldest queued event, if any.
func (c *Coordinator) next() (ResourceCreated, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.mailbox) == 0 {
		return ResourceCreated{}, false
	}
	event := c.mailbox[0]
	c.mailbox = c.mailbox[1:]
	return event, true
}

// handle performs the fan-out for one event: load the source resource, find
// its subscribers, and clone into each target list with bounded concurrency.
// A missing source resource is a soft success; any clone failure fails the
// whole event, with no retry of the clones that already landed.
func (c *Coordinator) handle(ctx context.Context, event ResourceCreated) error {
	logger := c.logger.With("resource_id", event.ResourceID)

	source, err := c.resources.GetByID(ctx, event.ResourceID)
	if err != nil {
		if store.IsNotFoundError(err) {
			// The resource was deleted between enqueue and processing.
			logger.Info("skipping fan-out for missing resource")
			return nil
		}
		return fmt.Errorf("failed to load source resource: %w", err)
	}

	subscriptions, err := c.integrations.FindSubscriptions(ctx, source.ListID)
	if err != nil {
		return fmt.Errorf("failed to find subscriptions: %w", err)
	}

	if len(subscriptions) == 0 {
		logger.Debug("no subscribers for list", "list_id", source.ListID)
		return nil
	}

	logger.Info("fanning out resource",
		"list_id", source.ListID,
		"subscriber_count", len(subscriptions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxInFlight)

	for _, subscription := range subscriptions {
		subscription := subscription
		g.Go(func() error {
			if err := c.clone(gctx, source, subscription); err != nil {
				return fmt.Errorf("clone into list %s failed: %w", subscription.TargetListID, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// clone inserts a copy of the source resource at the tail of the
// subscription's target list and refreshes that list's activity timestamp.
func (c *Coordinator) clone(
	ctx context.Context,
	source *domain.Resource,
	subscription *domain.Integration,
) error {
	pos, err := c.positioner.NextPosition(ctx, subscription.TargetListID)
	if err != nil {
		return fmt.Errorf("failed to compute position: %w", err)
	}

	replica := source.CloneInto(subscription.TargetListID, subscription.UserID, pos)
	if err := c.resources.Create(ctx, replica); err != nil {
		return fmt.Errorf("failed to insert clone: %w", err)
	}

	if err := c.lists.TouchActivity(ctx, subscription.TargetListID, time.Now().UTC()); err != nil {
		// Activity bookkeeping is best-effort; the clone already landed.
		c.logger.Warn("failed to touch target list activity",
			"list_id", subscription.TargetListID,
			"error", err)
	}

	c.logger.Debug("cloned resource into subscriber list",
		"source_resource_id", source.ID,
		"clone_resource_id", replica.ID,
		"target_list_id", subscription.TargetListID,
		"position", pos)

	return nil
}
