// Package shop holds the stand's core rules: what makes an order acceptable,
// when stock moves, and how delivery is marked exactly once.
package shop

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"snackstand/pkg/inventory"
	"snackstand/pkg/order"
)

// Submission is one checkout attempt. Either Item is set for a single snack
// or Cart maps snack names to raw quantity strings; Cart wins when both are present.
type Submission struct {
	Name         string
	PickupMethod string
	Item         string
	Cart         map[string]string
}

// command envelopes one mutation for the service goroutine.
type command struct {
	action     string
	submission Submission
	orderID    string
	counts     map[string]string
	reply      chan error
}

// stockQuery requests the current inventory snapshot.
type stockQuery struct {
	reply chan stockResult
}

// ordersQuery requests the full ledger.
type ordersQuery struct {
	reply chan ordersResult
}

type stockResult struct {
	items map[string]inventory.Item
	err   error
}

type ordersResult struct {
	orders []order.Order
	err    error
}

// Service owns a single goroutine that serializes every read-modify-write on
// the two persisted collections, so concurrent checkouts can never both claim
// the last unit. The store-open flag sits outside the loop: it is a lone
// boolean and atomic access is enough.
type Service struct {
	inventory *inventory.Repository
	ledger    *order.Ledger
	logger    *zap.Logger
	now       func() time.Time

	open       atomic.Bool
	commands   chan command
	stockCalls chan stockQuery
	orderCalls chan ordersQuery
	quit       chan struct{}
}

// NewService starts the background goroutine immediately so HTTP handlers only
// see synchronous calls. The stand opens on every restart; closure is not persisted.
func NewService(inv *inventory.Repository, ledger *order.Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		inventory:  inv,
		ledger:     ledger,
		logger:     logger,
		now:        time.Now,
		commands:   make(chan command),
		stockCalls: make(chan stockQuery),
		orderCalls: make(chan ordersQuery),
		quit:       make(chan struct{}),
	}
	svc.open.Store(true)
	go svc.loop()
	return svc
}

// loop processes commands and queries sequentially so no mutexes are needed.
func (s *Service) loop() {
	for {
		select {
		case cmd := <-s.commands:
			switch cmd.action {
			case "place":
				cmd.reply <- s.place(cmd.submission)
			case "complete":
				cmd.reply <- s.complete(cmd.orderID)
			case "adjust":
				cmd.reply <- s.adjust(cmd.counts)
			default:
				cmd.reply <- errors.New("unknown shop action")
			}
		case q := <-s.stockCalls:
			items, err := s.inventory.Load()
			q.reply <- stockResult{items: items, err: err}
		case q := <-s.orderCalls:
			orders, err := s.ledger.Load()
			q.reply <- ordersResult{orders: orders, err: err}
		case <-s.quit:
			return
		}
	}
}

// PlaceOrder validates a submission against current stock and, only when the
// whole submission passes, decrements the inventory and appends one ledger
// entry per unit. The open flag is consulted before any validation.
func (s *Service) PlaceOrder(ctx context.Context, sub Submission) error {
	if !s.open.Load() {
		return ErrStoreClosed
	}
	return s.send(ctx, command{action: "place", submission: sub})
}

// CompleteOrder marks the identified order delivered. Stock already moved at
// order time, so this is a pure status transition.
func (s *Service) CompleteOrder(ctx context.Context, id string) error {
	return s.send(ctx, command{action: "complete", orderID: id})
}

// AdjustStock overwrites per-item counts from the admin form. Unparsable
// values leave their item untouched and unknown names are ignored.
func (s *Service) AdjustStock(ctx context.Context, counts map[string]string) error {
	return s.send(ctx, command{action: "adjust", counts: counts})
}

// Stock returns the current inventory snapshot for the menu and admin table.
func (s *Service) Stock(ctx context.Context) (map[string]inventory.Item, error) {
	reply := make(chan stockResult)

	select {
	case s.stockCalls <- stockQuery{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
		return nil, errors.New("shop queue is busy")
	}

	select {
	case res := <-reply:
		return res.items, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
		return nil, errors.New("stock listing timed out")
	}
}

// Orders returns the full ledger for the admin dashboard.
func (s *Service) Orders(ctx context.Context) ([]order.Order, error) {
	reply := make(chan ordersResult)

	select {
	case s.orderCalls <- ordersQuery{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
		return nil, errors.New("shop queue is busy")
	}

	select {
	case res := <-reply:
		return res.orders, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
		return nil, errors.New("order listing timed out")
	}
}

// Open reports whether the stand currently accepts orders.
func (s *Service) Open() bool {
	return s.open.Load()
}

// Toggle flips the open flag and returns the new value.
func (s *Service) Toggle() bool {
	for {
		current := s.open.Load()
		if s.open.CompareAndSwap(current, !current) {
			return !current
		}
	}
}

// Close stops the background goroutine when the application shuts down.
func (s *Service) Close() {
	close(s.quit)
}

// send pushes a command through the loop with the same ctx and timeout
// handling on both the enqueue and the reply.
func (s *Service) send(ctx context.Context, cmd command) error {
	reply := make(chan error)
	cmd.reply = reply

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return errors.New("shop queue is busy")
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return errors.New("shop command timed out")
	}
}

// place runs the whole ordering workflow inside the loop: load, validate
// everything, and only then mutate and persist each collection once.
func (s *Service) place(sub Submission) error {
	name := cleanName(sub.Name)
	if name == "" {
		return ErrInvalidName
	}
	method := order.NormalizeMethod(sub.PickupMethod)

	requests, fromCart, err := buildRequests(sub)
	if err != nil {
		return err
	}

	items, err := s.inventory.Load()
	if err != nil {
		return fmt.Errorf("reading stock: %w", err)
	}

	for _, itemName := range sortedKeys(requests) {
		record, ok := items[itemName]
		if !ok {
			return fmt.Errorf("%s: %w", itemName, inventory.ErrItemNotFound)
		}
		qty := requests[itemName]
		if !fromCart && record.Stock <= 0 {
			return fmt.Errorf("%s: %w", itemName, inventory.ErrOutOfStock)
		}
		if record.Stock < qty {
			return fmt.Errorf("%s: %w", itemName, inventory.ErrInsufficientStock)
		}
	}

	for itemName, qty := range requests {
		record := items[itemName]
		record.Stock -= qty
		items[itemName] = record
	}
	if err := s.inventory.Save(items); err != nil {
		return fmt.Errorf("writing stock: %w", err)
	}

	orders, err := s.ledger.Load()
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}
	stamp := s.now()
	total := 0
	for _, itemName := range sortedKeys(requests) {
		for n := 0; n < requests[itemName]; n++ {
			orders = append(orders, order.New(itemName, name, method, stamp))
			total++
		}
	}
	if err := s.ledger.Save(orders); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}

	s.logger.Info("order placed",
		zap.String("customer", name),
		zap.String("method", method),
		zap.Int("units", total))
	return nil
}

// buildRequests turns a submission into item -> quantity, applying the cart
// filtering rules or the single-item default.
func buildRequests(sub Submission) (map[string]int, bool, error) {
	requests := make(map[string]int)

	if len(sub.Cart) > 0 {
		for rawName, rawQty := range sub.Cart {
			itemName := cleanItemName(rawName)
			qty := parseQuantity(rawQty)
			if itemName == "" || qty <= 0 {
				continue
			}
			requests[itemName] += qty
		}
		if len(requests) == 0 {
			return nil, true, ErrEmptyCart
		}
		return requests, true, nil
	}

	itemName := cleanItemName(sub.Item)
	if itemName == "" {
		return nil, false, ErrEmptyCart
	}
	requests[itemName] = 1
	return requests, false, nil
}

// complete flips the delivered flag for one order, once.
func (s *Service) complete(id string) error {
	orders, err := s.ledger.Load()
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}
	for i := range orders {
		if orders[i].ID != id {
			continue
		}
		if orders[i].Delivered {
			return order.ErrAlreadyDelivered
		}
		orders[i].Delivered = true
		if err := s.ledger.Save(orders); err != nil {
			return fmt.Errorf("writing ledger: %w", err)
		}
		s.logger.Info("order delivered",
			zap.String("id", id),
			zap.String("item", orders[i].Item))
		return nil
	}
	return fmt.Errorf("%s: %w", id, order.ErrUnknownOrder)
}

// adjust overwrites stock counts from the admin form in one pass, persisting once.
func (s *Service) adjust(counts map[string]string) error {
	items, err := s.inventory.Load()
	if err != nil {
		return fmt.Errorf("reading stock: %w", err)
	}
	changed := false
	for itemName, raw := range counts {
		record, ok := items[itemName]
		if !ok {
			continue
		}
		parsed, err := parseCount(raw)
		if err != nil {
			continue
		}
		record.Stock = parsed
		items[itemName] = record
		changed = true
	}
	if !changed {
		return nil
	}
	if err := s.inventory.Save(items); err != nil {
		return fmt.Errorf("writing stock: %w", err)
	}
	s.logger.Info("stock adjusted", zap.Int("fields", len(counts)))
	return nil
}

// sortedKeys fixes the iteration order so ledger entries append deterministically.
func sortedKeys(requests map[string]int) []string {
	keys := make([]string, 0, len(requests))
	for key := range requests {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
