// Package checkout drives a non-empty cart through review, details entry,
// simulated payment processing and a terminal Success or Failed outcome.
//
//	Idle -> CartReview -> DetailsEntry | AwaitingPaymentMethod -> Processing -> Success | Failed
//
// Processing is the only suspension point. It is owned by a goroutine
// that waits for the simulated confirmation delay; QRIS payments further
// wait for an explicit Confirm. The cart is locked for the whole of
// Processing and is cleared in the same step that issues the receipt.
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nikolayk812/storefront-cart/internal/cart"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/pricing"
	"github.com/nikolayk812/storefront-cart/internal/receipt"
	"go.uber.org/zap"
)

// DefaultProcessingDelay matches the storefront's simulated payment delay.
const DefaultProcessingDelay = 2 * time.Second

type Variant string

const (
	Storefront  Variant = "storefront"
	PointOfSale Variant = "pos"
)

func (v Variant) Valid() bool {
	return v == Storefront || v == PointOfSale
}

// detailsState is the state entered from CartReview.
func (v Variant) detailsState() domain.CheckoutState {
	if v == PointOfSale {
		return domain.StateAwaitingPaymentMethod
	}
	return domain.StateDetailsEntry
}

// Accepts reports whether the variant offers the payment method. The
// storefront has no cash desk.
func (v Variant) Accepts(m domain.PaymentMethod) bool {
	if !m.Valid() {
		return false
	}
	return v == PointOfSale || m != domain.PaymentCash
}

type Config struct {
	Variant         Variant
	Pricing         domain.PricingConfig
	ProcessingDelay time.Duration
}

// WaitFunc blocks for d or until stop is closed. It reports whether the
// full delay elapsed.
type WaitFunc func(d time.Duration, stop <-chan struct{}) bool

type Option func(*Workflow)

func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// WithReceiptRepository stores every issued receipt. A failed save ends
// the session in Failed with the cart untouched.
func WithReceiptRepository(repo port.ReceiptRepository) Option {
	return func(w *Workflow) { w.receipts = repo }
}

func WithGenerator(g *receipt.Generator) Option {
	return func(w *Workflow) { w.generator = g }
}

func WithWaitFunc(wait WaitFunc) Option {
	return func(w *Workflow) { w.wait = wait }
}

type Workflow struct {
	store     *cart.Store
	cfg       Config
	generator *receipt.Generator
	receipts  port.ReceiptRepository
	logger    *zap.Logger
	wait      WaitFunc

	mu      sync.Mutex
	session *domain.CheckoutSession
	receipt *domain.Receipt
	// attempt increments on every Submit so a stale processing goroutine
	// can tell it no longer owns the session.
	attempt int
	stop    chan struct{}
	done    chan struct{}
	// delayElapsed is set once the processing delay has passed.
	delayElapsed bool

	wg sync.WaitGroup

	obsMu     sync.Mutex
	observers []observer
	nextObsID int
}

func New(store *cart.Store, cfg Config, opts ...Option) (*Workflow, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if !cfg.Variant.Valid() {
		return nil, fmt.Errorf("variant %q is not valid", cfg.Variant)
	}
	if err := cfg.Pricing.Validate(); err != nil {
		return nil, fmt.Errorf("cfg.Pricing.Validate: %w", err)
	}
	if cfg.ProcessingDelay < 0 {
		return nil, fmt.Errorf("processing delay %s is negative", cfg.ProcessingDelay)
	}

	w := &Workflow{
		store:     store,
		cfg:       cfg,
		generator: receipt.NewGenerator(),
		logger:    zap.NewNop(),
		wait:      sleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// State is StateIdle when there is no session.
func (w *Workflow) State() domain.CheckoutState {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stateLocked()
}

func (w *Workflow) stateLocked() domain.CheckoutState {
	if w.session == nil {
		return domain.StateIdle
	}
	return w.session.State
}

// Session returns a copy of the current session.
func (w *Workflow) Session() (domain.CheckoutSession, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session == nil {
		return domain.CheckoutSession{State: domain.StateIdle}, false
	}
	return w.session.Clone(), true
}

// Receipt returns the receipt issued by the current session, if any.
func (w *Workflow) Receipt() (domain.Receipt, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.receipt == nil {
		return domain.Receipt{}, false
	}
	r := *w.receipt
	r.Items = domain.CloneItems(r.Items)
	return r, true
}

// Breakdown prices the cart as it is now. It is recomputed on every call.
func (w *Workflow) Breakdown(ctx context.Context) (domain.PriceBreakdown, error) {
	snapshot, err := w.store.Snapshot(ctx)
	if err != nil {
		return domain.PriceBreakdown{}, fmt.Errorf("store.Snapshot: %w", err)
	}
	return pricing.Compute(snapshot.Items, w.cfg.Pricing), nil
}

// Begin opens a session on a non-empty cart and captures the priced
// snapshot the receipt will be built from.
func (w *Workflow) Begin(ctx context.Context) error {
	w.mu.Lock()
	if w.session != nil {
		state := w.session.State
		w.mu.Unlock()
		return fmt.Errorf("state %s: %w", state, domain.ErrSessionActive)
	}

	id := domain.NewSessionID()
	if err := w.store.BindSession(string(id)); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("store.BindSession: %w", err)
	}

	session := &domain.CheckoutSession{
		ID:          id,
		CartOwnerID: w.store.OwnerID(),
		State:       domain.StateIdle,
	}
	if err := w.review(ctx, session); err != nil {
		w.store.UnbindSession(string(id))
		w.mu.Unlock()
		return err
	}
	w.session = session
	w.receipt = nil
	w.mu.Unlock()

	w.logger.Info("checkout started",
		zap.String("session_id", string(id)),
		zap.String("owner_id", session.CartOwnerID),
		zap.Int64("total", session.Breakdown.Total.Amount))
	w.emit(Event{SessionID: id, From: domain.StateIdle, To: domain.StateCartReview})
	return nil
}

// review moves session into CartReview with a fresh snapshot.
func (w *Workflow) review(ctx context.Context, session *domain.CheckoutSession) error {
	snapshot, err := w.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("store.Snapshot: %w", err)
	}
	if snapshot.IsEmpty() {
		return domain.ErrEmptyCart
	}

	session.Snapshot = snapshot.Items
	session.Breakdown = pricing.Compute(snapshot.Items, w.cfg.Pricing)
	session.State = domain.StateCartReview
	session.FailureReason = ""
	return nil
}

// Proceed moves from CartReview to DetailsEntry (storefront) or
// AwaitingPaymentMethod (POS).
func (w *Workflow) Proceed() error {
	return w.transition("proceed", []domain.CheckoutState{domain.StateCartReview}, func(s *domain.CheckoutSession) error {
		s.State = w.cfg.Variant.detailsState()
		return nil
	})
}

// SetShippingAddress records the delivery address. Storefront only.
func (w *Workflow) SetShippingAddress(addr domain.Address) error {
	if w.cfg.Variant != Storefront {
		return &domain.TransitionError{From: w.State(), Action: "set shipping address"}
	}
	return w.transition("set shipping address", []domain.CheckoutState{domain.StateDetailsEntry}, func(s *domain.CheckoutSession) error {
		if addr.IsZero() {
			s.ShippingAddress = nil
			return nil
		}
		s.ShippingAddress = &addr
		return nil
	})
}

func (w *Workflow) SelectPaymentMethod(m domain.PaymentMethod) error {
	allowed := []domain.CheckoutState{w.cfg.Variant.detailsState()}
	return w.transition("select payment method", allowed, func(s *domain.CheckoutSession) error {
		if !w.cfg.Variant.Accepts(m) {
			return fmt.Errorf("method %q: %w", m, domain.ErrInvalidPaymentMethod)
		}
		s.PaymentMethod = m
		return nil
	})
}

// transition applies fn to the session when it is in one of the allowed
// states. On error the session is left as it was.
func (w *Workflow) transition(action string, allowed []domain.CheckoutState, fn func(*domain.CheckoutSession) error) error {
	w.mu.Lock()

	from := w.stateLocked()
	if !contains(allowed, from) {
		w.mu.Unlock()
		return &domain.TransitionError{From: from, Action: action}
	}

	next := w.session.Clone()
	if err := fn(&next); err != nil {
		w.mu.Unlock()
		return err
	}
	*w.session = next
	to := next.State
	id := next.ID
	w.mu.Unlock()

	if from != to {
		w.emit(Event{SessionID: id, From: from, To: to})
	}
	return nil
}

// Submit starts payment processing. Without a selected payment method it
// fails with domain.ErrPaymentMethodRequired and the session stays put.
//
// The cart is locked and its lines compared with the reviewed snapshot
// first. If they changed, the session goes back to CartReview with a fresh snapshot and
// Submit fails with domain.ErrCartChanged; an emptied cart fails with
// domain.ErrEmptyCart and the session stays put.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()

	from := w.stateLocked()
	if from != w.cfg.Variant.detailsState() {
		w.mu.Unlock()
		return &domain.TransitionError{From: from, Action: "submit"}
	}
	if w.session.PaymentMethod == "" {
		w.mu.Unlock()
		return domain.ErrPaymentMethodRequired
	}
	if err := w.store.Lock(); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("store.Lock: %w", err)
	}

	if current := w.store.Cart(); !domain.SameLines(current.Items, w.session.Snapshot) {
		w.unlockStore(ctx)

		next := w.session.Clone()
		if err := w.review(ctx, &next); err != nil {
			w.mu.Unlock()
			return err
		}
		*w.session = next
		id := next.ID
		w.mu.Unlock()

		w.logger.Info("cart changed since review",
			zap.String("session_id", string(id)),
			zap.Int64("total", next.Breakdown.Total.Amount))
		w.emit(Event{SessionID: id, From: from, To: domain.StateCartReview, Reason: domain.ErrCartChanged.Error()})
		return domain.ErrCartChanged
	}

	w.attempt++
	attempt := w.attempt
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	w.delayElapsed = false
	w.session.State = domain.StateProcessing
	id := w.session.ID
	method := w.session.PaymentMethod

	w.wg.Add(1)
	go w.process(context.WithoutCancel(ctx), attempt, w.stop)
	w.mu.Unlock()

	w.logger.Info("payment processing",
		zap.String("session_id", string(id)),
		zap.String("payment_method", string(method)))
	w.emit(Event{SessionID: id, From: from, To: domain.StateProcessing})
	return nil
}

func (w *Workflow) process(ctx context.Context, attempt int, stop <-chan struct{}) {
	defer w.wg.Done()

	if !w.wait(w.cfg.ProcessingDelay, stop) {
		return
	}

	w.mu.Lock()
	if w.attempt != attempt || w.stateLocked() != domain.StateProcessing {
		w.mu.Unlock()
		return
	}
	w.delayElapsed = true
	if w.session.PaymentMethod.RequiresConfirmation() {
		id := w.session.ID
		w.mu.Unlock()
		w.logger.Info("awaiting payment confirmation", zap.String("session_id", string(id)))
		return
	}

	events := w.completeLocked(ctx)
	w.mu.Unlock()
	w.emit(events...)
}

// Confirm is the "payment confirmed" signal for methods that require one.
func (w *Workflow) Confirm(ctx context.Context) error {
	w.mu.Lock()

	from := w.stateLocked()
	if from != domain.StateProcessing || !w.session.PaymentMethod.RequiresConfirmation() {
		w.mu.Unlock()
		return &domain.TransitionError{From: from, Action: "confirm"}
	}

	events := w.completeLocked(ctx)
	w.mu.Unlock()
	w.emit(events...)
	return nil
}

// completeLocked issues the receipt from the review snapshot and clears
// the cart. Must be called with w.mu held in StateProcessing.
func (w *Workflow) completeLocked(ctx context.Context) []Event {
	s := w.session
	w.closeStopLocked()

	r := w.generator.Generate(s.Snapshot, s.Breakdown, receipt.Meta{
		SessionID:     s.ID,
		OwnerID:       s.CartOwnerID,
		PaymentMethod: s.PaymentMethod,
	})

	if w.receipts != nil {
		if err := w.receipts.SaveReceipt(ctx, r); err != nil {
			w.logger.Error("receipt not stored", zap.String("session_id", string(s.ID)), zap.Error(err))
			return w.failLocked(ctx, fmt.Sprintf("receipt not stored: %v", err))
		}
	}

	if err := w.store.Release(ctx, true); err != nil {
		w.logger.Warn("cleared cart not persisted", zap.String("session_id", string(s.ID)), zap.Error(err))
	}

	s.State = domain.StateSuccess
	w.receipt = &r
	close(w.done)

	w.logger.Info("payment succeeded",
		zap.String("session_id", string(s.ID)),
		zap.String("receipt_id", string(r.ID)),
		zap.Int64("total", r.Breakdown.Total.Amount))
	return []Event{{SessionID: s.ID, From: domain.StateProcessing, To: domain.StateSuccess, ReceiptID: r.ID}}
}

// Deny is the "confirmation denied" signal: Processing -> Failed.
func (w *Workflow) Deny(ctx context.Context, reason string) error {
	w.mu.Lock()

	from := w.stateLocked()
	if from != domain.StateProcessing {
		w.mu.Unlock()
		return &domain.TransitionError{From: from, Action: "deny"}
	}

	events := w.failLocked(ctx, reason)
	w.mu.Unlock()
	w.emit(events...)
	return nil
}

// Cancel fails a processing payment. In any other state it closes the
// session like Close.
func (w *Workflow) Cancel(ctx context.Context) error {
	w.mu.Lock()
	if w.stateLocked() != domain.StateProcessing {
		w.mu.Unlock()
		return w.Close()
	}

	events := w.failLocked(ctx, "canceled")
	w.mu.Unlock()
	w.emit(events...)
	return nil
}

func (w *Workflow) unlockStore(ctx context.Context) {
	if err := w.store.Release(ctx, false); err != nil {
		w.logger.Warn("cart release failed", zap.String("owner_id", w.store.OwnerID()), zap.Error(err))
	}
}

// failLocked ends processing in Failed and unlocks the untouched cart.
func (w *Workflow) failLocked(ctx context.Context, reason string) []Event {
	s := w.session
	w.closeStopLocked()

	if err := w.store.Release(ctx, false); err != nil {
		w.logger.Warn("cart release failed", zap.String("session_id", string(s.ID)), zap.Error(err))
	}

	s.State = domain.StateFailed
	s.FailureReason = reason
	close(w.done)

	w.logger.Info("payment failed", zap.String("session_id", string(s.ID)), zap.String("reason", reason))
	return []Event{{SessionID: s.ID, From: domain.StateProcessing, To: domain.StateFailed, Reason: reason}}
}

func (w *Workflow) closeStopLocked() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

// Retry re-enters CartReview from Failed with a fresh snapshot.
func (w *Workflow) Retry(ctx context.Context) error {
	w.mu.Lock()

	from := w.stateLocked()
	if from != domain.StateFailed {
		w.mu.Unlock()
		return &domain.TransitionError{From: from, Action: "retry"}
	}

	next := w.session.Clone()
	if err := w.review(ctx, &next); err != nil {
		w.mu.Unlock()
		return err
	}
	*w.session = next
	id := next.ID
	w.mu.Unlock()

	w.emit(Event{SessionID: id, From: from, To: domain.StateCartReview})
	return nil
}

// Close abandons the session and returns to Idle. It is refused while a
// payment is processing.
func (w *Workflow) Close() error {
	w.mu.Lock()

	from := w.stateLocked()
	if from == domain.StateProcessing {
		w.mu.Unlock()
		return domain.ErrCheckoutInProgress
	}
	if w.session == nil {
		w.mu.Unlock()
		return nil
	}

	id := w.session.ID
	w.store.UnbindSession(string(id))
	w.session = nil
	w.mu.Unlock()

	w.emit(Event{SessionID: id, From: from, To: domain.StateIdle})
	return nil
}

// Wait blocks until the current payment reaches Success or Failed, or ctx
// is done. Outside Processing it returns the session immediately.
func (w *Workflow) Wait(ctx context.Context) (domain.CheckoutSession, error) {
	w.mu.Lock()
	done := w.done
	processing := w.stateLocked() == domain.StateProcessing
	w.mu.Unlock()

	if processing {
		select {
		case <-done:
		case <-ctx.Done():
			return domain.CheckoutSession{}, ctx.Err()
		}
	}

	session, _ := w.Session()
	return session, nil
}

// AwaitingConfirmation reports whether the processing delay has passed and
// the session now waits for Confirm or Deny.
func (w *Workflow) AwaitingConfirmation() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stateLocked() == domain.StateProcessing && w.delayElapsed
}

// Drain waits for processing goroutines that have already been told to stop.
func (w *Workflow) Drain() {
	w.wg.Wait()
}

func sleep(d time.Duration, stop <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}

func contains(states []domain.CheckoutState, s domain.CheckoutState) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}
