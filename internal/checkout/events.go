package checkout

import "github.com/nikolayk812/storefront-cart/internal/domain"

// Event is a state change of the checkout session.
type Event struct {
	SessionID domain.SessionID
	From      domain.CheckoutState
	To        domain.CheckoutState
	// ReceiptID is set on the transition into StateSuccess.
	ReceiptID domain.ReceiptID
	// Reason is set on the transition into StateFailed and when Submit
	// sends a changed cart back to review.
	Reason string
}

type observer struct {
	id int
	fn func(Event)
}

// Subscribe registers fn for every state change. Callbacks run after the
// workflow mutex is released, on the goroutine that caused the change; the
// Processing -> Success transition of non-QRIS payments is delivered from
// the processing goroutine. The returned func removes the subscription.
func (w *Workflow) Subscribe(fn func(Event)) func() {
	w.obsMu.Lock()
	defer w.obsMu.Unlock()

	w.nextObsID++
	id := w.nextObsID
	w.observers = append(w.observers, observer{id: id, fn: fn})

	return func() {
		w.obsMu.Lock()
		defer w.obsMu.Unlock()

		for i, o := range w.observers {
			if o.id == id {
				w.observers = append(w.observers[:i], w.observers[i+1:]...)
				return
			}
		}
	}
}

func (w *Workflow) emit(events ...Event) {
	if len(events) == 0 {
		return
	}

	w.obsMu.Lock()
	observers := make([]observer, len(w.observers))
	copy(observers, w.observers)
	w.obsMu.Unlock()

	for _, e := range events {
		for _, o := range observers {
			o.fn(e)
		}
	}
}
