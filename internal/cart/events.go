package cart

import (
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

type EventKind string

const (
	EventItemAdded   EventKind = "item_added"
	EventQuantitySet EventKind = "quantity_set"
	EventItemRemoved EventKind = "item_removed"
	EventCleared     EventKind = "cleared"
	EventLoaded      EventKind = "loaded"
)

// Event is delivered to subscribers after a mutation has been applied.
// Items is the cart content after the mutation and belongs to the receiver.
type Event struct {
	OwnerID   string
	Kind      EventKind
	ProductID uuid.UUID
	Items     []domain.CartItem
}

// Subscribe registers fn for every cart change. Callbacks run synchronously
// on the mutating goroutine, in subscription order, after the store mutex
// has been released. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()

		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(kind EventKind, productID uuid.UUID) {
	s.obsMu.Lock()
	observers := make([]observer, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()

	if len(observers) == 0 {
		return
	}

	for _, o := range observers {
		o.fn(Event{
			OwnerID:   s.ownerID,
			Kind:      kind,
			ProductID: productID,
			Items:     s.Items(),
		})
	}
}
