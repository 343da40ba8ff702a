package cart_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/cart"
	"github.com/nikolayk812/storefront-cart/internal/catalog"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func TestNew(t *testing.T) {
	cat := catalog.NewMemory()

	tests := []struct {
		name      string
		ownerID   string
		mode      domain.PriceMode
		catalog   *catalog.Memory
		wantError string
	}{
		{name: "storefront: ok", ownerID: gofakeit.UUID(), mode: domain.PriceSnapshot, catalog: cat},
		{name: "pos: ok", ownerID: gofakeit.UUID(), mode: domain.PriceLive, catalog: cat},
		{name: "empty owner: error", ownerID: "", mode: domain.PriceSnapshot, catalog: cat, wantError: "ownerID is empty"},
		{name: "bad mode: error", ownerID: gofakeit.UUID(), mode: "weird", catalog: cat, wantError: `price mode "weird" is not valid`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cart.New(tt.ownerID, tt.mode, tt.catalog)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAddItem(t *testing.T) {
	products := catalog.Generate(2, 1)
	cat := catalog.NewMemory(products...)

	tests := []struct {
		name      string
		adds      []uuid.UUID
		delta     int
		wantQty   map[uuid.UUID]int
		wantError error
	}{
		{
			name:    "new item: quantity is delta",
			adds:    []uuid.UUID{products[0].ID},
			delta:   3,
			wantQty: map[uuid.UUID]int{products[0].ID: 3},
		},
		{
			name:    "repeated add increments instead of duplicating",
			adds:    []uuid.UUID{products[0].ID, products[1].ID, products[0].ID},
			delta:   1,
			wantQty: map[uuid.UUID]int{products[0].ID: 2, products[1].ID: 1},
		},
		{
			name:      "unknown product: not found",
			adds:      []uuid.UUID{uuid.New()},
			delta:     1,
			wantQty:   map[uuid.UUID]int{},
			wantError: domain.ErrProductNotFound,
		},
		{
			name:      "zero delta: invalid quantity",
			adds:      []uuid.UUID{products[0].ID},
			delta:     0,
			wantQty:   map[uuid.UUID]int{},
			wantError: domain.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, domain.PriceSnapshot, cat)

			var err error
			for _, id := range tt.adds {
				err = store.AddItem(t.Context(), id, tt.delta)
			}
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantQty, quantities(store.Items()))
		})
	}
}

func TestAddItemKeepsInsertionOrder(t *testing.T) {
	products := catalog.Generate(3, 2)
	store := newStore(t, domain.PriceSnapshot, catalog.NewMemory(products...))

	for _, i := range []int{2, 0, 1, 0} {
		require.NoError(t, store.AddItem(t.Context(), products[i].ID, 1))
	}

	items := store.Items()
	require.Len(t, items, 3)
	assert.Equal(t, products[2].ID, items[0].ProductID)
	assert.Equal(t, products[0].ID, items[1].ProductID)
	assert.Equal(t, products[1].ID, items[2].ProductID)
	assert.Equal(t, 4, store.Count())
}

func TestSetQuantity(t *testing.T) {
	products := catalog.Generate(2, 3)
	cat := catalog.NewMemory(products...)

	t.Run("overwrite quantity", func(t *testing.T) {
		store := newStore(t, domain.PriceSnapshot, cat)
		require.NoError(t, store.AddItem(t.Context(), products[0].ID, 1))

		require.NoError(t, store.SetQuantity(t.Context(), products[0].ID, 7))
		assert.Equal(t, map[uuid.UUID]int{products[0].ID: 7}, quantities(store.Items()))
	})

	t.Run("unknown product is a silent no-op", func(t *testing.T) {
		store := newStore(t, domain.PriceSnapshot, cat)
		require.NoError(t, store.AddItem(t.Context(), products[0].ID, 1))

		require.NoError(t, store.SetQuantity(t.Context(), products[1].ID, 5))
		assert.Equal(t, map[uuid.UUID]int{products[0].ID: 1}, quantities(store.Items()))
	})

	for _, q := range []int{0, -1} {
		t.Run("non-positive quantity equals remove", func(t *testing.T) {
			viaSet := newStore(t, domain.PriceSnapshot, cat)
			viaRemove := newStore(t, domain.PriceSnapshot, cat)
			for _, s := range []*cart.Store{viaSet, viaRemove} {
				require.NoError(t, s.AddItem(t.Context(), products[0].ID, 2))
				require.NoError(t, s.AddItem(t.Context(), products[1].ID, 1))
			}

			require.NoError(t, viaSet.SetQuantity(t.Context(), products[0].ID, q))
			require.NoError(t, viaRemove.RemoveItem(t.Context(), products[0].ID))

			assertSameItems(t, viaRemove.Items(), viaSet.Items())
		})
	}
}

func TestRemoveItemIdempotent(t *testing.T) {
	products := catalog.Generate(2, 4)
	cat := catalog.NewMemory(products...)

	once := newStore(t, domain.PriceSnapshot, cat)
	twice := newStore(t, domain.PriceSnapshot, cat)
	for _, s := range []*cart.Store{once, twice} {
		require.NoError(t, s.AddItem(t.Context(), products[0].ID, 1))
		require.NoError(t, s.AddItem(t.Context(), products[1].ID, 3))
	}

	require.NoError(t, once.RemoveItem(t.Context(), products[1].ID))
	require.NoError(t, twice.RemoveItem(t.Context(), products[1].ID))
	require.NoError(t, twice.RemoveItem(t.Context(), products[1].ID))

	assertSameItems(t, once.Items(), twice.Items())
}

func TestClear(t *testing.T) {
	products := catalog.Generate(3, 5)
	store := newStore(t, domain.PriceSnapshot, catalog.NewMemory(products...))
	for _, p := range products {
		require.NoError(t, store.AddItem(t.Context(), p.ID, 1))
	}

	require.NoError(t, store.Clear(t.Context()))
	assert.Empty(t, store.Items())
	assert.Zero(t, store.Count())
}

// Any sequence of add/remove/set keeps product IDs unique and quantities >= 1.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	products := catalog.Generate(6, 6)
	cat := catalog.NewMemory(products...)

	for run := range 25 {
		store := newStore(t, domain.PriceSnapshot, cat)

		for range 200 {
			p := products[gofakeit.IntRange(0, len(products)-1)].ID
			switch gofakeit.IntRange(0, 3) {
			case 0:
				require.NoError(t, store.AddItem(t.Context(), p, gofakeit.IntRange(1, 5)))
			case 1:
				require.NoError(t, store.RemoveItem(t.Context(), p))
			case 2:
				require.NoError(t, store.SetQuantity(t.Context(), p, gofakeit.IntRange(-3, 10)))
			case 3:
				err := store.AddItem(t.Context(), p, gofakeit.IntRange(-2, 0))
				require.ErrorIs(t, err, domain.ErrInvalidQuantity)
			}

			require.NoError(t, store.Cart().Validate(), "run %d", run)
		}
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	products := catalog.Generate(1, 8)
	store := newStore(t, domain.PriceSnapshot, catalog.NewMemory(products...))
	require.NoError(t, store.AddItem(t.Context(), products[0].ID, 1))

	items := store.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, store.Items()[0].Quantity)
}

func TestSnapshotPricing(t *testing.T) {
	products := catalog.Generate(2, 9)
	original := products[0].Price
	raised := domain.NewMoney(original.Amount+10_000, currency.IDR)

	t.Run("storefront keeps the agreed price", func(t *testing.T) {
		cat := catalog.NewMemory(products...)
		store := newStore(t, domain.PriceSnapshot, cat)
		require.NoError(t, store.AddItem(t.Context(), products[0].ID, 1))

		require.NoError(t, cat.UpdatePrice(products[0].ID, raised))

		snap, err := store.Snapshot(t.Context())
		require.NoError(t, err)
		assert.Equal(t, original.Amount, snap.Items[0].Price.Amount)
	})

	t.Run("pos reflects the current shelf price", func(t *testing.T) {
		cat := catalog.NewMemory(products...)
		store := newStore(t, domain.PriceLive, cat)
		require.NoError(t, store.AddItem(t.Context(), products[0].ID, 1))
		require.NoError(t, store.AddItem(t.Context(), products[1].ID, 2))

		assert.Zero(t, store.Items()[0].Price.Amount, "live carts store a marker only")

		require.NoError(t, cat.UpdatePrice(products[0].ID, raised))

		snap, err := store.Snapshot(t.Context())
		require.NoError(t, err)
		assert.Equal(t, raised.Amount, snap.Items[0].Price.Amount)
		assert.Equal(t, products[1].Price.Amount, snap.Items[1].Price.Amount)
	})

	t.Run("pos product removed from catalog", func(t *testing.T) {
		cat := catalog.NewMemory(products...)
		store := newStore(t, domain.PriceLive, cat)
		require.NoError(t, store.AddItem(t.Context(), products[0].ID, 1))

		cat.Remove(products[0].ID)

		_, err := store.Snapshot(t.Context())
		require.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestLockedCartRejectsMutations(t *testing.T) {
	products := catalog.Generate(2, 10)
	store := newStore(t, domain.PriceSnapshot, catalog.NewMemory(products...))
	require.NoError(t, store.AddItem(t.Context(), products[0].ID, 1))

	require.NoError(t, store.Lock())
	require.ErrorIs(t, store.Lock(), domain.ErrCartLocked)

	ctx := t.Context()
	assert.ErrorIs(t, store.AddItem(ctx, products[1].ID, 1), domain.ErrCartLocked)
	assert.ErrorIs(t, store.SetQuantity(ctx, products[0].ID, 4), domain.ErrCartLocked)
	assert.ErrorIs(t, store.SetQuantity(ctx, products[0].ID, 0), domain.ErrCartLocked)
	assert.ErrorIs(t, store.RemoveItem(ctx, products[0].ID), domain.ErrCartLocked)
	assert.ErrorIs(t, store.Clear(ctx), domain.ErrCartLocked)
	assert.Equal(t, map[uuid.UUID]int{products[0].ID: 1}, quantities(store.Items()))

	require.NoError(t, store.Release(ctx, false))
	assert.False(t, store.IsLocked())
	require.NoError(t, store.AddItem(ctx, products[1].ID, 1))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Lock())
	require.NoError(t, store.Release(ctx, true))
	assert.Empty(t, store.Items())
	assert.False(t, store.IsLocked())
}

func TestSubscribe(t *testing.T) {
	products := catalog.Generate(1, 11)
	store := newStore(t, domain.PriceSnapshot, catalog.NewMemory(products...))

	var events []cart.Event
	unsubscribe := store.Subscribe(func(e cart.Event) {
		events = append(events, e)
	})

	ctx := t.Context()
	require.NoError(t, store.AddItem(ctx, products[0].ID, 1))
	require.NoError(t, store.SetQuantity(ctx, products[0].ID, 3))
	require.NoError(t, store.SetQuantity(ctx, products[0].ID, 3))
	require.NoError(t, store.RemoveItem(ctx, products[0].ID))
	require.NoError(t, store.RemoveItem(ctx, products[0].ID))
	require.NoError(t, store.Clear(ctx))

	kinds := make([]cart.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []cart.EventKind{cart.EventItemAdded, cart.EventQuantitySet, cart.EventItemRemoved, cart.EventCleared}, kinds)
	assert.Equal(t, 3, events[1].Items[0].Quantity)

	unsubscribe()
	require.NoError(t, store.AddItem(ctx, products[0].ID, 1))
	assert.Len(t, events, 4)
}

func TestPersistenceRoundTrip(t *testing.T) {
	products := catalog.Generate(5, 12)
	cat := catalog.NewMemory(products...)

	for _, mode := range []domain.PriceMode{domain.PriceSnapshot, domain.PriceLive} {
		t.Run(string(mode), func(t *testing.T) {
			repo := memory.New()
			ownerID := gofakeit.UUID()

			store, err := cart.New(ownerID, mode, cat, cart.WithRepository(repo))
			require.NoError(t, err)
			for _, p := range products {
				require.NoError(t, store.AddItem(t.Context(), p.ID, gofakeit.IntRange(1, 9)))
			}
			require.NoError(t, store.RemoveItem(t.Context(), products[3].ID))
			require.NoError(t, store.SetQuantity(t.Context(), products[1].ID, 4))

			reloaded, err := cart.New(ownerID, mode, cat, cart.WithRepository(repo))
			require.NoError(t, err)
			require.NoError(t, reloaded.Load(t.Context()))

			assert.Equal(t, quantities(store.Items()), quantities(reloaded.Items()))
			assertSameItems(t, store.Items(), reloaded.Items())
		})
	}
}

func TestFailedSaveRollsBack(t *testing.T) {
	products := catalog.Generate(2, 13)
	cat := catalog.NewMemory(products...)

	tests := []struct {
		name   string
		mutate func(ctx context.Context, s *cart.Store) error
	}{
		{
			name: "add existing",
			mutate: func(ctx context.Context, s *cart.Store) error {
				return s.AddItem(ctx, products[0].ID, 1)
			},
		},
		{
			name: "add new",
			mutate: func(ctx context.Context, s *cart.Store) error {
				return s.AddItem(ctx, products[1].ID, 1)
			},
		},
		{
			name: "set quantity",
			mutate: func(ctx context.Context, s *cart.Store) error {
				return s.SetQuantity(ctx, products[0].ID, 7)
			},
		},
		{
			name: "remove",
			mutate: func(ctx context.Context, s *cart.Store) error {
				return s.RemoveItem(ctx, products[0].ID)
			},
		},
		{
			name: "clear",
			mutate: func(ctx context.Context, s *cart.Store) error {
				return s.Clear(ctx)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &failingRepo{Repository: memory.New()}

			store, err := cart.New(gofakeit.UUID(), domain.PriceSnapshot, cat, cart.WithRepository(repo))
			require.NoError(t, err)
			require.NoError(t, store.AddItem(t.Context(), products[0].ID, 1))

			repo.fail = true
			err = tt.mutate(t.Context(), store)
			require.ErrorIs(t, err, errSave)

			assert.Equal(t, map[uuid.UUID]int{products[0].ID: 1}, quantities(store.Items()))
		})
	}
}

func TestMutationsPersistIncrementally(t *testing.T) {
	products := catalog.Generate(2, 14)
	repo := &recordingRepo{Repository: memory.New()}
	ctx := t.Context()

	store, err := cart.New(gofakeit.UUID(), domain.PriceSnapshot, catalog.NewMemory(products...), cart.WithRepository(repo))
	require.NoError(t, err)

	require.NoError(t, store.AddItem(ctx, products[0].ID, 1))
	require.NoError(t, store.AddItem(ctx, products[1].ID, 2))
	require.NoError(t, store.AddItem(ctx, products[0].ID, 1))
	require.NoError(t, store.SetQuantity(ctx, products[1].ID, 5))
	require.NoError(t, store.SetQuantity(ctx, products[1].ID, 5))
	require.NoError(t, store.RemoveItem(ctx, products[0].ID))
	require.NoError(t, store.RemoveItem(ctx, products[0].ID))

	assert.Equal(t, []string{"AddItem", "AddItem", "AddItem", "AddItem", "DeleteItem"}, repo.calls)

	stored, err := repo.GetCart(ctx, domain.CartKey{Mode: domain.PriceSnapshot, OwnerID: store.OwnerID()})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{products[1].ID: 5}, quantities(stored.Items))

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, "SaveCart", repo.calls[len(repo.calls)-1])
}

func TestQuantityBounds(t *testing.T) {
	products := catalog.Generate(1, 15)
	cat := catalog.NewMemory(products...)
	id := products[0].ID

	t.Run("add past the bound", func(t *testing.T) {
		store := newStore(t, domain.PriceSnapshot, cat)
		require.NoError(t, store.AddItem(t.Context(), id, domain.MaxQuantity))

		err := store.AddItem(t.Context(), id, 1)
		require.ErrorIs(t, err, domain.ErrInvalidQuantity)
		assert.Equal(t, map[uuid.UUID]int{id: domain.MaxQuantity}, quantities(store.Items()))
	})

	t.Run("huge delta", func(t *testing.T) {
		store := newStore(t, domain.PriceSnapshot, cat)
		require.NoError(t, store.AddItem(t.Context(), id, 1))

		err := store.AddItem(t.Context(), id, math.MaxInt)
		require.ErrorIs(t, err, domain.ErrInvalidQuantity)
		assert.Equal(t, map[uuid.UUID]int{id: 1}, quantities(store.Items()))
	})

	t.Run("set quantity above the bound", func(t *testing.T) {
		store := newStore(t, domain.PriceSnapshot, cat)
		require.NoError(t, store.AddItem(t.Context(), id, 1))

		err := store.SetQuantity(t.Context(), id, domain.MaxQuantity+1)
		require.ErrorIs(t, err, domain.ErrInvalidQuantity)
		require.NoError(t, store.SetQuantity(t.Context(), id, domain.MaxQuantity))
		assert.Equal(t, map[uuid.UUID]int{id: domain.MaxQuantity}, quantities(store.Items()))
	})
}

func TestVariantsPersistIndependently(t *testing.T) {
	products := catalog.Generate(2, 16)
	cat := catalog.NewMemory(products...)
	repo := memory.New()
	ctx := t.Context()

	storefront, err := cart.New("alice", domain.PriceSnapshot, cat, cart.WithRepository(repo))
	require.NoError(t, err)
	require.NoError(t, storefront.AddItem(ctx, products[0].ID, 2))
	want := storefront.Items()

	pos, err := cart.New("alice", domain.PriceLive, cat, cart.WithRepository(repo))
	require.NoError(t, err)
	require.NoError(t, pos.Load(ctx))
	assert.Zero(t, pos.Len())
	require.NoError(t, pos.AddItem(ctx, products[1].ID, 1))

	reloaded, err := cart.New("alice", domain.PriceSnapshot, cat, cart.WithRepository(repo))
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))
	assertSameItems(t, want, reloaded.Items())

	snapshot, err := reloaded.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, products[0].Price.Amount*2, snapshot.Items[0].LineTotal().Amount)
}

func TestLoadRejectsForeignMode(t *testing.T) {
	products := catalog.Generate(1, 17)
	repo := &foreignModeRepo{Repository: memory.New()}

	store, err := cart.New("alice", domain.PriceSnapshot, catalog.NewMemory(products...), cart.WithRepository(repo))
	require.NoError(t, err)

	err = store.Load(t.Context())
	require.EqualError(t, err, `stored cart[snapshot/alice] has price mode "live"`)
	assert.Zero(t, store.Len())
}

var errSave = errors.New("disk full")

type failingRepo struct {
	*memory.Repository
	fail bool
}

func (r *failingRepo) SaveCart(ctx context.Context, c domain.Cart) error {
	if r.fail {
		return errSave
	}
	return r.Repository.SaveCart(ctx, c)
}

func (r *failingRepo) AddItem(ctx context.Context, key domain.CartKey, item domain.CartItem) error {
	if r.fail {
		return errSave
	}
	return r.Repository.AddItem(ctx, key, item)
}

func (r *failingRepo) DeleteItem(ctx context.Context, key domain.CartKey, productID uuid.UUID) (bool, error) {
	if r.fail {
		return false, errSave
	}
	return r.Repository.DeleteItem(ctx, key, productID)
}

type recordingRepo struct {
	*memory.Repository
	calls []string
}

func (r *recordingRepo) SaveCart(ctx context.Context, c domain.Cart) error {
	r.calls = append(r.calls, "SaveCart")
	return r.Repository.SaveCart(ctx, c)
}

func (r *recordingRepo) AddItem(ctx context.Context, key domain.CartKey, item domain.CartItem) error {
	r.calls = append(r.calls, "AddItem")
	return r.Repository.AddItem(ctx, key, item)
}

func (r *recordingRepo) DeleteItem(ctx context.Context, key domain.CartKey, productID uuid.UUID) (bool, error) {
	r.calls = append(r.calls, "DeleteItem")
	return r.Repository.DeleteItem(ctx, key, productID)
}

// foreignModeRepo answers every lookup with a live cart.
type foreignModeRepo struct {
	*memory.Repository
}

func (r *foreignModeRepo) GetCart(_ context.Context, key domain.CartKey) (domain.Cart, error) {
	return domain.Cart{OwnerID: key.OwnerID, Mode: domain.PriceLive}, nil
}

func newStore(t *testing.T, mode domain.PriceMode, cat *catalog.Memory) *cart.Store {
	t.Helper()

	store, err := cart.New(gofakeit.UUID(), mode, cat)
	require.NoError(t, err)
	return store
}

func quantities(items []domain.CartItem) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		out[item.ProductID] = item.Quantity
	}
	return out
}

func assertSameItems(t *testing.T, expected, actual []domain.CartItem) {
	t.Helper()

	currencyComparer := cmp.Comparer(func(x, y currency.Unit) bool {
		return x.String() == y.String()
	})

	opts := cmp.Options{
		cmpopts.IgnoreFields(domain.CartItem{}, "CreatedAt"),
		cmpopts.EquateEmpty(),
		currencyComparer,
	}

	diff := cmp.Diff(expected, actual, opts)
	assert.Empty(t, diff)
}
