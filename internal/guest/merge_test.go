package guest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/JAAFAR1996/fish-web-sub001/internal/cart"
	"github.com/JAAFAR1996/fish-web-sub001/internal/stock"
)

type memGuest struct {
	mu          sync.Mutex
	cart        map[string]int
	wishlist    map[string]bool
	wishlistErr error
}

func newMemGuest() *memGuest {
	return &memGuest{cart: map[string]int{}, wishlist: map[string]bool{}}
}

func (g *memGuest) CartLines(ctx context.Context, sessionID string) ([]Line, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Line, 0, len(g.cart))
	for pid, q := range g.cart {
		out = append(out, Line{ProductID: pid, Quantity: q})
	}
	return out, nil
}

func (g *memGuest) RemoveCartLine(ctx context.Context, sessionID, productID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.cart, productID)
	return nil
}

func (g *memGuest) ClearCart(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cart = map[string]int{}
	return nil
}

func (g *memGuest) Wishlist(ctx context.Context, sessionID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.wishlistErr != nil {
		return nil, g.wishlistErr
	}
	out := make([]string, 0, len(g.wishlist))
	for pid := range g.wishlist {
		out = append(out, pid)
	}
	return out, nil
}

func (g *memGuest) RemoveWishlist(ctx context.Context, sessionID, productID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.wishlist, productID)
	return nil
}

func (g *memGuest) ClearWishlist(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wishlist = map[string]bool{}
	return nil
}

// memCartWriter niru write path rekonsiliasi: baca qty sekarang, clamp ke
// stok & cap, tulis delta yang ke-apply.
type memCartWriter struct {
	qty     map[string]int
	stockBy map[string]int
	maxQty  int
	failOn  map[string]error
}

func newMemCartWriter(stockBy map[string]int) *memCartWriter {
	return &memCartWriter{qty: map[string]int{}, stockBy: stockBy, maxQty: 10, failOn: map[string]error{}}
}

func (w *memCartWriter) AddItem(ctx context.Context, userID, productID string, qty int) (*cart.AddResult, error) {
	if err := w.failOn[productID]; err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, stock.ErrInvalidQuantity
	}
	st, ok := w.stockBy[productID]
	if !ok {
		return nil, cart.ErrProductNotFound
	}
	capQty := st
	if w.maxQty < capQty {
		capQty = w.maxQty
	}
	existing := w.qty[productID]
	final := existing + qty
	if final > capQty {
		final = capQty
	}
	applied := final - existing
	if applied <= 0 {
		return nil, stock.ErrQuantityExceeded
	}
	w.qty[productID] = final
	return &cart.AddResult{
		ProductID: productID, Requested: qty, Applied: applied,
		FinalQuantity: final, Clamped: applied < qty,
	}, nil
}

type memWishlistWriter struct{ set map[string]bool }

func (w *memWishlistWriter) Add(ctx context.Context, userID, productID string) error {
	if w.set == nil {
		w.set = map[string]bool{}
	}
	w.set[productID] = true // sudah ada = no-op
	return nil
}

func newMerger(g *memGuest, cw *memCartWriter) (*Merger, *memWishlistWriter) {
	wl := &memWishlistWriter{}
	return &Merger{Guest: g, Cart: cw, Wishlist: wl}, wl
}

// Guest bawa {A:2}, account sudah punya {A:1}: hasilnya 3 — additive,
// bukan overwrite.
func TestMergeIsAdditive(t *testing.T) {
	g := newMemGuest()
	g.cart["A"] = 2
	cw := newMemCartWriter(map[string]int{"A": 100})
	cw.qty["A"] = 1
	m, _ := newMerger(g, cw)

	res, err := m.OnIdentityTransition(context.Background(), "sess", "u1")
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, 3, cw.qty["A"])
	assert.Empty(t, g.cart, "guest store dibersihkan setelah merge sukses")
}

// Setelah guest store bersih, merge ulang harus no-op.
func TestMergeIdempotentAfterClear(t *testing.T) {
	g := newMemGuest()
	g.cart["A"] = 2
	cw := newMemCartWriter(map[string]int{"A": 100})
	m, _ := newMerger(g, cw)
	ctx := context.Background()

	_, err := m.OnIdentityTransition(ctx, "sess", "u1")
	require.NoError(t, err)
	require.Equal(t, 2, cw.qty["A"])

	res, err := m.OnIdentityTransition(ctx, "sess", "u1")
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.CartLines)
	assert.Equal(t, 2, cw.qty["A"], "retry tidak nambah lagi")
}

// Gagal transient di tengah loop: line yang sudah masuk dibuang dari store
// guest, line yang gagal tinggal — retry berikutnya cuma ngulang yang gagal,
// tanpa double-add.
func TestMergePartialFailureThenRetry(t *testing.T) {
	g := newMemGuest()
	g.cart["A"] = 2
	g.cart["B"] = 1
	cw := newMemCartWriter(map[string]int{"A": 100, "B": 100})
	cw.failOn["B"] = errors.New("store timeout")
	m, _ := newMerger(g, cw)
	ctx := context.Background()

	res, err := m.OnIdentityTransition(ctx, "sess", "u1")
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, 2, cw.qty["A"])
	assert.Equal(t, 0, cw.qty["B"])
	assert.NotContains(t, g.cart, "A")
	assert.Contains(t, g.cart, "B")

	// retry di login berikutnya, store sudah sehat
	delete(cw.failOn, "B")
	res, err = m.OnIdentityTransition(ctx, "sess", "u1")
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, 2, cw.qty["A"], "A tidak ke-merge dua kali")
	assert.Equal(t, 1, cw.qty["B"])
	assert.Empty(t, g.cart)
}

// Line yang mentok cap account dianggap selesai (nambah lagi tidak akan
// pernah berhasil), bukan bahan retry.
func TestMergeCapExhaustedLineIsFinal(t *testing.T) {
	g := newMemGuest()
	g.cart["A"] = 3
	cw := newMemCartWriter(map[string]int{"A": 100})
	cw.qty["A"] = 10 // sudah di cap
	m, _ := newMerger(g, cw)

	res, err := m.OnIdentityTransition(context.Background(), "sess", "u1")
	require.NoError(t, err)
	assert.True(t, res.Complete)
	require.Len(t, res.CartLines, 1)
	assert.True(t, res.CartLines[0].Merged)
	assert.Equal(t, 0, res.CartLines[0].Applied)
	assert.Equal(t, 10, cw.qty["A"])
	assert.Empty(t, g.cart)
}

func TestMergeWishlistSetSemantics(t *testing.T) {
	g := newMemGuest()
	g.wishlist["A"] = true
	g.wishlist["B"] = true
	cw := newMemCartWriter(map[string]int{})
	m, wl := newMerger(g, cw)
	wl.set = map[string]bool{"A": true} // A sudah di wishlist account

	res, err := m.OnIdentityTransition(context.Background(), "sess", "u1")
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Len(t, wl.set, 2)
	assert.ElementsMatch(t, []string{"A", "B"}, res.WishlistAdded)
	assert.Empty(t, g.wishlist)
}

// Baca wishlist gagal setelah cart ke-merge: outcome per-line cart tetap
// dilaporkan (incomplete), bukan hilang di balik error.
func TestMergeWishlistReadFailureKeepsCartResults(t *testing.T) {
	g := newMemGuest()
	g.cart["A"] = 2
	g.wishlistErr = errors.New("redis timeout")
	cw := newMemCartWriter(map[string]int{"A": 100})
	m, _ := newMerger(g, cw)

	res, err := m.OnIdentityTransition(context.Background(), "sess", "u1")
	require.NoError(t, err)
	assert.False(t, res.Complete)
	require.Len(t, res.CartLines, 1)
	assert.True(t, res.CartLines[0].Merged)
	assert.Equal(t, 2, cw.qty["A"])
}

// Properti: untuk satu produk, hasil akhir account selalu
// max(existing, min(existing+guest, stock, cap)), dan store guest bersih.
func TestMergeClampProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		existing := rapid.IntRange(0, 12).Draw(rt, "existing")
		guestQty := rapid.IntRange(1, 12).Draw(rt, "guestQty")
		stockN := rapid.IntRange(0, 15).Draw(rt, "stock")

		g := newMemGuest()
		g.cart["A"] = guestQty
		cw := newMemCartWriter(map[string]int{"A": stockN})
		if existing > 0 {
			cw.qty["A"] = existing
		}
		m, _ := newMerger(g, cw)

		res, err := m.OnIdentityTransition(context.Background(), "sess", "u1")
		if err != nil {
			rt.Fatalf("merge: %v", err)
		}
		if !res.Complete {
			rt.Fatalf("merge should complete, got %+v", res)
		}

		want := existing + guestQty
		if stockN < want {
			want = stockN
		}
		if cw.maxQty < want {
			want = cw.maxQty
		}
		if want < existing {
			want = existing // clamp tidak pernah ngurangin isi account
		}
		if got := cw.qty["A"]; got != want {
			rt.Fatalf("qty=%d want=%d (existing=%d guest=%d stock=%d)", got, want, existing, guestQty, stockN)
		}
		if len(g.cart) != 0 {
			rt.Fatalf("guest cart not cleared: %+v", g.cart)
		}
	})
}
