package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JAAFAR1996/fish-web-sub001/internal/catalog"
	"github.com/JAAFAR1996/fish-web-sub001/internal/pricing"
	"github.com/JAAFAR1996/fish-web-sub001/internal/stock"
)

var ErrProductNotFound = errors.New("product not found")

// Service rekonsiliasi cart: quantity map yang mutable dijaga konsisten
// dengan output pricing dan kapasitas stok. Update optimistic boleh —
// reload berikutnya dari store yang jadi kebenaran.
type Service struct {
	Store   Store
	Catalog catalog.Store

	MaxQtyPerLine   int
	FreeShippingMin int64
	FlatShippingFee int64
}

// AddItem: finalQty = min(existing+requested, stock, cap). Yang ditulis cuma
// delta yang benar-benar ke-apply; applied 0 berarti sudah mentok dan caller
// dapat error, bukan silent drop.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*AddResult, error) {
	if qty <= 0 {
		return nil, stock.ErrInvalidQuantity
	}
	p, fs, price, err := s.resolve(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.Store.ActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.Store.ItemQuantity(ctx, c.ID, productID)
	if err != nil {
		return nil, err
	}

	capQty := p.Stock
	if fs != nil && fs.Remaining() < capQty {
		capQty = fs.Remaining()
	}
	if s.MaxQtyPerLine > 0 && s.MaxQtyPerLine < capQty {
		capQty = s.MaxQtyPerLine
	}

	final := existing + qty
	if final > capQty {
		final = capQty
	}
	applied := final - existing
	if applied <= 0 {
		return nil, stock.ErrQuantityExceeded
	}

	if err := s.Store.UpsertItem(ctx, c.ID, productID, final, price); err != nil {
		return nil, err
	}
	return &AddResult{
		ProductID:     productID,
		Requested:     qty,
		Applied:       applied,
		FinalQuantity: final,
		UnitPrice:     price,
		Clamped:       applied < qty,
	}, nil
}

// UpdateQuantity: qty <= 0 sama dengan remove.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) error {
	c, err := s.Store.ActiveCart(ctx, userID)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return s.Store.DeleteItem(ctx, c.ID, productID)
	}
	p, _, price, err := s.resolve(ctx, productID)
	if err != nil {
		return err
	}
	if err := stock.ValidateQuantity(qty, p.Stock, s.MaxQtyPerLine); err != nil {
		return err
	}
	return s.Store.UpsertItem(ctx, c.ID, productID, qty, price)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) error {
	c, err := s.Store.ActiveCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.Store.DeleteItem(ctx, c.ID, productID)
}

func (s *Service) SaveForLater(ctx context.Context, userID, productID string, saved bool) error {
	c, err := s.Store.ActiveCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.Store.SetSavedForLater(ctx, c.ID, productID, saved)
}

// View: baca cart dengan harga yang di-resolve ulang. Snapshot yang basi
// di-flag dan disinkronkan async — read tidak nunggu write-nya.
func (s *Service) View(ctx context.Context, userID string) (*Summary, error) {
	c, err := s.Store.ActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.Store.Items(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var lines []Line
	type staleItem struct {
		productID string
		price     int64
	}
	var stale []staleItem

	for _, it := range items {
		p, err := s.Catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			// produk sudah dihapus dari katalog; line di-skip dari view
			continue
		}
		fs, err := s.Catalog.GetActiveFlashSale(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		price := pricing.EffectivePrice(*p, fs, now)
		changed := price != it.UnitPrice
		if changed {
			stale = append(stale, staleItem{productID: it.ProductID, price: price})
		}
		lines = append(lines, Line{
			ProductID:     it.ProductID,
			Name:          p.Name,
			Quantity:      it.Quantity,
			UnitPrice:     price,
			LineTotal:     int64(it.Quantity) * price,
			SavedForLater: it.SavedForLater,
			LowStock:      p.LowStock(),
			PriceChanged:  changed,
		})
	}

	if len(stale) > 0 {
		cartID := c.ID
		go func() {
			sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			g, sctx := errgroup.WithContext(sctx)
			g.SetLimit(4)
			for _, st := range stale {
				st := st
				g.Go(func() error {
					return s.Store.SyncUnitPrice(sctx, cartID, st.productID, st.price)
				})
			}
			if err := g.Wait(); err != nil {
				log.Printf("cart %s price sync: %v", cartID, err)
			}
		}()
	}

	return &Summary{CartID: c.ID, Lines: lines, Totals: s.ComputeTotals(lines)}, nil
}

// ComputeTotals: subtotal = sum qty*price untuk line biasa; saved-for-later
// tidak ikut. Ongkir flat, gratis di atas threshold.
func (s *Service) ComputeTotals(lines []Line) Totals {
	var sub int64
	for _, l := range lines {
		if l.SavedForLater {
			continue
		}
		sub += l.LineTotal
	}
	shipping := s.FlatShippingFee
	free := sub >= s.FreeShippingMin
	if free || sub == 0 {
		shipping = 0
	}
	return Totals{Subtotal: sub, Shipping: shipping, Total: sub + shipping, FreeShipping: free}
}

func (s *Service) resolve(ctx context.Context, productID string) (*catalog.Product, *catalog.FlashSale, int64, error) {
	p, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, 0, err
	}
	if p == nil {
		return nil, nil, 0, ErrProductNotFound
	}
	fs, err := s.Catalog.GetActiveFlashSale(ctx, productID)
	if err != nil {
		return nil, nil, 0, err
	}
	return p, fs, pricing.EffectivePrice(*p, fs, time.Now().UTC()), nil
}
