// Package guest: representasi cart/wishlist yang dipegang session anonim,
// hidup di Redis di luar store relasional. Ephemeral — di-merge ke cart
// account-bound sekali pas login lalu dibuang.
package guest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/JAAFAR1996/fish-web-sub001/internal/redisx"
)

type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// State: yang dibutuhkan merge orchestrator dari store guest.
type State interface {
	CartLines(ctx context.Context, sessionID string) ([]Line, error)
	RemoveCartLine(ctx context.Context, sessionID, productID string) error
	ClearCart(ctx context.Context, sessionID string) error
	Wishlist(ctx context.Context, sessionID string) ([]string, error)
	RemoveWishlist(ctx context.Context, sessionID, productID string) error
	ClearWishlist(ctx context.Context, sessionID string) error
}

type Store struct{ R *redis.Client }

var _ State = (*Store)(nil)

func cartKey(sessionID string) string     { return fmt.Sprintf(redisx.KeyGuestCart, sessionID) }
func wishlistKey(sessionID string) string { return fmt.Sprintf(redisx.KeyGuestWishlist, sessionID) }

func (s *Store) AddCartLine(ctx context.Context, sessionID, productID string, qty int) (int, error) {
	key := cartKey(sessionID)
	n, err := s.R.HIncrBy(ctx, key, productID, int64(qty)).Result()
	if err != nil {
		return 0, err
	}
	_ = s.R.Expire(ctx, key, redisx.TTLGuest).Err()
	return int(n), nil
}

func (s *Store) SetCartLine(ctx context.Context, sessionID, productID string, qty int) error {
	if qty <= 0 {
		return s.RemoveCartLine(ctx, sessionID, productID)
	}
	key := cartKey(sessionID)
	if err := s.R.HSet(ctx, key, productID, qty).Err(); err != nil {
		return err
	}
	return s.R.Expire(ctx, key, redisx.TTLGuest).Err()
}

func (s *Store) CartLines(ctx context.Context, sessionID string) ([]Line, error) {
	m, err := s.R.HGetAll(ctx, cartKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(m))
	for pid, v := range m {
		q, err := strconv.Atoi(v)
		if err != nil || q <= 0 {
			continue
		}
		out = append(out, Line{ProductID: pid, Quantity: q})
	}
	return out, nil
}

func (s *Store) RemoveCartLine(ctx context.Context, sessionID, productID string) error {
	return s.R.HDel(ctx, cartKey(sessionID), productID).Err()
}

func (s *Store) ClearCart(ctx context.Context, sessionID string) error {
	return s.R.Del(ctx, cartKey(sessionID)).Err()
}

func (s *Store) AddWishlist(ctx context.Context, sessionID, productID string) error {
	key := wishlistKey(sessionID)
	if err := s.R.SAdd(ctx, key, productID).Err(); err != nil {
		return err
	}
	return s.R.Expire(ctx, key, redisx.TTLGuest).Err()
}

func (s *Store) Wishlist(ctx context.Context, sessionID string) ([]string, error) {
	return s.R.SMembers(ctx, wishlistKey(sessionID)).Result()
}

func (s *Store) RemoveWishlist(ctx context.Context, sessionID, productID string) error {
	return s.R.SRem(ctx, wishlistKey(sessionID), productID).Err()
}

func (s *Store) ClearWishlist(ctx context.Context, sessionID string) error {
	return s.R.Del(ctx, wishlistKey(sessionID)).Err()
}
