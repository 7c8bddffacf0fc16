package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop/internal/apperr"
	"shop/internal/domain/model"
	"shop/internal/infra/cache"
	repo "shop/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CartUsecase は /cart の業務ロジックです。
// 合計金額は再集計せず、各操作が自分の数量差分からatomicに増減します。
// そこが崩れるとカートの不変条件（total == Σ qty×price）が並行更新で壊れます。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	cache        cache.Cache
	logger       *zap.Logger
	sfg          singleflight.Group // 同一カートへのキャッシュミスをまとめる
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	cartCache cache.Cache,
	logger *zap.Logger,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		cache:        cartCache,
		logger:       logger,
	}
}

type CartItemResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

// Totalはcarts.total_price（キャッシュ済み集計値）をそのまま返す。
type CartResponse struct {
	ID     int64              `json:"id"`
	UserID int64              `json:"user_id"`
	Items  []CartItemResponse `json:"items"`
	Total  int64              `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateQuantityInput struct {
	Amount    int64
	Increment bool
}

// AddToCart はカートに追加（同一商品は数量加算）。カートが無ければ作る。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, apperr.Authorization("unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, apperr.Validation("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, apperr.Validation("invalid quantity")
	}

	//商品チェック（公開のみ）。価格は呼び出し時点のスナップショット。
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return CartResponse{}, fmt.Errorf("find product: %w", err)
	}
	if !p.IsActive {
		return CartResponse{}, apperr.NotFound("product not found")
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, fmt.Errorf("get or create cart: %w", err)
	}

	//upsertで同一商品は加算。増分はどちらの分岐でも in.Quantity なので
	//合計への差分も in.Quantity × price で一定。
	if err := u.cartItemRepo.UpsertAddQuantity(ctx, cart.ID, in.ProductID, in.Quantity); err != nil {
		return CartResponse{}, fmt.Errorf("upsert cart item: %w", err)
	}
	if err := u.cartRepo.AddTotalPrice(ctx, cart.ID, in.Quantity*p.Price); err != nil {
		return CartResponse{}, fmt.Errorf("add total price: %w", err)
	}

	u.invalidateCache(cart.ID)
	return u.buildCartResponse(ctx, cart.ID)
}

// UpdateQuantity は明細の数量を増減する。
// 減算で現在数量以上を指定されたら、明細ごと削除に切り替える（数量0は存在させない）。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, userID int64, cartID int64, productID int64, in UpdateQuantityInput) (CartResponse, error) {
	if in.Amount < 1 {
		return CartResponse{}, apperr.Validation("invalid amount")
	}
	if productID <= 0 {
		return CartResponse{}, apperr.Validation("invalid product_id")
	}

	cart, err := u.loadOwnedCart(ctx, userID, cartID)
	if err != nil {
		return CartResponse{}, err
	}

	item, err := u.cartItemRepo.FindByCartAndProduct(ctx, cartID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, apperr.NotFound("product not in cart")
	}
	if err != nil {
		return CartResponse{}, fmt.Errorf("find cart item: %w", err)
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return CartResponse{}, fmt.Errorf("find product: %w", err)
	}

	if in.Increment {
		ok, err := u.cartItemRepo.AddQuantity(ctx, cartID, productID, in.Amount)
		if err != nil {
			return CartResponse{}, fmt.Errorf("add quantity: %w", err)
		}
		if !ok {
			//見えていた明細が並行で消えた
			return CartResponse{}, apperr.Consistency("cart item was removed concurrently")
		}
		if err := u.cartRepo.AddTotalPrice(ctx, cartID, in.Amount*p.Price); err != nil {
			return CartResponse{}, fmt.Errorf("add total price: %w", err)
		}

		u.invalidateCache(cartID)
		return u.buildCartResponse(ctx, cartID)
	}

	//減算。現在数量以上なら削除へ。
	if in.Amount >= item.Quantity {
		if err := u.removeItem(ctx, cart.ID, productID, p.Price, true); err != nil {
			return CartResponse{}, err
		}
		u.invalidateCache(cartID)
		return u.buildCartResponse(ctx, cartID)
	}

	//quantity > amount のガード付き減算。ガードに外れたら並行で減っていたので削除に切替。
	ok, err := u.cartItemRepo.DecrementQuantityIfAbove(ctx, cartID, productID, in.Amount)
	if err != nil {
		return CartResponse{}, fmt.Errorf("decrement quantity: %w", err)
	}
	if !ok {
		if err := u.removeItem(ctx, cart.ID, productID, p.Price, true); err != nil {
			return CartResponse{}, err
		}
		u.invalidateCache(cartID)
		return u.buildCartResponse(ctx, cartID)
	}

	if err := u.cartRepo.AddTotalPrice(ctx, cartID, -in.Amount*p.Price); err != nil {
		return CartResponse{}, fmt.Errorf("add total price: %w", err)
	}

	u.invalidateCache(cartID)
	return u.buildCartResponse(ctx, cartID)
}

// RemoveItem は明細を削除し、合計を quantity×price だけ減らす。
func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, cartID int64, productID int64) (CartResponse, error) {
	if productID <= 0 {
		return CartResponse{}, apperr.Validation("invalid product_id")
	}

	cart, err := u.loadOwnedCart(ctx, userID, cartID)
	if err != nil {
		return CartResponse{}, err
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return CartResponse{}, fmt.Errorf("find product: %w", err)
	}

	if err := u.removeItem(ctx, cart.ID, productID, p.Price, false); err != nil {
		return CartResponse{}, err
	}

	u.invalidateCache(cartID)
	return u.buildCartResponse(ctx, cartID)
}

// seenConcurrently: 直前まで明細が見えていた文脈か（消えていたときの種別を変える）
func (u *CartUsecase) removeItem(ctx context.Context, cartID int64, productID int64, price int64, seenConcurrently bool) error {
	qty, err := u.cartItemRepo.DeleteReturningQuantity(ctx, cartID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		if seenConcurrently {
			return apperr.Consistency("cart item was removed concurrently")
		}
		return apperr.NotFound("product not in cart")
	}
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	//削除時点の数量で合計を減らす
	if err := u.cartRepo.AddTotalPrice(ctx, cartID, -qty*price); err != nil {
		return fmt.Errorf("add total price: %w", err)
	}
	return nil
}

// GetCart はカートを明細つきで返す（所有チェックあり）。
// 読み取りはキャッシュ経由。同一カートへの同時ミスはsingleflightでまとめる。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64, cartID int64) (CartResponse, error) {
	if cartID <= 0 {
		return CartResponse{}, apperr.Validation("invalid cart_id")
	}

	v, err, _ := u.sfg.Do(cartCacheKey(cartID), func() (interface{}, error) {
		data, cacheErr := u.cache.Get(ctx, cartCacheKey(cartID))
		if cacheErr == nil {
			var resp CartResponse
			if err := json.Unmarshal(data, &resp); err == nil {
				return resp, nil
			}
			//壊れたエントリは作り直す
		} else if !errors.Is(cacheErr, cache.ErrCacheMiss) {
			u.logger.Warn("cart cache get failed", zap.Int64("cart_id", cartID), zap.Error(cacheErr))
		}

		resp, err := u.buildCartResponse(ctx, cartID)
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			data, err := json.Marshal(resp)
			if err != nil {
				return
			}
			if err := u.cache.Set(setCtx, cartCacheKey(cartID), data); err != nil {
				u.logger.Warn("cart cache set failed", zap.Int64("cart_id", cartID), zap.Error(err))
			}
		}()

		return resp, nil
	})
	if err != nil {
		return CartResponse{}, err
	}

	resp := v.(CartResponse)
	if resp.UserID != userID {
		return CartResponse{}, apperr.Authorization("not your cart")
	}
	return resp, nil
}

// GetCartByUser は今のユーザーのカートを返す。
func (u *CartUsecase) GetCartByUser(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, apperr.Authorization("unauthorized")
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, apperr.NotFound("cart not found")
	}
	if err != nil {
		return CartResponse{}, fmt.Errorf("find cart: %w", err)
	}

	return u.GetCart(ctx, userID, cart.ID)
}

// ClearCart は明細を空にして合計を0へ。空カートに対しても成功する。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64, cartID int64) error {
	if _, err := u.loadOwnedCart(ctx, userID, cartID); err != nil {
		return err
	}

	if err := u.cartRepo.Clear(ctx, cartID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("cart not found")
		}
		return fmt.Errorf("clear cart: %w", err)
	}

	u.invalidateCache(cartID)
	return nil
}

// 所有チェックつきでカートを取得。他人のカートは403。
func (u *CartUsecase) loadOwnedCart(ctx context.Context, userID int64, cartID int64) (model.Cart, error) {
	if userID <= 0 {
		return model.Cart{}, apperr.Authorization("unauthorized")
	}
	if cartID <= 0 {
		return model.Cart{}, apperr.Validation("invalid cart_id")
	}

	cart, err := u.cartRepo.FindByID(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, apperr.NotFound("cart not found")
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("find cart: %w", err)
	}
	if cart.UserID != userID {
		return model.Cart{}, apperr.Authorization("not your cart")
	}

	return cart, nil
}

// cartIDの明細をまとめてCartResponseを作る。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	cart, err := u.cartRepo.FindByID(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, apperr.NotFound("cart not found")
	}
	if err != nil {
		return CartResponse{}, fmt.Errorf("find cart: %w", err)
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, fmt.Errorf("list cart items: %w", err)
	}

	respItems := make([]CartItemResponse, 0, len(items))
	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err != nil {
			continue
		}

		respItems = append(respItems, CartItemResponse{
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
	}

	return CartResponse{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  respItems,
		Total:  cart.TotalPrice,
	}, nil
}

func (u *CartUsecase) invalidateCache(cartID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := u.cache.Delete(ctx, cartCacheKey(cartID)); err != nil {
		u.logger.Warn("cart cache invalidate failed", zap.Int64("cart_id", cartID), zap.Error(err))
	}
}

func cartCacheKey(cartID int64) string {
	return fmt.Sprintf("cart:%d", cartID)
}
