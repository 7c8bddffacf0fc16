package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"shop/internal/apperr"
	"shop/internal/domain/model"
	"shop/internal/infra/cache"
	repo "shop/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// 決済ゲートウェイとの約束。実装はinfra/payment。
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email string, cardToken string) (string, error)
	CreateCharge(ctx context.Context, amountMinorUnits int64, currency string, customerID string) (string, error)
	UpdateCustomerSource(ctx context.Context, customerID string, cardToken string) error
}

const (
	chargeCurrency = "usd"
	//合計は主要単位で持っているので、課金時にゲートウェイの最小単位へ直す
	minorUnitsPerMajor = 100
)

// CheckoutUsecase はカートを課金と注文に変換する一本道を進めます。
// CartLoaded → CustomerResolved → Charged → OrderRecorded → CartCleared の順で、
// 途中で失敗したらそこで止まる（以降のステップは実行しない）。
type CheckoutUsecase struct {
	cartRepo       repo.CartRepository
	cartItemRepo   repo.CartItemRepository
	orderRepo      repo.OrderRepository
	gateway        PaymentGateway
	cache          cache.Cache
	logger         *zap.Logger
	gatewayTimeout time.Duration
	sfg            singleflight.Group // 同一ユーザーのcheckoutを直列化（二重課金防止）
}

func NewCheckoutUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	orderRepo repo.OrderRepository,
	gateway PaymentGateway,
	cartCache cache.Cache,
	logger *zap.Logger,
	gatewayTimeout time.Duration,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		cartRepo:       cartRepo,
		cartItemRepo:   cartItemRepo,
		orderRepo:      orderRepo,
		gateway:        gateway,
		cache:          cartCache,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
	}
}

type CheckoutInput struct {
	CardToken string
	Email     string
}

type ChargeOutput struct {
	OrderID    int64  `json:"order_id"`
	ChargeID   string `json:"charge_id"`
	TotalPrice int64  `json:"total_price"`
}

// Checkout は同一ユーザーについてsingleflightで直列化する。
// 空カートチェックを同時に通過した2リクエストが両方課金する穴を塞ぐため。
// 同時に来た重複は同じ結果を共有する。
func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (ChargeOutput, error) {
	if userID <= 0 {
		return ChargeOutput{}, apperr.Authorization("unauthorized")
	}

	v, err, _ := u.sfg.Do("checkout:"+strconv.FormatInt(userID, 10), func() (interface{}, error) {
		return u.checkout(ctx, userID, in)
	})
	if err != nil {
		return ChargeOutput{}, err
	}
	return v.(ChargeOutput), nil
}

func (u *CheckoutUsecase) checkout(ctx context.Context, userID int64, in CheckoutInput) (ChargeOutput, error) {
	//CartLoaded: 外部呼び出しより先にカートを確定する
	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ChargeOutput{}, apperr.Validation("your cart is empty")
	}
	if err != nil {
		return ChargeOutput{}, fmt.Errorf("find cart: %w", err)
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return ChargeOutput{}, fmt.Errorf("list cart items: %w", err)
	}
	if len(items) == 0 {
		return ChargeOutput{}, apperr.Validation("your cart is empty")
	}

	//CustomerResolved: 登録済みならそのIDを使い回す。
	//新規作成したIDは課金の前に必ず保存する。途中でこけて再試行しても
	//同じユーザーに顧客レコードを二重に作らないため。
	customerID := cart.GatewayCustomerID
	if customerID == "" {
		if in.Email == "" {
			return ChargeOutput{}, apperr.Validation("invalid email")
		}
		if in.CardToken == "" {
			return ChargeOutput{}, apperr.Validation("invalid card token")
		}

		gctx, cancel := context.WithTimeout(ctx, u.gatewayTimeout)
		id, err := u.gateway.CreateCustomer(gctx, in.Email, in.CardToken)
		cancel()
		if err != nil {
			return ChargeOutput{}, apperr.Gateway("could not create customer")
		}

		if err := u.cartRepo.SetGatewayCustomerID(ctx, cart.ID, id); err != nil {
			return ChargeOutput{}, fmt.Errorf("save gateway customer id: %w", err)
		}
		customerID = id
	}

	//Charged: タイムアウトは「失敗」ではなく「結果不明」。
	//呼び出し側が無条件に再送すると二重課金になり得るので種別を分けて返す。
	gctx, cancel := context.WithTimeout(ctx, u.gatewayTimeout)
	chargeID, err := u.gateway.CreateCharge(gctx, cart.TotalPrice*minorUnitsPerMajor, chargeCurrency, customerID)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ChargeOutput{}, apperr.GatewayUnknown("charge outcome unknown")
		}
		return ChargeOutput{}, apperr.Gateway("could not create the charge")
	}

	//OrderRecorded: 課金成功につき注文はちょうど1件。
	orderID, err := u.orderRepo.Create(ctx, model.Order{
		UserID:     userID,
		TotalPrice: cart.TotalPrice,
		ChargeID:   chargeID,
	})
	if err != nil {
		//課金済みなのに台帳が無い。自動補償はしない方針なので、
		//手動リコンサイル用に大きく残す。
		u.logger.Error("charge succeeded but order was not recorded",
			zap.Int64("user_id", userID),
			zap.Int64("cart_id", cart.ID),
			zap.String("charge_id", chargeID),
			zap.Int64("total_price", cart.TotalPrice),
			zap.Error(err),
		)
		return ChargeOutput{}, apperr.Consistency("order not recorded; contact support")
	}

	//CartCleared
	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		u.logger.Error("order recorded but cart was not cleared",
			zap.Int64("user_id", userID),
			zap.Int64("cart_id", cart.ID),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return ChargeOutput{}, apperr.Consistency("cart not cleared; contact support")
	}
	u.invalidateCache(cart.ID)

	return ChargeOutput{
		OrderID:    orderID,
		ChargeID:   chargeID,
		TotalPrice: cart.TotalPrice,
	}, nil
}

// UpdateCustomerCard は登録済み顧客のカードを差し替える。ローカルの状態は変えない。
func (u *CheckoutUsecase) UpdateCustomerCard(ctx context.Context, userID int64, newCardToken string) error {
	if userID <= 0 {
		return apperr.Authorization("unauthorized")
	}
	if newCardToken == "" {
		return apperr.Validation("invalid card token")
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.Validation("not a customer")
	}
	if err != nil {
		return fmt.Errorf("find cart: %w", err)
	}
	if cart.GatewayCustomerID == "" {
		return apperr.Validation("not a customer")
	}

	gctx, cancel := context.WithTimeout(ctx, u.gatewayTimeout)
	defer cancel()
	if err := u.gateway.UpdateCustomerSource(gctx, cart.GatewayCustomerID, newCardToken); err != nil {
		return apperr.Gateway("card update failed")
	}

	return nil
}

func (u *CheckoutUsecase) invalidateCache(cartID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := u.cache.Delete(ctx, cartCacheKey(cartID)); err != nil {
		u.logger.Warn("cart cache invalidate failed", zap.Int64("cart_id", cartID), zap.Error(err))
	}
}
