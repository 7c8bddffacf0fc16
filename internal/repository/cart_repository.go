package repository

import (
	"context"

	"shop/internal/domain/model"
)

type CartRepository interface {
	// 無ければ作る（最初のaddで遅延作成）
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)

	// total_priceへのatomic加算。deltaは負もあり得る。
	// 合計の再集計はしない（並行更新でロストアップデートになるため）。
	AddTotalPrice(ctx context.Context, cartID int64, delta int64) error

	// 決済ゲートウェイの顧客IDを保存。未設定のときだけ書く。
	SetGatewayCustomerID(ctx context.Context, cartID int64, customerID string) error

	// 明細を全削除してtotal_priceを0にする。空カートへの適用も成功。
	Clear(ctx context.Context, cartID int64) error
}
