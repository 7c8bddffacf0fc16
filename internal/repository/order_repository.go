package repository

import (
	"context"

	"shop/internal/domain/model"
)

// 注文は追記専用。更新・削除のメソッドは持たせない。
type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
}
