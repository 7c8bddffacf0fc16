package repository

import (
	"context"

	"shop/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error)

	// 同一(cart, product)は数量加算。INSERT ... ON CONFLICT の1文で行い、
	// 存在チェック→insert/update分岐のレースを作らない。
	UpsertAddQuantity(ctx context.Context, cartID int64, productID int64, addQty int64) error

	// quantityへのatomic加算。対象が無ければfalse。
	AddQuantity(ctx context.Context, cartID int64, productID int64, delta int64) (bool, error)

	// quantity > amount のときだけ quantity -= amount を適用する。
	// ガードに外れたらfalse（呼び出し側が削除に切り替える）。
	DecrementQuantityIfAbove(ctx context.Context, cartID int64, productID int64, amount int64) (bool, error)

	// 明細を削除し、削除時点のquantityを返す。無ければErrNotFound。
	DeleteReturningQuantity(ctx context.Context, cartID int64, productID int64) (int64, error)
}
