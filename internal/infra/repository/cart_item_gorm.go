package repository

import (
	"context"
	"errors"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// カート明細を一覧取得
func (r *CartItemGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

func (r *CartItemGormRepository) FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// 同一(cart, product)は数量加算。
// ON CONFLICTの1文で行うので、存在チェック→分岐のレースが無い。
func (r *CartItemGormRepository) UpsertAddQuantity(ctx context.Context, cartID int64, productID int64, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	now := time.Now()
	item := model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  addQty,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
			"updated_at": now,
		}),
	}).Create(&item).Error
}

// quantityをatomicに加算。対象行が無ければfalse。
func (r *CartItemGormRepository) AddQuantity(ctx context.Context, cartID int64, productID int64, delta int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", gorm.Expr("quantity + ?", delta))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// quantity > amount のガード付き減算。
// 0以下へ落ちる減算はここでは起こさない（ガードに外れたら呼び出し側が削除する）。
func (r *CartItemGormRepository) DecrementQuantityIfAbove(ctx context.Context, cartID int64, productID int64, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ? AND quantity > ?", cartID, productID, amount).
		Update("quantity", gorm.Expr("quantity - ?", amount))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 削除した明細のquantityを返す（合計の減算に使う）。
func (r *CartItemGormRepository) DeleteReturningQuantity(ctx context.Context, cartID int64, productID int64) (int64, error) {
	var deleted []model.CartItem

	res := r.db.WithContext(ctx).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "quantity"}}}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&deleted)

	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 || len(deleted) == 0 {
		return 0, repo.ErrNotFound
	}
	return deleted[0].Quantity, nil
}
