package model

import "time"

// 1ユーザーにつきカートは1つ。削除はせず、決済後に空にするだけ。
// TotalPriceは明細から導出したキャッシュ値。更新は必ず操作自身の差分のatomic加算で行う。
type Cart struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalPrice        int64     `gorm:"not null;default:0" json:"total_price"`
	GatewayCustomerID string    `gorm:"type:varchar(255);column:gateway_customer_id" json:"-"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
