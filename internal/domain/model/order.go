package model

import "time"

// 購入確定の台帳。チェックアウト成功の最後にだけ作成し、以後は変更しない。
type Order struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"not null;index" json:"user_id"`
	TotalPrice int64     `gorm:"not null" json:"total_price"`
	ChargeID   string    `gorm:"type:varchar(255);not null" json:"charge_id"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
