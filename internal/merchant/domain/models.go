// Package domain contains persistence models for partner merchants.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Merchant is a cashback partner. Bills are only eligible while the
// merchant stays active.
type Merchant struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Name            string       `gorm:"type:text;not null" json:"name"`
	LogoURL         string       `gorm:"type:text" json:"logoUrl,omitempty"`
	CashbackPercent float64      `gorm:"not null;default:0" json:"cashbackPercent"`
	IsActive        bool         `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt       time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Merchant) TableName() string { return "merchants" }

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Merchant, error)
	Insert(ctx context.Context, db *gorm.DB, merchant *Merchant) error
}
