package inventory

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/models"
)

var ErrVariantNotFound = errors.New("variant not found")

// InsufficientStockError reports how much stock is actually available so the
// caller can surface it to the user.
type InsufficientStockError struct {
	VariantID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("variant %d: requested %d, only %d in stock", e.VariantID, e.Requested, e.Available)
}

// Reserve decrements the variant's stock by qty. The check and the decrement
// are one conditional UPDATE, so two overlapping reservations can never drive
// stock negative. Callers pass an open transaction when reservation is part
// of a larger unit of work.
func Reserve(db *gorm.DB, variantID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve: quantity must be positive, got %d", qty)
	}

	res := db.Model(&models.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("reserve variant %d: %w", variantID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var v models.ProductVariant
	if err := db.First(&v, variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("reserve variant %d: %w", variantID, ErrVariantNotFound)
		}
		return fmt.Errorf("reserve variant %d: %w", variantID, err)
	}
	return &InsufficientStockError{VariantID: variantID, Requested: qty, Available: v.Stock}
}

// Release puts qty back. No upper bound: restoring stock for a cancelled
// order is always valid even if the ledger was edited in between.
func Release(db *gorm.DB, variantID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release: quantity must be positive, got %d", qty)
	}

	res := db.Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("release variant %d: %w", variantID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("release variant %d: %w", variantID, ErrVariantNotFound)
	}
	return nil
}
