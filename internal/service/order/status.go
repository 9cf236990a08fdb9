package order

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// allowed captures the fulfillment state machine. Admin-driven transitions
// (processing→shipped→delivered) are included so the machine is complete
// even though no handler in this service drives them.
var allowed = map[string]map[string]bool{
	models.OrderStatusPending: {
		models.OrderStatusProcessing: true,
		models.OrderStatusCancelled:  true,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusShipped:   true,
		models.OrderStatusCancelled: true,
	},
	models.OrderStatusShipped: {
		models.OrderStatusDelivered: true,
	},
}

func CanTransition(from, to string) bool {
	return allowed[from][to]
}

// CanCancel reports whether a user may still cancel the order.
func CanCancel(status string) bool {
	return status == models.OrderStatusPending || status == models.OrderStatusProcessing
}

// Transition moves the order to the new status, persisting the change. The
// order struct is updated in place on success.
func Transition(db *gorm.DB, o *models.Order, to string) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	if err := db.Model(o).Update("status", to).Error; err != nil {
		return fmt.Errorf("transition %s -> %s: %w", o.Status, to, err)
	}
	o.Status = to
	return nil
}
