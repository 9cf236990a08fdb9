package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/handlers/identity"
	"github.com/parikart/storefront/internal/models"
)

const sessionCookieName = "cart_session"

// GetID extracts the authenticated user id from the access-token cookie.
func GetID(c echo.Context, jwtSecret []byte) (uint, error) {
	return identity.GetID(c, jwtSecret)
}

// currentCart resolves the caller's cart: the user's own when the access
// token is present, otherwise one keyed by the anonymous session cookie.
// Carts are created lazily on first interaction.
func (h *CartHandler) currentCart(c echo.Context) (*models.Cart, error) {
	var cart models.Cart

	if userID, err := GetID(c, h.JWTSecret); err == nil {
		if err := h.DB.Where(models.Cart{UserID: &userID}).FirstOrCreate(&cart).Error; err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return &cart, nil
	}

	key := h.sessionKey(c)
	if err := h.DB.Where(models.Cart{SessionKey: key}).FirstOrCreate(&cart).Error; err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return &cart, nil
}

func (h *CartHandler) sessionKey(c echo.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	key := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

// upsertItem is the atomic insert-or-increment for a (cart, product,
// variant) key. The composite unique index backs the insert; a lost race
// falls through to the increment on the next pass.
func (h *CartHandler) upsertItem(cartID, productID, variantID uint, qty int) (*models.CartItem, error) {
	for attempt := 0; attempt < 2; attempt++ {
		res := h.DB.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ? AND variant_id = ?", cartID, productID, variantID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", qty))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			var item models.CartItem
			err := h.DB.Where("cart_id = ? AND product_id = ? AND variant_id = ?", cartID, productID, variantID).
				First(&item).Error
			if err != nil {
				return nil, err
			}
			return &item, nil
		}

		item := models.CartItem{
			CartID:    cartID,
			ProductID: productID,
			VariantID: variantID,
			Quantity:  qty,
		}
		err := h.DB.Create(&item).Error
		if err == nil {
			return &item, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, errors.New("cart item upsert did not converge")
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["cart_id"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
