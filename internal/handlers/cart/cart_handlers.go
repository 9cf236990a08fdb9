package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/models"
	"github.com/parikart/storefront/internal/mykafka"
)

type CartHandler struct {
	DB        *gorm.DB
	Producer  mykafka.Publisher
	JWTSecret []byte
}

func (h *CartHandler) GetCart(c echo.Context) error {
	cart, err := h.currentCart(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.Where("cart_id = ?", cart.ID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	total := decimal.Zero
	count := 0
	for _, it := range items {
		var p models.Product
		if err := h.DB.First(&p, it.ProductID).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}

	return c.JSON(http.StatusOK, echo.Map{
		"cart_id":     cart.ID,
		"items":       items,
		"total":       total,
		"total_items": count,
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	var req struct {
		ProductID uint `json:"product_id"`
		VariantID uint `json:"variant_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var variant *models.ProductVariant
	if req.VariantID != 0 {
		var v models.ProductVariant
		err := h.DB.Where("id = ? AND product_id = ?", req.VariantID, req.ProductID).First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "variant not found")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		variant = &v
	}

	cart, err := h.currentCart(c)
	if err != nil {
		return err
	}

	if variant != nil {
		var existing models.CartItem
		current := 0
		err := h.DB.Where("cart_id = ? AND product_id = ? AND variant_id = ?", cart.ID, req.ProductID, req.VariantID).
			First(&existing).Error
		if err == nil {
			current = existing.Quantity
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if current+req.Quantity > variant.Stock {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":     "insufficient stock",
				"available": variant.Stock,
			})
		}
	}

	item, err := h.upsertItem(cart.ID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":       "cart_item_added",
		"cart_id":    cart.ID,
		"product_id": req.ProductID,
		"variant_id": req.VariantID,
		"quantity":   item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

// UpdateItem handles the :action path segment, "increase" or "decrease".
// Decreasing a single-unit item removes it.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	cart, err := h.currentCart(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND cart_id = ?", id, cart.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	switch c.Param("action") {
	case "increase":
		if item.VariantID != 0 {
			var v models.ProductVariant
			if err := h.DB.First(&v, item.VariantID).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			if item.Quantity >= v.Stock {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"error":     "insufficient stock",
					"available": v.Stock,
				})
			}
		}
		item.Quantity++
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	case "decrease":
		if item.Quantity > 1 {
			item.Quantity--
			if err := h.DB.Save(&item).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		} else {
			if err := h.DB.Delete(&item).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			h.publish(c, map[string]any{
				"type":    "cart_item_removed",
				"cart_id": cart.ID,
				"item_id": item.ID,
			})
			return c.JSON(http.StatusOK, echo.Map{"deleted_item": item.ID})
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown action")
	}

	h.publish(c, map[string]any{
		"type":         "cart_item_updated",
		"cart_id":      cart.ID,
		"item_id":      item.ID,
		"new_quantity": item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	cart, err := h.currentCart(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	res := h.DB.Where("id = ? AND cart_id = ?", id, cart.ID).Delete(&models.CartItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}

	h.publish(c, map[string]any{
		"type":    "cart_item_removed",
		"cart_id": cart.ID,
		"item_id": id,
	})
	return c.JSON(http.StatusOK, echo.Map{"deleted_item": id})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	cart, err := h.currentCart(c)
	if err != nil {
		return err
	}

	if err := h.DB.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":    "cart_cleared",
		"cart_id": cart.ID,
	})
	return c.JSON(http.StatusOK, echo.Map{"cart_id": cart.ID, "items": []models.CartItem{}})
}
