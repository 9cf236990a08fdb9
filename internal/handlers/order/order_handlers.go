package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/handlers/identity"
	"github.com/parikart/storefront/internal/inventory"
	ordersvc "github.com/parikart/storefront/internal/service/order"
	"github.com/parikart/storefront/internal/util"
)

type OrderHandler struct {
	DB        *gorm.DB
	Svc       *ordersvc.Service
	JWTSecret []byte
}

// Checkout converts the caller's cart into an order. For cod the order is
// final; for a gateway method the client must follow up with the gateway's
// initiation endpoint.
func (h *OrderHandler) Checkout(c echo.Context) error {
	userID, err := identity.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req ordersvc.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, err := h.Svc.Create(c.Request().Context(), userID, req)
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.Is(err, ordersvc.ErrEmptyCart):
			return echo.NewHTTPError(http.StatusBadRequest, "your cart is empty")
		case errors.Is(err, ordersvc.ErrMissingAddress):
			return echo.NewHTTPError(http.StatusBadRequest, "please provide shipping address")
		case errors.Is(err, ordersvc.ErrInvalidPaymentMethod):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.As(err, &stockErr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":      "insufficient stock",
				"variant_id": stockErr.VariantID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"order":            order,
		"payment_required": order.PaymentMethod != "cod",
	})
}

func (h *OrderHandler) Cancel(c echo.Context) error {
	userID, err := identity.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	order, err := h.Svc.Cancel(c.Request().Context(), userID, c.Param("order_id"))
	if err != nil {
		switch {
		case errors.Is(err, ordersvc.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, ordersvc.ErrCannotCancel):
			return echo.NewHTTPError(http.StatusConflict, "cannot cancel this order")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) List(c echo.Context) error {
	userID, err := identity.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	orders, total, err := h.Svc.List(c.Request().Context(), userID, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *OrderHandler) Detail(c echo.Context) error {
	userID, err := identity.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	order, err := h.Svc.Get(c.Request().Context(), userID, c.Param("order_id"))
	if err != nil {
		if errors.Is(err, ordersvc.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, order)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
