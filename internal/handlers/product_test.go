package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/handlers"
	"github.com/parikart/storefront/internal/models"
	"github.com/parikart/storefront/internal/testutil"
)

func seedProducts(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		category := "shirts"
		if i%2 == 0 {
			category = "shoes"
		}
		p := models.Product{
			Name:     fmt.Sprintf("Product %d", i),
			Price:    decimal.NewFromInt(int64(10 * i)),
			Category: category,
		}
		require.NoError(t, db.Create(&p).Error)
	}
}

func doRequest(e *echo.Echo, handler echo.HandlerFunc, target string, params map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		names := make([]string, 0, len(params))
		values := make([]string, 0, len(params))
		for k, v := range params {
			names = append(names, k)
			values = append(values, v)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestGetProduct(t *testing.T) {
	db := testutil.NewDB(t)
	e := echo.New()
	h := &handlers.ProductHandler{DB: db}

	p := models.Product{Name: "Hoodie", Price: decimal.RequireFromString("79.99"), Category: "hoodies"}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.ProductVariant{ProductID: p.ID, Size: "L", Color: "Black", Stock: 3}).Error)

	rec := doRequest(e, h.GetProduct, "/", map[string]string{"id": "1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Hoodie", got.Name)
	require.Len(t, got.Variants, 1)

	rec = doRequest(e, h.GetProduct, "/", map[string]string{"id": "99"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, h.GetProduct, "/", map[string]string{"id": "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductsPagination(t *testing.T) {
	db := testutil.NewDB(t)
	e := echo.New()
	h := &handlers.ProductHandler{DB: db}
	seedProducts(t, db, 25)

	rec := doRequest(e, h.GetProducts, "/?page=2&size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.Product `json:"data"`
		Meta map[string]any   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 10)
	require.Equal(t, "Product 11", body.Data[0].Name)
	require.EqualValues(t, 25, body.Meta["total"])
	require.EqualValues(t, 3, body.Meta["total_pages"])
	require.Equal(t, true, body.Meta["has_prev"])
	require.Equal(t, true, body.Meta["has_next"])

	rec = doRequest(e, h.GetProducts, "/?page=3&size=10", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 5)
	require.Equal(t, false, body.Meta["has_next"])
}

func TestGetProductsCategoryFilter(t *testing.T) {
	db := testutil.NewDB(t)
	e := echo.New()
	h := &handlers.ProductHandler{DB: db}
	seedProducts(t, db, 10)

	rec := doRequest(e, h.GetProducts, "/?category=shoes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.Product `json:"data"`
		Meta map[string]any   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 5, body.Meta["total"])
	for _, p := range body.Data {
		require.Equal(t, "shoes", p.Category)
	}
}
