package controllers

import (
	"context"
	"net/http"
	"testing"

	"masivo-tech/metrics"
	"masivo-tech/models"
	"masivo-tech/store/storetest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartFixture struct {
	products *storetest.Products
	metrics  *metrics.Metrics
	cc       *CartController
	kumara   models.Product
	g502     models.Product
}

func newCartFixture() *cartFixture {
	f := &cartFixture{
		kumara:  product("Redragon Kumara", 1000, 10, models.CategoryKeyboards),
		g502:    product("Logitech G502", 2500, 3, models.CategoryMice),
		metrics: metrics.New(prometheus.NewRegistry(), "test"),
	}
	f.products = storetest.NewProducts(f.kumara, f.g502)
	f.cc = NewCartController(f.products, newSessions(), f.metrics)
	return f
}

func idVars(p models.Product) map[string]string {
	return map[string]string{"id": p.ID.Hex()}
}

func TestAddToCartDefaultsToOneUnit(t *testing.T) {
	f := newCartFixture()
	b := &browser{}

	rec := b.do(f.cc.AddToCart, post("/cart/add/x", "", idVars(f.kumara)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, `"Redragon Kumara" agregado al carrito.`, body["message"])
	assert.Equal(t, float64(1), body["cart_total_items"])
	assert.Equal(t, "1000", body["cart_total_price"])

	rec = b.do(f.cc.AddToCart, post("/cart/add/x", `{"quantity":2}`, idVars(f.kumara)))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(3), body["cart_total_items"])
	assert.Equal(t, "3000", body["cart_total_price"])

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.CartOperationsTotal.WithLabelValues("add", "ok")))
}

func TestAddToCartRejections(t *testing.T) {
	f := newCartFixture()

	tests := []struct {
		name    string
		body    string
		vars    map[string]string
		status  int
		message string
	}{
		{"zero quantity", `{"quantity":0}`, idVars(f.kumara), http.StatusBadRequest, "Cantidad no válida"},
		{"negative quantity", `{"quantity":-2}`, idVars(f.kumara), http.StatusBadRequest, "Cantidad no válida"},
		{"malformed body", `{"quantity":"dos"}`, idVars(f.kumara), http.StatusBadRequest, "Cantidad no válida"},
		{"above stock", `{"quantity":4}`, idVars(f.g502), http.StatusConflict, "Stock insuficiente. Disponible: 3"},
		{"unknown product", `{"quantity":1}`, map[string]string{"id": primitive.NewObjectID().Hex()}, http.StatusNotFound, "Producto no encontrado"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := (&browser{}).do(f.cc.AddToCart, post("/cart/add/x", tt.body, tt.vars))
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestAddToCartCountsExistingQuantityAgainstStock(t *testing.T) {
	f := newCartFixture()
	b := &browser{}

	require.Equal(t, http.StatusOK, b.do(f.cc.AddToCart, post("/", `{"quantity":2}`, idVars(f.g502))).Code)
	rec := b.do(f.cc.AddToCart, post("/", `{"quantity":2}`, idVars(f.g502)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = b.do(f.cc.Panel, get("/cart/panel", nil))
	assert.Equal(t, float64(2), decode(t, rec)["cart_total_items"])
}

func TestUpdateCartReplacesQuantity(t *testing.T) {
	f := newCartFixture()
	b := &browser{}
	b.do(f.cc.AddToCart, post("/", `{"quantity":2}`, idVars(f.g502)))

	rec := b.do(f.cc.UpdateCart, post("/", `{"quantity":1}`, idVars(f.g502)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, `"Logitech G502" actualizado a 1 unidades.`, body["message"])
	assert.Equal(t, float64(1), body["cart_total_items"])

	rec = b.do(f.cc.UpdateCart, post("/", `{"quantity":5}`, idVars(f.g502)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Stock máximo: 3 unidades", decode(t, rec)["message"])
}

func TestRemoveFromCart(t *testing.T) {
	f := newCartFixture()
	b := &browser{}
	b.do(f.cc.AddToCart, post("/", "", idVars(f.kumara)))
	b.do(f.cc.AddToCart, post("/", "", idVars(f.g502)))

	rec := b.do(f.cc.RemoveFromCart, post("/", "", idVars(f.kumara)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, `"Redragon Kumara" removido del carrito.`, body["message"])
	assert.Equal(t, float64(1), body["cart_total_items"])
	assert.Equal(t, "2500", body["cart_total_price"])

	rec = b.do(f.cc.RemoveFromCart, post("/", "", idVars(f.kumara)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["cart_total_items"])
}

func TestClearCart(t *testing.T) {
	f := newCartFixture()
	b := &browser{}
	b.do(f.cc.AddToCart, post("/", `{"quantity":3}`, idVars(f.kumara)))

	rec := b.do(f.cc.ClearCart, post("/cart/clear", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Carrito vaciado correctamente.", body["message"])
	assert.Equal(t, float64(0), body["cart_total_items"])
	assert.Equal(t, "0", body["cart_total_price"])
}

func TestGetCartFlagsLinesAboveCurrentStock(t *testing.T) {
	f := newCartFixture()
	b := &browser{}
	b.do(f.cc.AddToCart, post("/", `{"quantity":3}`, idVars(f.g502)))

	rec := b.do(f.cc.GetCart, get("/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["cart_has_exceeded_stock"])

	require.NoError(t, f.products.DecrementStock(context.Background(), f.g502.ID.Hex(), 2))

	body = decode(t, b.do(f.cc.GetCart, get("/cart", nil)))
	assert.Equal(t, true, body["cart_has_exceeded_stock"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, true, item["exceeds_stock"])
	assert.Equal(t, float64(3), item["quantity"])
	assert.Equal(t, "$7.500,00", item["total_price_display"])
}

func TestGetCartSkipsDeletedProducts(t *testing.T) {
	f := newCartFixture()
	b := &browser{}
	b.do(f.cc.AddToCart, post("/", "", idVars(f.kumara)))
	b.do(f.cc.AddToCart, post("/", "", idVars(f.g502)))
	require.NoError(t, f.products.Delete(context.Background(), f.kumara.ID.Hex()))

	body := decode(t, b.do(f.cc.GetCart, get("/cart", nil)))
	assert.Len(t, body["items"], 1)
}

func TestCalculateShipping(t *testing.T) {
	tests := []struct {
		postal string
		price  string
		zone   string
		total  string
	}{
		{"1425", "1500", "CABA", "2500"},
		{"1650", "2000", "GBA", "3000"},
		{"5000", "3500", "Interior", "4500"},
		{"", "0", "", "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.postal, func(t *testing.T) {
			f := newCartFixture()
			b := &browser{}
			b.do(f.cc.AddToCart, post("/", "", idVars(f.kumara)))

			rec := b.do(f.cc.CalculateShipping, post("/cart/shipping", `{"postal_code":" `+tt.postal+` "}`, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.price, body["shipping_price"])
			assert.Equal(t, tt.postal, body["postal_code"])
			assert.Equal(t, tt.total, body["total_with_shipping"])
			if tt.zone == "" {
				assert.NotContains(t, body, "zona")
			} else {
				assert.Equal(t, tt.zone, body["zona"])
			}

			cart := decode(t, b.do(f.cc.GetCart, get("/cart", nil)))
			assert.Equal(t, tt.price, cart["shipping_price"])
			assert.Equal(t, tt.total, cart["total_with_shipping"])
		})
	}
}

func TestUnreadableSessionStartsEmptyCart(t *testing.T) {
	f := newCartFixture()
	b := &browser{cookies: []*http.Cookie{{Name: "test", Value: "tampered"}}}

	rec := b.do(f.cc.AddToCart, post("/", "", idVars(f.kumara)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["cart_total_items"])
}
