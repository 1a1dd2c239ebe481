package handlers

import (
	"net/http"
	"testing"

	"refripartes-backend/models"

	"github.com/google/uuid"
)

func TestAddToCartSuccess(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	_, token := seedTestUser(db, "cart@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Gases")
	prod := seedProduct(db, "Botella R-134a", cat.ID, "89.90", 4)

	body := map[string]interface{}{"product_id": prod.ID.String(), "quantity": 2}
	w := serve(router, authRequest("POST", "/api/cart", body, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp["quantity"] != float64(2) {
		t.Errorf("expected quantity 2, got %v", resp["quantity"])
	}

	w = serve(router, authRequest("POST", "/api/cart", body, token))
	if resp := parseResponse(w); resp["quantity"] != float64(4) {
		t.Errorf("expected accumulated quantity 4, got %v", resp["quantity"])
	}
}

func TestAddToCartVariantLinesAreDistinct(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	_, token := seedTestUser(db, "variant@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Ventiladores")
	prod := seedProduct(db, "Motor ventilador", cat.ID, "35.00", 10)
	v := seedVariant(db, prod.ID, "10W", 10)

	serve(router, authRequest("POST", "/api/cart", map[string]interface{}{"product_id": prod.ID, "quantity": 1}, token))
	serve(router, authRequest("POST", "/api/cart", map[string]interface{}{"product_id": prod.ID, "variant_id": v.ID, "quantity": 1}, token))

	w := serve(router, authRequest("GET", "/api/cart", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	items := parseResponse(w)["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 distinct lines, got %d", len(items))
	}
}

func TestAddToCartErrors(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	_, token := seedTestUser(db, "err@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Tubería")
	prod := seedProduct(db, "Tubo cobre 3/8", cat.ID, "12.00", 50)
	other := seedProduct(db, "Tubo cobre 1/2", cat.ID, "15.00", 50)
	foreignVariant := seedVariant(db, other.ID, "5m", 5)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"zero quantity", map[string]interface{}{"product_id": prod.ID, "quantity": 0}, http.StatusBadRequest},
		{"negative quantity", map[string]interface{}{"product_id": prod.ID, "quantity": -1}, http.StatusBadRequest},
		{"unknown product", map[string]interface{}{"product_id": uuid.New(), "quantity": 1}, http.StatusNotFound},
		{"variant of another product", map[string]interface{}{"product_id": prod.ID, "variant_id": foreignVariant.ID, "quantity": 1}, http.StatusNotFound},
	}
	for _, tc := range tests {
		w := serve(router, authRequest("POST", "/api/cart", tc.body, token))
		if w.Code != tc.status {
			t.Errorf("%s: expected status %d, got %d: %s", tc.name, tc.status, w.Code, w.Body.String())
		}
	}
}

func TestGetCartCreatesEmptyCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())
	_, token := seedTestUser(db, "empty@test.com", models.RoleCustomer)

	w := serve(router, authRequest("GET", "/api/cart", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	items, _ := parseResponse(w)["items"].([]interface{})
	if len(items) != 0 {
		t.Errorf("expected empty cart, got %d items", len(items))
	}
}

func TestUpdateCartItemQuantity(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	user, token := seedTestUser(db, "update@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Filtros")
	prod := seedProduct(db, "Filtro deshidratador", cat.ID, "9.50", 20)
	seedCartItem(db, user.ID, prod.ID, nil, 3)

	w := serve(router, authRequest("PUT", "/api/cart", map[string]interface{}{"product_id": prod.ID, "quantity": 7}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp["quantity"] != float64(7) {
		t.Errorf("expected quantity 7, got %v", resp["quantity"])
	}
}

func TestUpdateCartItemMissing(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	user, token := seedTestUser(db, "missing@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Filtros")
	prod := seedProduct(db, "Filtro", cat.ID, "9.50", 20)
	v := seedVariant(db, prod.ID, "1/4", 5)
	seedCartItem(db, user.ID, prod.ID, nil, 1)

	// The base line exists but the variant line does not.
	w := serve(router, authRequest("PUT", "/api/cart", map[string]interface{}{"product_id": prod.ID, "variant_id": v.ID, "quantity": 2}, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRemoveFromCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	user, token := seedTestUser(db, "remove@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Aislamiento")
	prod := seedProduct(db, "Coquilla", cat.ID, "3.20", 100)
	v := seedVariant(db, prod.ID, "13mm", 40)
	seedCartItem(db, user.ID, prod.ID, &v.ID, 2)

	w := serve(router, authRequest("DELETE", "/api/cart/items/"+prod.ID.String(), nil, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("base line was never added, expected 404, got %d", w.Code)
	}

	w = serve(router, authRequest("DELETE", "/api/cart/items/"+prod.ID.String()+"?variant_id="+v.ID.String(), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.CartItem{}).Count(&count)
	if count != 0 {
		t.Errorf("expected cart empty, got %d lines", count)
	}

	w = serve(router, authRequest("DELETE", "/api/cart/items/"+prod.ID.String()+"?variant_id=nope", nil, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed variant_id, got %d", w.Code)
	}
}

func TestClearCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	user, token := seedTestUser(db, "clear@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Herramientas")
	p1 := seedProduct(db, "Manómetro", cat.ID, "60.00", 5)
	p2 := seedProduct(db, "Abocardador", cat.ID, "40.00", 5)
	seedCartItem(db, user.ID, p1.ID, nil, 1)
	seedCartItem(db, user.ID, p2.ID, nil, 1)

	for i := 0; i < 2; i++ {
		w := serve(router, authRequest("DELETE", "/api/cart", nil, token))
		if w.Code != http.StatusOK {
			t.Fatalf("clear #%d: expected status 200, got %d", i+1, w.Code)
		}
	}

	var count int64
	db.Model(&models.CartItem{}).Count(&count)
	if count != 0 {
		t.Errorf("expected cart empty, got %d lines", count)
	}
}

func TestMergeCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	_, token := seedTestUser(db, "merge@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Compresores")
	p1 := seedProduct(db, "Compresor A", cat.ID, "150.00", 5)
	p2 := seedProduct(db, "Compresor B", cat.ID, "180.00", 5)

	body := map[string]interface{}{"items": []map[string]interface{}{
		{"product_id": p1.ID, "quantity": 1},
		{"product_id": p2.ID, "quantity": 2},
	}}
	w := serve(router, authRequest("POST", "/api/cart/merge", body, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	items := parseResponse(w)["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	quantities := map[string]float64{}
	for _, it := range items {
		line := it.(map[string]interface{})
		quantities[line["product_id"].(string)] = line["quantity"].(float64)
	}
	if quantities[p1.ID.String()] != 1 || quantities[p2.ID.String()] != 2 {
		t.Errorf("unexpected quantities %v", quantities)
	}
}

func TestMergeCartStopsAtFailingLine(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db, newMemGuestCarts())

	_, token := seedTestUser(db, "mergefail@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Compresores")
	p1 := seedProduct(db, "Compresor A", cat.ID, "150.00", 5)
	p3 := seedProduct(db, "Compresor C", cat.ID, "200.00", 5)

	body := map[string]interface{}{"items": []map[string]interface{}{
		{"product_id": p1.ID, "quantity": 1},
		{"product_id": uuid.New(), "quantity": 1},
		{"product_id": p3.ID, "quantity": 1},
	}}
	w := serve(router, authRequest("POST", "/api/cart/merge", body, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
	if applied := parseResponse(w)["applied"]; applied != float64(1) {
		t.Errorf("expected applied 1, got %v", applied)
	}

	var lines []models.CartItem
	db.Find(&lines)
	if len(lines) != 1 || lines[0].ProductID != p1.ID {
		t.Errorf("expected only the line before the failure applied, got %+v", lines)
	}
}

func TestCartRequiresAuth(t *testing.T) {
	router := setupCartRouter(freshDB(), newMemGuestCarts())
	w := serve(router, jsonRequest("GET", "/api/cart", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}
