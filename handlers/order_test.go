package handlers

import (
	"net/http"
	"testing"

	"refripartes-backend/events"
	"refripartes-backend/models"

	"github.com/google/uuid"
)

func TestCreateOrderSuccess(t *testing.T) {
	db := freshDB()
	publisher := &mockPublisher{}
	router := setupOrderRouter(db, publisher)

	user, token := seedTestUser(db, "order@test.com", models.RoleCustomer)
	addr := seedAddress(db, user.ID, true)
	cat := seedCategory(db, "Compresores")
	prod := seedProduct(db, "Compresor 1/3 HP", cat.ID, "140.00", 5)
	seedCartItem(db, user.ID, prod.ID, nil, 2)

	w := serve(router, authRequest("POST", "/api/orders", map[string]interface{}{"address_id": addr.ID}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["status"] != string(models.OrderStatusPending) {
		t.Errorf("expected PENDING, got %v", resp["status"])
	}
	if resp["total"] != "280" {
		t.Errorf("expected total 280, got %v", resp["total"])
	}

	var stored models.Product
	db.First(&stored, "id = ?", prod.ID)
	if stored.Stock != 3 {
		t.Errorf("expected stock 3 after checkout, got %d", stored.Stock)
	}

	var cartLines int64
	db.Model(&models.CartItem{}).Count(&cartLines)
	if cartLines != 0 {
		t.Errorf("expected cart emptied, got %d lines", cartLines)
	}

	published := publisher.published()
	if len(published) != 1 || published[0].Type != events.OrderCreated {
		t.Errorf("expected one order.created event, got %+v", published)
	}
}

func TestCreateOrderErrors(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, &mockPublisher{})

	user, token := seedTestUser(db, "err@test.com", models.RoleCustomer)
	other, _ := seedTestUser(db, "other@test.com", models.RoleCustomer)
	addr := seedAddress(db, user.ID, true)
	foreign := seedAddress(db, other.ID, true)

	w := serve(router, authRequest("POST", "/api/orders", map[string]interface{}{"address_id": addr.ID}, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty cart: expected 400, got %d", w.Code)
	}

	cat := seedCategory(db, "Gases")
	prod := seedProduct(db, "Botella R-32", cat.ID, "70.00", 1)
	seedCartItem(db, user.ID, prod.ID, nil, 2)

	w = serve(router, authRequest("POST", "/api/orders", map[string]interface{}{"address_id": foreign.ID}, token))
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign address: expected 404, got %d", w.Code)
	}

	w = serve(router, authRequest("POST", "/api/orders", map[string]interface{}{"address_id": addr.ID}, token))
	if w.Code != http.StatusConflict {
		t.Errorf("insufficient stock: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(router, authRequest("POST", "/api/orders", map[string]interface{}{}, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing address: expected 400, got %d", w.Code)
	}
}

func TestGetOrdersScopedToUser(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, &mockPublisher{})

	user, token := seedTestUser(db, "mine@test.com", models.RoleCustomer)
	other, _ := seedTestUser(db, "theirs@test.com", models.RoleCustomer)
	_, adminToken := seedTestUser(db, "admin@test.com", models.RoleAdmin)
	seedOrder(db, user.ID, models.OrderStatusPending, "10.00")
	seedOrder(db, user.ID, models.OrderStatusPaid, "20.00")
	seedOrder(db, other.ID, models.OrderStatusPaid, "30.00")

	w := serve(router, authRequest("GET", "/api/orders", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp["total"] != float64(2) {
		t.Errorf("customer should see 2 orders, got %v", resp["total"])
	}

	w = serve(router, authRequest("GET", "/api/admin/orders?status=PAID", nil, adminToken))
	if resp := parseResponse(w); resp["total"] != float64(2) {
		t.Errorf("admin should see 2 paid orders, got %v", resp["total"])
	}

	w = serve(router, authRequest("GET", "/api/admin/orders?status=LOST", nil, adminToken))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status filter: expected 400, got %d", w.Code)
	}
}

func TestGetOrderOwnership(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, &mockPublisher{})

	owner, ownerToken := seedTestUser(db, "owner@test.com", models.RoleCustomer)
	_, otherToken := seedTestUser(db, "other@test.com", models.RoleCustomer)
	order := seedOrder(db, owner.ID, models.OrderStatusPending, "15.00")

	if w := serve(router, authRequest("GET", "/api/orders/"+order.ID.String(), nil, ownerToken)); w.Code != http.StatusOK {
		t.Errorf("owner: expected 200, got %d", w.Code)
	}
	if w := serve(router, authRequest("GET", "/api/orders/"+order.ID.String(), nil, otherToken)); w.Code != http.StatusNotFound {
		t.Errorf("other user: expected 404, got %d", w.Code)
	}
	if w := serve(router, authRequest("GET", "/api/orders/not-a-uuid", nil, ownerToken)); w.Code != http.StatusBadRequest {
		t.Errorf("malformed id: expected 400, got %d", w.Code)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	db := freshDB()
	publisher := &mockPublisher{}
	router := setupOrderRouter(db, publisher)

	user, _ := seedTestUser(db, "cust@test.com", models.RoleCustomer)
	_, adminToken := seedTestUser(db, "admin@test.com", models.RoleAdmin)
	order := seedOrder(db, user.ID, models.OrderStatusPending, "50.00")
	url := "/api/admin/orders/" + order.ID.String() + "/status"

	w := serve(router, authRequest("PUT", url, map[string]interface{}{"status": "SHIPPED"}, adminToken))
	if w.Code != http.StatusBadRequest {
		t.Errorf("PENDING -> SHIPPED: expected 400, got %d", w.Code)
	}

	w = serve(router, authRequest("PUT", url, map[string]interface{}{"status": "PAID"}, adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("PENDING -> PAID: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp["status"] != "PAID" {
		t.Errorf("expected PAID, got %v", resp["status"])
	}

	w = serve(router, authRequest("PUT", url, map[string]interface{}{"status": "ENTREGADO"}, adminToken))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status: expected 400, got %d", w.Code)
	}

	w = serve(router, authRequest("PUT", "/api/admin/orders/"+uuid.New().String()+"/status", map[string]interface{}{"status": "PAID"}, adminToken))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown order: expected 404, got %d", w.Code)
	}

	published := publisher.published()
	if len(published) != 1 || published[0].PreviousStatus != string(models.OrderStatusPending) {
		t.Errorf("expected one status change event from PENDING, got %+v", published)
	}
}

func TestGetOrderTransitions(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, &mockPublisher{})

	user, _ := seedTestUser(db, "cust@test.com", models.RoleCustomer)
	_, adminToken := seedTestUser(db, "admin@test.com", models.RoleAdmin)
	order := seedOrder(db, user.ID, models.OrderStatusPaid, "50.00")

	w := serve(router, authRequest("GET", "/api/admin/orders/"+order.ID.String()+"/transitions", nil, adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	allowed := parseResponse(w)["allowed_transitions"].([]interface{})
	if len(allowed) != 2 || allowed[0] != "SHIPPED" || allowed[1] != "CANCELLED" {
		t.Errorf("unexpected transitions %v", allowed)
	}
}

func TestCancelOrder(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, &mockPublisher{})

	user, token := seedTestUser(db, "cancel@test.com", models.RoleCustomer)
	pending := seedOrder(db, user.ID, models.OrderStatusPending, "10.00")
	paid := seedOrder(db, user.ID, models.OrderStatusPaid, "10.00")

	w := serve(router, authRequest("POST", "/api/orders/"+paid.ID.String()+"/cancel", nil, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("paid order: expected 400, got %d", w.Code)
	}

	w = serve(router, authRequest("POST", "/api/orders/"+pending.ID.String()+"/cancel", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp["status"] != "CANCELLED" {
		t.Errorf("expected CANCELLED, got %v", resp["status"])
	}
}

func TestDashboardStats(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, &mockPublisher{})

	user, token := seedTestUser(db, "cust@test.com", models.RoleCustomer)
	_, adminToken := seedTestUser(db, "admin@test.com", models.RoleAdmin)
	cat := seedCategory(db, "Compresores")
	seedProduct(db, "Compresor A", cat.ID, "150.00", 2)
	seedProduct(db, "Compresor B", cat.ID, "180.00", 50)
	seedOrder(db, user.ID, models.OrderStatusPaid, "100.00")
	seedOrder(db, user.ID, models.OrderStatusPending, "40.00")

	if w := serve(router, authRequest("GET", "/api/admin/dashboard", nil, token)); w.Code != http.StatusForbidden {
		t.Errorf("customer: expected 403, got %d", w.Code)
	}

	w := serve(router, authRequest("GET", "/api/admin/dashboard", nil, adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["total_users"] != float64(2) || resp["total_products"] != float64(2) || resp["total_orders"] != float64(2) {
		t.Errorf("unexpected totals: %v", resp)
	}
	if resp["low_stock_count"] != float64(1) {
		t.Errorf("expected 1 low stock product, got %v", resp["low_stock_count"])
	}
	if resp["total_revenue"] != "100" {
		t.Errorf("expected revenue 100 from paid orders only, got %v", resp["total_revenue"])
	}
	if months := resp["monthly_revenue"].([]interface{}); len(months) != 6 {
		t.Errorf("expected 6 months, got %d", len(months))
	}
	if statuses := resp["orders_by_status"].([]interface{}); len(statuses) != len(models.OrderStatuses) {
		t.Errorf("expected every status present, got %d", len(statuses))
	}
	if recent := resp["recent_orders"].([]interface{}); len(recent) != 2 {
		t.Errorf("expected 2 recent orders, got %d", len(recent))
	}
}
