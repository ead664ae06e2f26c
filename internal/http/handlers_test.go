package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boutique/internal/domain"
	"boutique/internal/repository"
	"boutique/internal/service"
)

type testEnv struct {
	server *Server
	store  *repository.MemoryStore
	users  *repository.MemoryUsers
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	usersRepo := repository.NewMemoryUsers(store)
	tokensRepo := repository.NewMemoryTokens(store)
	cartsRepo := repository.NewMemoryCarts(store)
	tx := repository.NewMemoryTx(store)

	const taxRate = 0.08
	productsSvc := service.NewProductService(store)
	ordersSvc := service.NewOrderService(store, ordersRepo, cartsRepo, tx, taxRate)
	cartsSvc := service.NewCartService(store, cartsRepo, taxRate)
	usersSvc := service.NewUserService(usersRepo, tokensRepo, store, time.Hour)
	adminSvc := service.NewAdminService(store, ordersRepo, usersRepo)

	return &testEnv{
		server: NewServer(productsSvc, ordersSvc, cartsSvc, usersSvc, adminSvc, t.TempDir()),
		store:  store,
		users:  usersRepo,
	}
}

func doJSON(t *testing.T, e *testEnv, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json response: %v: %s", err, w.Body.String())
	}
	return out
}

// registerUser регистрирует покупателя и возвращает его токен.
func registerUser(t *testing.T, e *testEnv, name, email string) string {
	t.Helper()
	w := doJSON(t, e, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %v: %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("no token in register response")
	}
	return token
}

// registerAdmin регистрирует пользователя и поднимает его роль напрямую
// в хранилище, как это делает сид при старте приложения.
func registerAdmin(t *testing.T, e *testEnv, email string) string {
	t.Helper()
	token := registerUser(t, e, "Admin", email)
	ctx := context.Background()
	u, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		t.Fatal(err)
	}
	u.Role = domain.RoleAdmin
	if err := e.users.Update(ctx, u); err != nil {
		t.Fatal(err)
	}
	return token
}

func seedProductHTTP(t *testing.T, e *testEnv, admin string, name string, price float64, stock int64) int64 {
	t.Helper()
	w := doJSON(t, e, http.MethodPost, "/api/products", admin, map[string]any{
		"name": name, "brand": "Acme", "category": "Shirts",
		"price": price, "stock": stock,
		"sizes":      []string{"S", "M"},
		"colors":     []string{"#000", "#fff"},
		"colorNames": []string{"Black", "White"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed product %v: %s", w.Code, w.Body.String())
	}
	product, _ := decode(t, w)["product"].(map[string]any)
	id, _ := product["id"].(float64)
	if id == 0 {
		t.Fatalf("no product id: %s", w.Body.String())
	}
	return int64(id)
}

func TestAuthFlow(t *testing.T) {
	e := setupServer(t)

	token := registerUser(t, e, "Alice", "alice@example.com")

	// me
	w := doJSON(t, e, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me %v", w.Code)
	}
	user, _ := decode(t, w)["user"].(map[string]any)
	if user["email"] != "alice@example.com" {
		t.Fatalf("me body: %s", w.Body.String())
	}
	if _, ok := user["password"]; ok {
		t.Fatalf("password hash leaked: %s", w.Body.String())
	}

	// duplicate email -> 409
	w = doJSON(t, e, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Other", "email": "Alice@Example.com", "password": "secret2",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register %v", w.Code)
	}

	// bad password -> 401
	w = doJSON(t, e, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login %v", w.Code)
	}

	// logout revokes the token
	w = doJSON(t, e, http.MethodPost, "/api/auth/logout", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout %v", w.Code)
	}
	w = doJSON(t, e, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout %v", w.Code)
	}
}

func TestProductFlow(t *testing.T) {
	e := setupServer(t)
	admin := registerAdmin(t, e, "admin@example.com")

	seedProductHTTP(t, e, admin, "Basic Tee", 19.99, 5)

	// public get
	w := doJSON(t, e, http.MethodGet, "/api/products/1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get %v", w.Code)
	}

	// update
	w = doJSON(t, e, http.MethodPut, "/api/products/1", admin, map[string]any{
		"name": "Basic Tee v2", "brand": "Acme", "category": "Shirts",
		"price": 21.99, "stock": 7,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update %v: %s", w.Code, w.Body.String())
	}

	// public list with envelope fields
	w = doJSON(t, e, http.MethodGet, "/api/products?category=Shirts&sortBy=price-low-high", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list %v", w.Code)
	}
	body := decode(t, w)
	if body["total"].(float64) != 1 || body["page"].(float64) != 1 || body["pages"].(float64) != 1 {
		t.Fatalf("list envelope: %s", w.Body.String())
	}

	// цвета сериализуются парой массивов
	products := body["products"].([]any)
	p0 := products[0].(map[string]any)
	colors := p0["colors"].([]any)
	colorNames := p0["colorNames"].([]any)
	if len(colors) != 2 || len(colorNames) != 2 || colors[0] != "#000" || colorNames[0] != "Black" {
		t.Fatalf("color arrays: %s", w.Body.String())
	}

	// search
	w = doJSON(t, e, http.MethodGet, "/api/products/search?q=tee", "", nil)
	if w.Code != http.StatusOK || decode(t, w)["count"].(float64) != 1 {
		t.Fatalf("search %v: %s", w.Code, w.Body.String())
	}

	// deactivate hides from the catalog but keeps the product readable
	w = doJSON(t, e, http.MethodDelete, "/api/products/1", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete %v", w.Code)
	}
	w = doJSON(t, e, http.MethodGet, "/api/products", "", nil)
	if decode(t, w)["total"].(float64) != 0 {
		t.Fatalf("deactivated product still listed: %s", w.Body.String())
	}
	w = doJSON(t, e, http.MethodGet, "/api/products/1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get after deactivate %v", w.Code)
	}
}

func TestProductAdminGuard(t *testing.T) {
	e := setupServer(t)
	customer := registerUser(t, e, "Bob", "bob@example.com")

	body := map[string]any{"name": "X", "brand": "B", "category": "C", "price": 1, "stock": 1}

	// no token -> 401
	w := doJSON(t, e, http.MethodPost, "/api/products", "", body)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create %v", w.Code)
	}
	// customer -> 403
	w = doJSON(t, e, http.MethodPost, "/api/products", customer, body)
	if w.Code != http.StatusForbidden {
		t.Fatalf("customer create %v", w.Code)
	}
}

func TestCartFlow(t *testing.T) {
	e := setupServer(t)
	admin := registerAdmin(t, e, "admin@example.com")
	user := registerUser(t, e, "Bob", "bob@example.com")
	id := seedProductHTTP(t, e, admin, "Tee", 25.50, 10)

	// add twice, lines merge
	for i := 0; i < 2; i++ {
		w := doJSON(t, e, http.MethodPost, "/api/cart/items", user, map[string]any{
			"product": id, "size": "M", "color": "Black",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("add %v: %s", w.Code, w.Body.String())
		}
	}

	w := doJSON(t, e, http.MethodGet, "/api/cart", user, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get cart %v", w.Code)
	}
	body := decode(t, w)
	if body["itemCount"].(float64) != 2 {
		t.Fatalf("item count: %s", w.Body.String())
	}
	totals := body["totals"].(map[string]any)
	if totals["subtotal"].(float64) != 51.00 || totals["tax"].(float64) != 4.08 || totals["total"].(float64) != 55.08 {
		t.Fatalf("totals: %s", w.Body.String())
	}

	// missing variant -> 400 with the decline reason
	w = doJSON(t, e, http.MethodPost, "/api/cart/items", user, map[string]any{"product": id})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("variantless add %v", w.Code)
	}
	if decode(t, w)["error"] != "size selection required" {
		t.Fatalf("decline reason: %s", w.Body.String())
	}

	// set quantity
	key := map[string]any{"product": id, "size": "M", "color": "Black"}
	w = doJSON(t, e, http.MethodPut, "/api/cart/items", user, map[string]any{"key": key, "quantity": 5})
	if w.Code != http.StatusOK || decode(t, w)["itemCount"].(float64) != 5 {
		t.Fatalf("set qty %v: %s", w.Code, w.Body.String())
	}

	// remove line
	w = doJSON(t, e, http.MethodDelete, "/api/cart/items", user, map[string]any{"key": key})
	if w.Code != http.StatusOK || decode(t, w)["itemCount"].(float64) != 0 {
		t.Fatalf("remove %v: %s", w.Code, w.Body.String())
	}

	// clear is idempotent
	w = doJSON(t, e, http.MethodDelete, "/api/cart", user, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear %v", w.Code)
	}
}

func TestOrderFlow(t *testing.T) {
	e := setupServer(t)
	admin := registerAdmin(t, e, "admin@example.com")
	user := registerUser(t, e, "Bob", "bob@example.com")
	id := seedProductHTTP(t, e, admin, "Tee", 10.00, 5)

	address := map[string]any{
		"fullName": "Bob Smith", "address": "1 Main St", "city": "Springfield",
		"postalCode": "62704", "country": "USA", "phone": "555-0101",
	}

	// клиентские суммы игнорируются, сервер считает сам
	w := doJSON(t, e, http.MethodPost, "/api/orders/create", user, map[string]any{
		"items":           []map[string]any{{"product": id, "quantity": 2, "size": "M", "color": "Black"}},
		"shippingAddress": address,
		"subtotal":        1, "tax": 1, "total": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order %v: %s", w.Code, w.Body.String())
	}
	order := decode(t, w)["order"].(map[string]any)
	if order["subtotal"].(float64) != 20.00 || order["tax"].(float64) != 1.60 || order["total"].(float64) != 21.60 {
		t.Fatalf("server must recompute totals: %s", w.Body.String())
	}
	if order["status"] != "pending" || order["paymentMethod"] != "COD" {
		t.Fatalf("order defaults: %s", w.Body.String())
	}

	// my orders
	w = doJSON(t, e, http.MethodGet, "/api/orders/myorders", user, nil)
	if w.Code != http.StatusOK || decode(t, w)["count"].(float64) != 1 {
		t.Fatalf("myorders %v: %s", w.Code, w.Body.String())
	}

	// чужой заказ недоступен покупателю, но доступен админу
	other := registerUser(t, e, "Eve", "eve@example.com")
	w = doJSON(t, e, http.MethodGet, "/api/orders/1", other, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign order %v", w.Code)
	}
	w = doJSON(t, e, http.MethodGet, "/api/orders/1", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin order access %v", w.Code)
	}

	// insufficient stock -> 400, остаток не тронут
	w = doJSON(t, e, http.MethodPost, "/api/orders/create", user, map[string]any{
		"items":           []map[string]any{{"product": id, "quantity": 99}},
		"shippingAddress": address,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversell %v: %s", w.Code, w.Body.String())
	}
	p, _ := e.store.GetByID(context.Background(), id)
	if p.Stock != 3 {
		t.Fatalf("stock after failed order: %d", p.Stock)
	}

	// empty order -> 400
	w = doJSON(t, e, http.MethodPost, "/api/orders/create", user, map[string]any{
		"items": []map[string]any{}, "shippingAddress": address,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty order %v", w.Code)
	}
}

func TestOrderStatusFlow(t *testing.T) {
	e := setupServer(t)
	admin := registerAdmin(t, e, "admin@example.com")
	user := registerUser(t, e, "Bob", "bob@example.com")
	id := seedProductHTTP(t, e, admin, "Tee", 10.00, 5)

	w := doJSON(t, e, http.MethodPost, "/api/orders/create", user, map[string]any{
		"items":           []map[string]any{{"product": id, "quantity": 2}},
		"shippingAddress": map[string]any{"fullName": "Bob Smith", "address": "1 Main St", "city": "Springfield", "postalCode": "62704", "country": "USA"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create %v: %s", w.Code, w.Body.String())
	}

	// пропуск этапа -> 409
	w = doJSON(t, e, http.MethodPut, "/api/orders/1/status", admin, map[string]any{"status": "shipped"})
	if w.Code != http.StatusConflict {
		t.Fatalf("illegal jump %v", w.Code)
	}

	// незнакомый статус -> 400
	w = doJSON(t, e, http.MethodPut, "/api/orders/1/status", admin, map[string]any{"status": "teleported"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status %v", w.Code)
	}

	// покупателю статус менять нельзя
	w = doJSON(t, e, http.MethodPut, "/api/orders/1/status", user, map[string]any{"status": "confirmed"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("customer status change %v", w.Code)
	}

	w = doJSON(t, e, http.MethodPut, "/api/orders/1/status", admin, map[string]any{"status": "confirmed"})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm %v: %s", w.Code, w.Body.String())
	}

	// отмена возвращает остаток
	w = doJSON(t, e, http.MethodPut, "/api/orders/1/status", admin, map[string]any{"status": "cancelled"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel %v: %s", w.Code, w.Body.String())
	}
	p, _ := e.store.GetByID(context.Background(), id)
	if p.Stock != 5 {
		t.Fatalf("stock after cancel: %d", p.Stock)
	}

	// из терминального статуса выхода нет
	w = doJSON(t, e, http.MethodPut, "/api/orders/1/status", admin, map[string]any{"status": "confirmed"})
	if w.Code != http.StatusConflict {
		t.Fatalf("terminal transition %v", w.Code)
	}
}

func TestWishlistFlow(t *testing.T) {
	e := setupServer(t)
	admin := registerAdmin(t, e, "admin@example.com")
	user := registerUser(t, e, "Bob", "bob@example.com")
	seedProductHTTP(t, e, admin, "Tee", 10.00, 5)

	w := doJSON(t, e, http.MethodPost, "/api/users/wishlist/1", user, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle %v: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, e, http.MethodGet, "/api/users/wishlist", user, nil)
	if w.Code != http.StatusOK || decode(t, w)["count"].(float64) != 1 {
		t.Fatalf("wishlist %v: %s", w.Code, w.Body.String())
	}

	// повторный toggle убирает
	_ = doJSON(t, e, http.MethodPost, "/api/users/wishlist/1", user, nil)
	w = doJSON(t, e, http.MethodGet, "/api/users/wishlist", user, nil)
	if decode(t, w)["count"].(float64) != 0 {
		t.Fatalf("toggle off: %s", w.Body.String())
	}

	// незнакомый товар -> 404
	w = doJSON(t, e, http.MethodPost, "/api/users/wishlist/999", user, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown product %v", w.Code)
	}
}

func TestAdminSurface(t *testing.T) {
	e := setupServer(t)
	admin := registerAdmin(t, e, "admin@example.com")
	user := registerUser(t, e, "Bob", "bob@example.com")
	id := seedProductHTTP(t, e, admin, "Tee", 10.00, 5)

	// place an order so stats have something to count
	w := doJSON(t, e, http.MethodPost, "/api/orders/create", user, map[string]any{
		"items":           []map[string]any{{"product": id, "quantity": 2}},
		"shippingAddress": map[string]any{"fullName": "Bob Smith", "address": "1 Main St", "city": "Springfield", "postalCode": "62704", "country": "USA"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("order %v: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, e, http.MethodGet, "/api/admin/stats", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats %v: %s", w.Code, w.Body.String())
	}
	stats := decode(t, w)["stats"].(map[string]any)
	if stats["totalSales"].(float64) != 21.60 || stats["totalOrders"].(float64) != 1 ||
		stats["totalProducts"].(float64) != 1 || stats["totalUsers"].(float64) != 2 {
		t.Fatalf("stats body: %s", w.Body.String())
	}

	// admin order list with total sales
	w = doJSON(t, e, http.MethodGet, "/api/orders/admin/all", admin, nil)
	if w.Code != http.StatusOK || decode(t, w)["totalSales"].(float64) != 21.60 {
		t.Fatalf("all orders %v: %s", w.Code, w.Body.String())
	}

	// customers are kept out
	w = doJSON(t, e, http.MethodGet, "/api/admin/stats", user, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("customer stats %v", w.Code)
	}

	// user management
	w = doJSON(t, e, http.MethodGet, "/api/admin/users", admin, nil)
	if w.Code != http.StatusOK || decode(t, w)["count"].(float64) != 2 {
		t.Fatalf("users %v: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, e, http.MethodDelete, "/api/admin/users/2", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete user %v: %s", w.Code, w.Body.String())
	}
	// себя удалить нельзя
	w = doJSON(t, e, http.MethodDelete, "/api/admin/users/1", admin, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self delete %v", w.Code)
	}
}

func TestHTTP_BadRequests(t *testing.T) {
	e := setupServer(t)
	admin := registerAdmin(t, e, "admin@example.com")

	// invalid product body
	w := doJSON(t, e, http.MethodPost, "/api/products", admin, map[string]any{"name": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}

	// invalid id
	w = doJSON(t, e, http.MethodGet, "/api/products/abc", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}

	// not found
	w = doJSON(t, e, http.MethodGet, "/api/products/999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
}
