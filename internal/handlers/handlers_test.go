package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/auth"
	"github.com/shopfront/apiserver/internal/services"
	"github.com/shopfront/apiserver/internal/store/memstore"
	"github.com/shopfront/apiserver/types"
)

const testSecret = "handler-test-secret"

type testAPI struct {
	router http.Handler
	tokens *auth.TokenIssuer
	users  *services.UserService
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	st := memstore.New()
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	gate := NewGate(tokens)

	categoryService := services.NewCategoryService(st.Categories())
	productService := services.NewProductService(st.Products(), st.Categories())
	userService := services.NewUserService(st.Users(), tokens)
	orderService := services.NewOrderService(st.Orders(), st.Products(), st.Users())

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/api", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) { CategoryRouter(r, categoryService, gate) })
		r.Route("/products", func(r chi.Router) { ProductRouter(r, productService, nil, gate) })
		r.Route("/order", func(r chi.Router) { OrderRouter(r, orderService, gate) })
		UserRouter(r, userService, gate)
	})
	return testAPI{router: r, tokens: tokens, users: userService}
}

type envelope struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func (a testAPI) adminToken(t *testing.T) string {
	t.Helper()
	token, err := a.tokens.Issue(uuid.New(), true, false)
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	return token
}

// signup creates a customer and returns its token and ID.
func (a testAPI) signup(t *testing.T, email string) (string, uuid.UUID) {
	t.Helper()
	rec, _ := a.do(t, http.MethodPost, "/api/signup", "", map[string]string{
		"username": strings.Split(email, "@")[0],
		"email":    email,
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", rec.Code, rec.Body.String())
	}

	rec, env := a.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Token string     `json:"token"`
		User  types.User `json:"user"`
	}
	decodeData(t, env, &result)
	return result.Token, result.User.ID
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, string(env.Data))
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec, env := api.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected health response %d %+v", rec.Code, env)
	}
}

func TestCategoryLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminToken(t)

	rec, env := api.do(t, http.MethodPost, "/api/categories", admin, map[string]string{"name": "Shoes"})
	if rec.Code != http.StatusCreated || !env.Success || env.Status != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var created types.Category
	decodeData(t, env, &created)

	rec, env = api.do(t, http.MethodGet, "/api/categories", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var page struct {
		Items      []types.Category `json:"items"`
		TotalCount int64            `json:"totalCount"`
		PageNumber int              `json:"pageNumber"`
		PageSize   int              `json:"pageSize"`
	}
	decodeData(t, env, &page)
	if page.TotalCount != 1 || len(page.Items) != 1 || page.Items[0].Name != "Shoes" {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.PageNumber != 1 || page.PageSize != 10 {
		t.Fatalf("unexpected paging %d/%d", page.PageNumber, page.PageSize)
	}

	path := "/api/categories/" + created.ID.String()
	if rec, _ := api.do(t, http.MethodDelete, path, admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete status %d", rec.Code)
	}
	rec, env = api.do(t, http.MethodGet, path, "", nil)
	if rec.Code != http.StatusNotFound || env.Success {
		t.Fatalf("expected 404 after delete, got %d %+v", rec.Code, env)
	}
	if rec, _ := api.do(t, http.MethodDelete, path, admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestAuthorizationGate(t *testing.T) {
	api := newTestAPI(t)
	customer, _ := api.signup(t, "dana@example.com")

	body := map[string]string{"name": "Hats"}
	if rec, _ := api.do(t, http.MethodPost, "/api/categories", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodPost, "/api/categories", "not-a-token", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodPost, "/api/categories", customer, body); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rec.Code)
	}

	malformed := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := malformed.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec, _ := api.do(t, http.MethodPost, "/api/categories", signed, body); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-uuid subject, got %d", rec.Code)
	}
}

func TestMalformedInput(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminToken(t)

	if rec, _ := api.do(t, http.MethodGet, "/api/categories/not-a-uuid", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodGet, "/api/products?pageNumber=0", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for page 0, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodGet, "/api/products?pageSize=-1", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative page size, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodGet, "/api/products?SelectedCategories=nope", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed category id, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodPost, "/api/categories", admin, map[string]string{}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing name, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": "x", "email": "nope", "password": "secret123"}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad email, got %d", rec.Code)
	}
}

func TestProductListingOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminToken(t)

	_, env := api.do(t, http.MethodPost, "/api/categories", admin, map[string]string{"name": "Shoes"})
	var category types.Category
	decodeData(t, env, &category)

	for i, name := range []string{"Red Shoes", "Blue Shoes", "Red Boots", "Green Socks"} {
		rec, _ := api.do(t, http.MethodPost, "/api/products", admin, map[string]any{
			"productName": name,
			"price":       float64(10 * (i + 1)),
			"quantity":    3,
			"categoryId":  category.ID,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create product status %d: %s", rec.Code, rec.Body.String())
		}
	}

	var page struct {
		Items      []types.Product `json:"items"`
		TotalCount int64           `json:"totalCount"`
		PageSize   int             `json:"pageSize"`
	}
	_, env = api.do(t, http.MethodGet, "/api/products?sortBy=price&isAscending=false&pageSize=2&SelectedCategories="+category.ID.String(), "", nil)
	decodeData(t, env, &page)
	if page.TotalCount != 4 || len(page.Items) != 2 || page.Items[0].Name != "Green Socks" {
		t.Fatalf("unexpected product page %+v", page)
	}

	_, env = api.do(t, http.MethodGet, "/api/products/search?keyword=red&minPrice=15", "", nil)
	decodeData(t, env, &page)
	if page.TotalCount != 1 || page.Items[0].Name != "Red Boots" || page.PageSize != services.DefaultSearchPageSize {
		t.Fatalf("unexpected search page %+v", page)
	}

	if rec, _ := api.do(t, http.MethodPost, "/api/products/images", admin, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without image storage, got %d", rec.Code)
	}
}

func TestAccountEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token, id := api.signup(t, "erin@example.com")

	rec, env := api.do(t, http.MethodGet, "/api/account/my-Profile", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") || strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatalf("profile leaked credentials: %s", rec.Body.String())
	}
	var me types.User
	decodeData(t, env, &me)
	if me.ID != id {
		t.Fatalf("expected profile of %s, got %s", id, me.ID)
	}

	if rec, _ := api.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": "again", "email": "erin@example.com", "password": "secret123"}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "erin@example.com", "password": "wrong-pass"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	if rec, _ := api.do(t, http.MethodPut, "/api/users/"+id.String(), token, map[string]any{"isAdmin": true}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for self promotion, got %d", rec.Code)
	}
	rec, env = api.do(t, http.MethodPut, "/api/users/"+id.String(), token, map[string]any{"address": "2 Side St"})
	if rec.Code != http.StatusOK {
		t.Fatalf("self update status %d", rec.Code)
	}
	decodeData(t, env, &me)
	if me.Address != "2 Side St" || me.Email != "erin@example.com" {
		t.Fatalf("unexpected partial update %+v", me)
	}

	admin := api.adminToken(t)
	if rec, _ := api.do(t, http.MethodGet, "/api/users", token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 listing users as customer, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodGet, "/api/account/dashboard/users/"+id.String(), admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("dashboard status %d", rec.Code)
	}

	if rec, _ := api.do(t, http.MethodDelete, "/api/users/delete", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete self status %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodGet, "/api/account/my-Profile", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after deleting account, got %d", rec.Code)
	}
}

func TestOrdersOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminToken(t)
	owner, ownerID := api.signup(t, "owner@example.com")
	stranger, strangerID := api.signup(t, "stranger@example.com")

	_, env := api.do(t, http.MethodPost, "/api/categories", admin, map[string]string{"name": "Shoes"})
	var category types.Category
	decodeData(t, env, &category)
	_, env = api.do(t, http.MethodPost, "/api/products", admin, map[string]any{
		"productName": "Red Shoes", "price": 80, "quantity": 2, "categoryId": category.ID,
	})
	var product types.Product
	decodeData(t, env, &product)

	rec, env := api.do(t, http.MethodPost, "/api/order", owner, map[string]any{
		"payment": "card", "productIds": []uuid.UUID{product.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order status %d: %s", rec.Code, rec.Body.String())
	}
	var order types.Order
	decodeData(t, env, &order)
	if order.UserID != ownerID || order.Status != types.OrderPending {
		t.Fatalf("unexpected order %+v", order)
	}

	update := map[string]any{"payment": "paypal"}
	if rec, _ := api.do(t, http.MethodPut, "/api/order/update-my-order/"+order.ID.String(), stranger, update); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodPut, "/api/order/update-my-order/"+order.ID.String(), owner, update); rec.Code != http.StatusOK {
		t.Fatalf("expected owner update to succeed, got %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodGet, "/api/order/"+order.ID.String(), owner, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer get by id, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/order/"+order.ID.String()+"/invoice", nil)
	req.Header.Set("Authorization", "Bearer "+owner)
	invoiceRec := httptest.NewRecorder()
	api.router.ServeHTTP(invoiceRec, req)
	if invoiceRec.Code != http.StatusOK || invoiceRec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected invoice response %d %s", invoiceRec.Code, invoiceRec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(invoiceRec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("invoice is not a PDF")
	}

	if rec, _ := api.do(t, http.MethodPut, "/api/users/banUnBan/"+strangerID.String(), admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("ban status %d", rec.Code)
	}
	// Role flags are read from the token, so a ban applies from the next login.
	if rec, _ := api.do(t, http.MethodGet, "/api/order/my-order", stranger, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected token issued before the ban to pass until expiry, got %d", rec.Code)
	}
	_, env = api.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "stranger@example.com", "password": "secret123"})
	var banned struct {
		Token string `json:"token"`
	}
	decodeData(t, env, &banned)
	if rec, _ := api.do(t, http.MethodPost, "/api/order", banned.Token, map[string]any{"productIds": []uuid.UUID{product.ID}}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for banned user, got %d", rec.Code)
	}

	rec, env = api.do(t, http.MethodGet, "/api/order/my-order", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("my orders status %d", rec.Code)
	}
	var mine struct {
		TotalCount int64 `json:"totalCount"`
	}
	decodeData(t, env, &mine)
	if mine.TotalCount != 1 {
		t.Fatalf("expected one order, got %d", mine.TotalCount)
	}

	if rec, _ := api.do(t, http.MethodDelete, "/api/order/my-order/delete/"+order.ID.String(), owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete my order status %d", rec.Code)
	}
	if rec, _ := api.do(t, http.MethodDelete, "/api/order/"+order.ID.String(), admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting removed order, got %d", rec.Code)
	}
}
