package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/config"
	"github.com/MikeMC777/storefront/internal/export"
	"github.com/MikeMC777/storefront/internal/notify"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/session"
)

//
// ===== test app on the memory backend =====
//

func newTestApp(t *testing.T) (*app, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		StoreDriver: "memory",
		Auth: config.Auth{
			JWTSecret:   "test-secret",
			SessionTTL:  time.Hour,
			RememberTTL: 24 * time.Hour,
			GuestTTL:    time.Hour,
		},
		Checkout: config.Checkout{ConfirmStep: true, PendingTTL: 30 * time.Minute},
	}
	a := newApp(cfg, memoryBackend(), session.NewMemoryStore(), notify.NewHub(nil))
	return a, newRouter(a)
}

func do(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

// login authenticates as username, registering the account first when
// register is set. guestToken, if any, is sent along so its cart is merged.
func login(t *testing.T, r *gin.Engine, username, guestToken string, register bool) string {
	t.Helper()
	if register {
		w := do(r, http.MethodPost, "/auth/register", "", map[string]any{
			"username": username, "password": "s3cret!", "confirm_password": "s3cret!",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("register %s: want 201, got %d body=%s", username, w.Code, w.Body.String())
		}
	}
	w := do(r, http.MethodPost, "/auth/login", guestToken, map[string]any{"username": username, "password": "s3cret!"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: want 200, got %d body=%s", username, w.Code, w.Body.String())
	}
	var resp tokenResponse
	decode(t, w, &resp)
	return resp.Token
}

func ownerToken(t *testing.T, a *app, r *gin.Engine) string {
	t.Helper()
	if _, _, err := a.users.EnsureOwner(context.Background(), "owner", "s3cret!"); err != nil {
		t.Fatalf("EnsureOwner: %v", err)
	}
	return login(t, r, "owner", "", false)
}

func seedProduct(t *testing.T, a *app, name string, price int64, stock int) *catalog.Product {
	t.Helper()
	p, err := a.catalog.CreateProduct(context.Background(), 0, catalog.ProductInput{Name: name, Price: &price, Stock: &stock})
	if err != nil {
		t.Fatalf("CreateProduct %s: %v", name, err)
	}
	return p
}

var shipping = map[string]any{
	"receiver_name":  "Somchai Jaidee",
	"phone":          "0812345678",
	"address_line":   "99/1 Sukhumvit Rd",
	"payment_method": "transfer",
}

func placeOrder(t *testing.T, r *gin.Engine, token string, productID int64, qty int) order.Order {
	t.Helper()
	if w := do(r, http.MethodPost, "/cart/items", token, map[string]any{"product_id": productID, "quantity": qty}); w.Code != http.StatusCreated {
		t.Fatalf("add to cart: want 201, got %d body=%s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/checkout", token, shipping); w.Code != http.StatusOK {
		t.Fatalf("checkout: want 200, got %d body=%s", w.Code, w.Body.String())
	}
	w := do(r, http.MethodPost, "/checkout/confirm", token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm: want 201, got %d body=%s", w.Code, w.Body.String())
	}
	var o order.Order
	decode(t, w, &o)
	return o
}

//
// ===== tests =====
//

func TestListProducts_SortAndSearch(t *testing.T) {
	a, r := newTestApp(t)
	seedProduct(t, a, "Keyboard", 300, 5)
	seedProduct(t, a, "Mouse", 100, 5)
	seedProduct(t, a, "Monitor", 200, 5)

	{
		w := do(r, http.MethodGet, "/products?sort=price_low", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", w.Code)
		}
		var resp catalog.ListResponse
		decode(t, w, &resp)
		if len(resp.Items) != 3 {
			t.Fatalf("want 3 items, got %d", len(resp.Items))
		}
		got := []string{resp.Items[0].Name, resp.Items[1].Name, resp.Items[2].Name}
		want := []string{"Mouse", "Monitor", "Keyboard"}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("price_low order: want %v, got %v", want, got)
		}
	}
	{
		w := do(r, http.MethodGet, "/products?q=mo&sort=bogus", "", nil)
		var resp catalog.ListResponse
		decode(t, w, &resp)
		if resp.Sort != catalog.SortNewest {
			t.Fatalf("unknown sort should fall back to newest, got %q", resp.Sort)
		}
		if len(resp.Items) != 2 || resp.Items[0].Name != "Monitor" {
			t.Fatalf("search mo newest first: got %+v", resp.Items)
		}
	}
	{
		w := do(r, http.MethodGet, "/products/abc", "", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("non-numeric id: want 404, got %d", w.Code)
		}
	}
}

func TestRegister_FieldErrors(t *testing.T) {
	_, r := newTestApp(t)

	w := do(r, http.MethodPost, "/auth/register", "", map[string]any{"password": "x", "confirm_password": "y"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422, got %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &body)
	if body.Fields["username"] == "" {
		t.Fatalf("want a username field error, got %v", body.Fields)
	}

	w = do(r, http.MethodPost, "/auth/register", "", map[string]any{"username": "ann", "password": "x", "confirm_password": "y"})
	decode(t, w, &body)
	if w.Code != http.StatusUnprocessableEntity || body.Fields["confirm_password"] == "" {
		t.Fatalf("mismatched passwords: got %d %v", w.Code, body.Fields)
	}
}

func TestGuestCartSurvivesLoginAndChecksOut(t *testing.T) {
	a, r := newTestApp(t)
	p := seedProduct(t, a, "Keyboard", 100, 5)

	w := do(r, http.MethodPost, "/auth/guest", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("guest: want 201, got %d", w.Code)
	}
	var guest tokenResponse
	decode(t, w, &guest)

	if w := do(r, http.MethodPost, "/cart/items", guest.Token, map[string]any{"product_id": p.ID, "quantity": 2}); w.Code != http.StatusCreated {
		t.Fatalf("guest add: want 201, got %d body=%s", w.Code, w.Body.String())
	}
	// guests cannot check out
	if w := do(r, http.MethodPost, "/checkout", guest.Token, shipping); w.Code != http.StatusUnauthorized {
		t.Fatalf("guest checkout: want 401, got %d", w.Code)
	}

	token := login(t, r, "ann", guest.Token, true)

	var view struct {
		Total int64 `json:"total"`
		Count int   `json:"count"`
	}
	decode(t, do(r, http.MethodGet, "/cart", token, nil), &view)
	if view.Total != 200 || view.Count != 2 {
		t.Fatalf("merged cart: want total 200 count 2, got %+v", view)
	}

	if w := do(r, http.MethodPost, "/checkout", token, shipping); w.Code != http.StatusOK {
		t.Fatalf("submit: want 200, got %d body=%s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/checkout/confirm", token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm: want 201, got %d body=%s", w.Code, w.Body.String())
	}
	var o order.Order
	decode(t, w, &o)
	if o.TotalPrice != 200 || o.Status != order.StatusPending || len(o.Items) != 1 {
		t.Fatalf("unexpected order: %+v", o)
	}

	got, _ := a.catalog.Get(context.Background(), p.ID)
	if got.Stock != 3 {
		t.Fatalf("stock: want 3, got %d", got.Stock)
	}
	decode(t, do(r, http.MethodGet, "/cart", token, nil), &view)
	if view.Count != 0 {
		t.Fatalf("cart should be empty after checkout, got %+v", view)
	}
	if w := do(r, http.MethodPost, "/checkout/confirm", token, nil); w.Code != http.StatusConflict {
		t.Fatalf("second confirm: want 409, got %d", w.Code)
	}
}

func TestOrders_OtherCustomerSeesNotFound(t *testing.T) {
	a, r := newTestApp(t)
	p := seedProduct(t, a, "Keyboard", 100, 5)

	ann := login(t, r, "ann", "", true)
	bob := login(t, r, "bob", "", true)
	o := placeOrder(t, r, ann, p.ID, 1)

	path := fmt.Sprintf("/orders/%d", o.ID)
	if w := do(r, http.MethodGet, path, ann, nil); w.Code != http.StatusOK {
		t.Fatalf("owner: want 200, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, path, bob, nil); w.Code != http.StatusNotFound {
		t.Fatalf("other customer: want 404, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: want 401, got %d", w.Code)
	}
}

func TestAdmin_Gate(t *testing.T) {
	a, r := newTestApp(t)
	p := seedProduct(t, a, "Keyboard", 100, 5)
	customer := login(t, r, "ann", "", true)
	edit := map[string]any{"name": "Hacked", "price": 1, "stock": 1}
	path := fmt.Sprintf("/admin/products/%d", p.ID)

	if w := do(r, http.MethodPut, path, "", edit); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: want 401, got %d", w.Code)
	}
	w := do(r, http.MethodPut, path, customer, edit)
	if w.Code != http.StatusForbidden {
		t.Fatalf("customer: want 403, got %d", w.Code)
	}
	var body struct {
		Redirect string `json:"redirect"`
	}
	decode(t, w, &body)
	if body.Redirect != "/products" {
		t.Fatalf("customer redirect: want /products, got %q", body.Redirect)
	}
	got, _ := a.catalog.Get(context.Background(), p.ID)
	if got.Name != "Keyboard" || got.Price != 100 {
		t.Fatalf("product changed by a customer: %+v", got)
	}

	owner := ownerToken(t, a, r)
	if w := do(r, http.MethodPut, path, owner, edit); w.Code != http.StatusOK {
		t.Fatalf("owner: want 200, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestAdmin_StatusChangeFeedsDashboard(t *testing.T) {
	a, r := newTestApp(t)
	p := seedProduct(t, a, "Keyboard", 250, 5)
	ann := login(t, r, "ann", "", true)
	o := placeOrder(t, r, ann, p.ID, 2)
	owner := ownerToken(t, a, r)

	path := fmt.Sprintf("/admin/orders/%d/status", o.ID)
	if w := do(r, http.MethodPut, path, owner, map[string]any{"status": "lost"}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown status: want 422, got %d", w.Code)
	}
	if w := do(r, http.MethodPut, path, owner, map[string]any{"status": "paid"}); w.Code != http.StatusOK {
		t.Fatalf("paid: want 200, got %d body=%s", w.Code, w.Body.String())
	}

	var dash struct {
		Stats order.Stats `json:"stats"`
	}
	decode(t, do(r, http.MethodGet, "/admin/dashboard", owner, nil), &dash)
	if dash.Stats.Orders != 1 || dash.Stats.PaidSales != 500 || dash.Stats.Users != 2 || dash.Stats.Products != 1 {
		t.Fatalf("unexpected stats: %+v", dash.Stats)
	}

	if w := do(r, http.MethodGet, fmt.Sprintf("/admin/orders/%d", o.ID+100), owner, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing order: want 404, got %d", w.Code)
	}
}

func upload(t *testing.T, r *gin.Engine, path, token string, products []catalog.Product) *httptest.ResponseRecorder {
	t.Helper()
	var sheet bytes.Buffer
	if err := export.Products(&sheet, products); err != nil {
		t.Fatalf("build workbook: %v", err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "products.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write(sheet.Bytes())
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestImportProducts_AllOrNothing(t *testing.T) {
	a, r := newTestApp(t)
	owner := ownerToken(t, a, r)
	ctx := context.Background()

	{
		w := upload(t, r, "/admin/import/products.xlsx", owner, []catalog.Product{
			{Name: "Good", Price: 100, Stock: 1},
			{Name: "Bad", Price: -1, Stock: 1},
		})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("bad second row: want 422, got %d body=%s", w.Code, w.Body.String())
		}
		if !bytes.Contains(w.Body.Bytes(), []byte("row 3")) {
			t.Fatalf("error should name the failing row, got %s", w.Body.String())
		}
		if n, _ := a.catalog.Count(ctx); n != 0 {
			t.Fatalf("rejected import persisted %d products", n)
		}
	}
	{
		existing := seedProduct(t, a, "Old name", 50, 1)
		w := upload(t, r, "/admin/import/products.xlsx", owner, []catalog.Product{
			{Name: "Fresh", Price: 100, Stock: 1},
			{ID: existing.ID, Name: "New name", Price: 75, Stock: 2},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("valid import: want 200, got %d body=%s", w.Code, w.Body.String())
		}
		var res catalog.ImportResult
		decode(t, w, &res)
		if res.Created != 1 || res.Updated != 1 {
			t.Fatalf("want 1 created 1 updated, got %+v", res)
		}
		got, _ := a.catalog.Get(ctx, existing.ID)
		if got.Name != "New name" || got.Price != 75 {
			t.Fatalf("existing product not updated: %+v", got)
		}
	}
}
