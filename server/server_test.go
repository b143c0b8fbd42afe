package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/arthur-debert/shopdata/storage"
	"github.com/arthur-debert/shopdata/testutil"
)

func setupTestServer(t *testing.T) (*Server, *storage.DataDir) {
	t.Helper()
	dir, _ := testutil.LoadShop(t)
	s := New(dir,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(func() time.Time { return testutil.Now }))
	return s, dir
}

func do(t *testing.T, h http.Handler, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	resp := w.Result()

	var body map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON body: %v\n%s", err, w.Body.String())
		}
	}
	return resp, body
}

func get(t *testing.T, s *Server, target string) (*http.Response, map[string]interface{}) {
	t.Helper()
	return do(t, s.Handler(), httptest.NewRequest(http.MethodGet, target, nil))
}

func ids(t *testing.T, items interface{}) []string {
	t.Helper()
	list, ok := items.([]interface{})
	if !ok {
		t.Fatalf("expected a list, got %T", items)
	}
	out := make([]string, len(list))
	for i, item := range list {
		out[i], _ = item.(map[string]interface{})["id"].(string)
	}
	return out
}

func TestHandleHealthz(t *testing.T) {
	s, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("unexpected healthz response: %d %q", w.Code, w.Body.String())
	}
}

func TestListEndpoints(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, body := get(t, s, "/api/orders?status=delivered&sortBy=total-desc&limit=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if diff := cmp.Diff([]string{"ord_1001"}, ids(t, body["orders"])); diff != "" {
		t.Errorf("orders mismatch (-want +got):\n%s", diff)
	}
	want := map[string]interface{}{"total": 2.0, "limit": 1.0, "offset": 0.0, "hasMore": true}
	if diff := cmp.Diff(want, body["pagination"]); diff != "" {
		t.Errorf("pagination mismatch (-want +got):\n%s", diff)
	}

	_, body = get(t, s, "/api/products?limit=abc&offset=xyz")
	pagination := body["pagination"].(map[string]interface{})
	if pagination["limit"] != 10.0 || pagination["offset"] != 0.0 {
		t.Errorf("malformed pagination should fall back, got %v", pagination)
	}

	_, body = get(t, s, "/api/support-tickets?priority=low")
	if diff := cmp.Diff([]string{"tkt_003", "tkt_004"}, ids(t, body["tickets"])); diff != "" {
		t.Errorf("tickets mismatch (-want +got):\n%s", diff)
	}
	if _, ok := body["pagination"]; ok {
		t.Errorf("tickets are not paginated")
	}

	_, body = get(t, s, "/api/promotions?type=fixed_amount")
	if diff := cmp.Diff([]string{"promo_vip"}, ids(t, body["promotions"])); diff != "" {
		t.Errorf("promotions mismatch (-want +got):\n%s", diff)
	}
}

func TestListHugeLimit(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, body := get(t, s, "/api/products?limit="+strconv.Itoa(math.MaxInt)+"&offset=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	pagination := body["pagination"].(map[string]interface{})
	if pagination["hasMore"] != false {
		t.Errorf("expected hasMore false, got %v", pagination["hasMore"])
	}
	total := int(pagination["total"].(float64))
	if got := len(body["products"].([]interface{})); got != total-1 {
		t.Errorf("expected %d products, got %d", total-1, got)
	}
}

func TestListDegradesToEmpty(t *testing.T) {
	s := New(storage.NewDataDir(t.TempDir()), WithLogger(slog.New(slog.DiscardHandler)))

	resp, body := get(t, s, "/api/customers")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if diff := cmp.Diff([]interface{}{}, body["customers"]); diff != "" {
		t.Errorf("expected empty list (-want +got):\n%s", diff)
	}
	want := map[string]interface{}{"total": 0.0, "limit": 10.0, "offset": 0.0, "hasMore": false}
	if diff := cmp.Diff(want, body["pagination"]); diff != "" {
		t.Errorf("pagination mismatch (-want +got):\n%s", diff)
	}

	resp, body = get(t, s, "/api/orders?limit=5&offset=20")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if diff := cmp.Diff([]interface{}{}, body["orders"]); diff != "" {
		t.Errorf("expected empty list (-want +got):\n%s", diff)
	}
	want = map[string]interface{}{"total": 0.0, "limit": 5.0, "offset": 20.0, "hasMore": false}
	if diff := cmp.Diff(want, body["pagination"]); diff != "" {
		t.Errorf("requested window not kept (-want +got):\n%s", diff)
	}
}

func TestDetailMissingDataSource(t *testing.T) {
	s := New(storage.NewDataDir(t.TempDir()), WithLogger(slog.New(slog.DiscardHandler)))

	tests := []struct {
		target string
		want   string
	}{
		{"/api/orders/ord_1001", "Order not found"},
		{"/api/products/p1", "Product not found"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp, body := get(t, s, tt.target)
			if resp.StatusCode != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", resp.StatusCode)
			}
			if body["error"] != tt.want {
				t.Errorf("expected error %q, got %v", tt.want, body["error"])
			}
		})
	}
}

func TestDetailEndpoints(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, body := get(t, s, "/api/orders/ord_1002")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	order := body["order"].(map[string]interface{})
	if order["id"] != "ord_1002" || order["riskLevel"] != "low" {
		t.Errorf("unexpected order: %v", order)
	}

	_, body = get(t, s, "/api/customers/cust_001")
	if body["id"] != "001" || body["displayName"] != "Eleanor Vance" {
		t.Errorf("unexpected customer: %v", body["id"])
	}

	resp, body = get(t, s, "/api/products/p404")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if body["error"] != "Product not found" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestForYou(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/products/for-you", strings.NewReader(`{"userId": "cust_002"}`))
	resp, body := do(t, s.Handler(), req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if diff := cmp.Diff([]string{"p3", "p4", "p6", "p1"}, ids(t, body["products"])); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/products/for-you", nil)
	req.Header.Set(SessionHeader, "cust_003")
	_, body = do(t, s.Handler(), req)
	if body["userId"] != "cust_003" {
		t.Errorf("session customer should be used without a body, got %v", body["userId"])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/products/for-you", strings.NewReader(`{`))
	if resp, _ := do(t, s.Handler(), req); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestShipping(t *testing.T) {
	s, _ := setupTestServer(t)
	resp, body := get(t, s, "/api/shipping")
	if resp.StatusCode != http.StatusOK || len(body) == 0 {
		t.Errorf("expected the shipping document, got %d %v", resp.StatusCode, body)
	}
}

func TestAnalytics(t *testing.T) {
	s, _ := setupTestServer(t)

	_, body := get(t, s, "/api/analytics")
	if body["totalOrders"] != 4.0 || body["period"] != 30.0 {
		t.Errorf("unexpected overview: %v", body)
	}

	_, body = get(t, s, "/api/analytics?type=sales&period=3")
	if days := body["salesByDay"].([]interface{}); len(days) != 3 {
		t.Errorf("expected 3 days, got %d", len(days))
	}

	resp, body := get(t, s, "/api/analytics?type=bogus")
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "Invalid analytics type" {
		t.Errorf("expected 400 Invalid analytics type, got %d %v", resp.StatusCode, body)
	}
}

func TestData(t *testing.T) {
	s, dir := setupTestServer(t)

	_, body := get(t, s, "/api/data")
	files := body["files"].([]interface{})
	if len(files) != 6 {
		t.Errorf("expected 6 files, got %d", len(files))
	}
	first := files[0].(map[string]interface{})
	if first["name"] != "customers.json" || first["recordCount"] != 4.0 {
		t.Errorf("unexpected first file: %v", first)
	}

	_, body = get(t, s, "/api/data?file=orders.json")
	if body["fileName"] != "orders.json" || body["isArray"] != true || body["recordCount"] != 6.0 {
		t.Errorf("unexpected document: %v %v %v", body["fileName"], body["isArray"], body["recordCount"])
	}

	_, body = get(t, s, "/api/data?file=shipping.json")
	if body["isArray"] != false {
		t.Errorf("shipping is an object")
	}

	tests := []struct {
		target string
		status int
		msg    string
	}{
		{"/api/data?file=orders.txt", http.StatusBadRequest, "Invalid file name"},
		{"/api/data?file=missing.json", http.StatusNotFound, "File not found"},
		{"/api/data/missing.json", http.StatusNotFound, "File not found"},
	}
	for _, tt := range tests {
		resp, body := get(t, s, tt.target)
		if resp.StatusCode != tt.status || body["error"] != tt.msg {
			t.Errorf("%s: got %d %v", tt.target, resp.StatusCode, body)
		}
	}

	if err := dir.WriteRaw(context.Background(), "notes.txt", []byte("restock straps")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir.Root(), "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data/notes.txt", nil))
	if w.Header().Get("Content-Type") != "text/plain" || w.Body.String() != "restock straps" {
		t.Errorf("unexpected raw file response: %q %q", w.Header().Get("Content-Type"), w.Body.String())
	}

	resp, body := get(t, s, "/api/data/broken.json")
	if resp.StatusCode != http.StatusInternalServerError || body["error"] != "Invalid JSON file" {
		t.Errorf("expected Invalid JSON file, got %d %v", resp.StatusCode, body)
	}

	resp, body = get(t, s, "/api/data/promotions.json")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if body != nil {
		t.Errorf("array document should not decode as an object")
	}
}

func TestDataFileTraversal(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/data/x", nil)
	req.SetPathValue("path", "../secret.json")
	w := httptest.NewRecorder()
	s.handleDataFile(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid path") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestInspect(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, body := get(t, s, "/api/inspect?file=customers.json&search=eleanor")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", resp.StatusCode, body)
	}
	if body["matches"] != 1.0 || body["label"] != "Eleanor Vance" || body["recordCount"] != 4.0 {
		t.Errorf("unexpected browse result: %v %v %v", body["matches"], body["label"], body["recordCount"])
	}
	tree := body["tree"].(map[string]interface{})
	if tree["expanded"] != true {
		t.Errorf("root should be expanded")
	}

	_, body = get(t, s, "/api/inspect?file=customers.json&expand=&toggle=.tags")
	if diff := cmp.Diff([]interface{}{".tags"}, body["expanded"]); diff != "" {
		t.Errorf("expanded mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		target string
		status int
	}{
		{"/api/inspect", http.StatusBadRequest},
		{"/api/inspect?file=customers.json&index=x", http.StatusBadRequest},
		{"/api/inspect?file=customers.json&index=9", http.StatusNotFound},
		{"/api/inspect?file=nope.json", http.StatusNotFound},
	}
	for _, tt := range tests {
		if resp, _ := get(t, s, tt.target); resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.status, resp.StatusCode)
		}
	}
}

func TestSession(t *testing.T) {
	s, _ := setupTestServer(t)

	_, body := get(t, s, "/api/session")
	if diff := cmp.Diff(map[string]interface{}{"customerId": "guest", "isGuest": true}, body); diff != "" {
		t.Errorf("guest session mismatch (-want +got):\n%s", diff)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cust_003"})
	_, body = do(t, s.Handler(), req)
	if diff := cmp.Diff(map[string]interface{}{"customerId": "cust_003", "isGuest": false}, body); diff != "" {
		t.Errorf("cookie session mismatch (-want +got):\n%s", diff)
	}

	req.Header.Set(SessionHeader, "cust_001")
	_, body = do(t, s.Handler(), req)
	if body["customerId"] != "cust_001" {
		t.Errorf("header should win over cookie, got %v", body["customerId"])
	}
}

func TestStructure(t *testing.T) {
	s, _ := setupTestServer(t)

	var got Structure
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/structure", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}

	paths := make([]string, len(got.Routes))
	for i, r := range got.Routes {
		paths[i] = r.Path
	}
	want := []string{
		"/api/analytics",
		"/api/customers",
		"/api/data",
		"/api/inspect",
		"/api/orders",
		"/api/products",
		"/api/promotions",
		"/api/session",
		"/api/shipping",
		"/api/structure",
		"/api/support-tickets",
		"/api/customers/{id}",
		"/api/data/{path...}",
		"/api/orders/{id}",
		"/api/products/for-you",
		"/api/products/{id}",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}

	for _, r := range got.Routes {
		switch r.Path {
		case "/api/orders/{id}":
			if diff := cmp.Diff([]string{"id"}, r.Params); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		case "/api/support-tickets":
			if diff := cmp.Diff([]string{"status", "priority", "category", "sortBy"}, r.QueryParams); diff != "" {
				t.Errorf("query params mismatch (-want +got):\n%s", diff)
			}
		}
	}

	api := got.Tree["api"]
	if api == nil || len(api.Methods) != 0 {
		t.Fatalf("api should be an intermediate node: %+v", api)
	}
	if diff := cmp.Diff([]string{"POST"}, api.Children["products"].Children["for-you"].Methods); diff != "" {
		t.Errorf("for-you methods mismatch (-want +got):\n%s", diff)
	}
	if !got.Timestamp.Equal(testutil.Now) {
		t.Errorf("timestamp should come from the clock, got %v", got.Timestamp)
	}
}

func TestRequestID(t *testing.T) {
	s, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if _, err := uuid.Parse(w.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("expected a generated uuid, got %q", w.Header().Get(RequestIDHeader))
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != id {
		t.Errorf("valid incoming id should be echoed")
	}
}

func TestRecoverPanics(t *testing.T) {
	var logs bytes.Buffer
	s := New(storage.NewDataDir(t.TempDir()), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	h := s.withMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	resp, body := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if body["error"] != "An unexpected error occurred" {
		t.Errorf("unexpected body: %v", body)
	}
	if !strings.Contains(logs.String(), "handler panic") {
		t.Errorf("panic should be logged: %s", logs.String())
	}
}

func TestServeShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(storage.NewDataDir(t.TempDir()), WithLogger(slog.New(slog.DiscardHandler)))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
