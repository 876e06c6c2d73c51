package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/bizdesk/internal/adapter/auth"
	"github.com/rl1809/bizdesk/internal/adapter/payment"
	"github.com/rl1809/bizdesk/internal/adapter/storage"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/gate"
	"github.com/rl1809/bizdesk/internal/core/service"
	"github.com/rl1809/bizdesk/internal/core/store"
	"github.com/rl1809/bizdesk/internal/obs"
)

type testApp struct {
	router *gin.Engine
	store  *store.Store
	tokens *auth.TokenManager
	feed   *Feed
	token  string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(store.NewState())
	cache := storage.NewMemoryAdapter()
	metrics := obs.NewMetrics()
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	g := gate.New(st, gate.WithPaywallHook(func(f gate.Feature) { metrics.PaywallHit(string(f)) }))
	gateway := payment.NewSandbox(
		payment.WithSuccessRate(1),
		payment.WithDelay(domain.PaymentMethodCard, 0),
		payment.WithDelay(domain.PaymentMethodUPI, 0),
		payment.WithDelay(domain.PaymentMethodNetBanking, 0),
	)
	svc := Services{
		Inventory: service.NewInventoryService(st),
		Contacts:  service.NewContactService(st),
		Reminders: service.NewReminderService(st),
		Sales:     service.NewSaleService(st, cache, metrics),
		Billing: service.NewBillingService(st, gateway, cache, metrics, service.BillingConfig{
			Price:    decimal.NewFromInt(99),
			Currency: "INR",
			LockTTL:  time.Minute,
		}),
		Insights: service.NewInsightService(st, g, 10),
		Auth:     service.NewAuthService(cache, tokens),
		Gate:     g,
	}
	feed := NewFeed()
	t.Cleanup(feed.Attach(st))
	t.Cleanup(feed.Close)

	app := &testApp{
		router: NewHTTPHandler(svc, tokens, metrics, feed, WithAdmins("owner@shop.in")).Router(),
		store:  st,
		tokens: tokens,
		feed:   feed,
	}

	app.token = app.signup(t, "Owner@Shop.in", "Rao Stores").Token
	return app
}

func (a *testApp) signup(t *testing.T, email, business string) service.Session {
	t.Helper()
	token := a.token
	a.token = ""
	defer func() { a.token = token }()

	w := a.do(http.MethodPost, "/api/v1/auth/signup", gin.H{
		"email":         email,
		"password":      "secret123",
		"business_name": business,
		"owner_name":    "Asha Rao",
		"phone":         "9876543210",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[service.Session](t, w)
}

func (a *testApp) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testApp) addItem(t *testing.T, name string, qty int) domain.InventoryItem {
	t.Helper()
	w := a.do(http.MethodPost, "/api/v1/inventory", gin.H{
		"name":          name,
		"quantity":      qty,
		"cost_price":    "40",
		"selling_price": "55",
		"category":      "Groceries",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.InventoryItem](t, w)
}

func TestHealthAndAuthRequired(t *testing.T) {
	app := newTestApp(t)
	token := app.token
	app.token = ""

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/v1/inventory", nil).Code)

	app.token = "not-a-jwt"
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/v1/inventory", nil).Code)

	app.token = token
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/v1/inventory", nil).Code)
	assert.NotEmpty(t, app.do(http.MethodGet, "/health", nil).Header().Get(requestIDHeader))
}

func TestLoginAndMe(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "owner@shop.in", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode[map[string]string](t, w)["error"])

	w = app.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "OWNER@shop.in", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[service.Session](t, w).Token)

	w = app.do(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rao Stores", decode[domain.User](t, w).BusinessName)

	w = app.do(http.MethodPost, "/api/v1/auth/signup", gin.H{
		"email": "owner@shop.in", "password": "secret123", "business_name": "B", "owner_name": "O", "phone": "1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusNoContent, app.do(http.MethodPost, "/api/v1/auth/logout", nil).Code)
}

func TestMeFollowsTokenSubject(t *testing.T) {
	app := newTestApp(t)
	ownerToken := app.token
	item := app.addItem(t, "Tea", 5)
	w := app.do(http.MethodPost, "/api/v1/sales", gin.H{"item_id": item.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	sale := decode[domain.Sale](t, w)

	other := app.signup(t, "b@other.in", "B Mart")

	w = app.do(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner@shop.in", decode[domain.User](t, w).Email)

	w = app.do(http.MethodGet, "/api/v1/sales/"+sale.ID+"/receipt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rao Stores")
	assert.NotContains(t, w.Body.String(), "B Mart")

	app.token = other.Token
	assert.Equal(t, http.StatusNoContent, app.do(http.MethodPost, "/api/v1/auth/logout", nil).Code)

	app.token = ownerToken
	w = app.do(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rao Stores", decode[domain.User](t, w).BusinessName)
}

func TestTokenQueryOnlyOnFeed(t *testing.T) {
	app := newTestApp(t)
	token := app.token
	app.token = ""

	w := app.do(http.MethodGet, "/api/v1/inventory?token="+url.QueryEscape(token), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDowngradeIsAdminOnly(t *testing.T) {
	app := newTestApp(t)
	ownerToken := app.token
	app.store.Dispatch(store.UpgradeToPro{})

	app.token = app.signup(t, "b@other.in", "B Mart").Token
	w := app.do(http.MethodPost, "/api/v1/admin/billing/downgrade", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, domain.TierPro, app.store.Tier())
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPost, "/api/v1/billing/downgrade", nil).Code)

	app.token = ownerToken
	w = app.do(http.MethodPost, "/api/v1/admin/billing/downgrade", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.TierFree, app.store.Tier())
}

func TestInventoryCRUD(t *testing.T) {
	app := newTestApp(t)
	item := app.addItem(t, "Rice", 20)

	w := app.do(http.MethodPut, "/api/v1/inventory/"+item.ID, gin.H{
		"name": "Basmati Rice", "quantity": 18, "cost_price": "42", "selling_price": "60",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[domain.InventoryItem](t, w)
	assert.Equal(t, "Basmati Rice", updated.Name)
	assert.Equal(t, item.CreatedAt.Unix(), updated.CreatedAt.Unix())

	w = app.do(http.MethodPost, "/api/v1/inventory", gin.H{"name": "", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decode[map[string]string](t, w)["field"])

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/v1/inventory/missing", nil).Code)
	assert.Equal(t, http.StatusNoContent, app.do(http.MethodDelete, "/api/v1/inventory/"+item.ID, nil).Code)
	assert.Empty(t, decode[[]domain.InventoryItem](t, app.do(http.MethodGet, "/api/v1/inventory", nil)))
}

func TestRecordSaleFlow(t *testing.T) {
	app := newTestApp(t)
	item := app.addItem(t, "Tea", 3)

	w := app.do(http.MethodPost, "/api/v1/sales", gin.H{"request_id": "req-1", "item_id": item.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := decode[domain.Sale](t, w)
	assert.True(t, decimal.NewFromInt(110).Equal(sale.TotalAmount))
	assert.True(t, decimal.NewFromInt(30).Equal(sale.Profit))

	cases := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"duplicate request", gin.H{"request_id": "req-1", "item_id": item.ID, "quantity": 1}, http.StatusConflict},
		{"oversell", gin.H{"request_id": "req-2", "item_id": item.ID, "quantity": 5}, http.StatusConflict},
		{"zero quantity", gin.H{"request_id": "req-3", "item_id": item.ID, "quantity": 0}, http.StatusBadRequest},
		{"unknown item", gin.H{"request_id": "req-4", "item_id": "nope", "quantity": 1}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, app.do(http.MethodPost, "/api/v1/sales", tc.body).Code)
		})
	}

	got, ok := app.store.Snapshot().Item(item.ID)
	require.True(t, ok)
	assert.Equal(t, 1, got.Quantity)

	assert.Len(t, decode[[]domain.Sale](t, app.do(http.MethodGet, "/api/v1/sales/today", nil)), 1)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/api/v1/sales?limit=zero", nil).Code)

	w = app.do(http.MethodGet, "/api/v1/sales/"+sale.ID+"/receipt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rao Stores")
	assert.Contains(t, w.Body.String(), sale.ID[len(sale.ID)-6:])
}

func TestPaywallAndUpgrade(t *testing.T) {
	app := newTestApp(t)
	app.addItem(t, "Oil", 30)

	w := app.do(http.MethodGet, "/api/v1/insights/pro", nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "paywall", body["error"])
	assert.Equal(t, string(gate.PremiumAnalytics), body["feature"])

	w = app.do(http.MethodGet, "/api/v1/reports/business", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))

	w = app.do(http.MethodGet, "/api/v1/features/"+url.PathEscape(string(gate.SmartTips)), nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = app.do(http.MethodPost, "/api/v1/billing/upgrade", gin.H{"method": "card", "card_number": "4111"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Please enter a valid card number", decode[map[string]string](t, w)["error"])

	declined := gin.H{"method": "card", "card_number": "4000 0000 0000 0002", "expiry_date": "12/30", "cvv": "123", "cardholder_name": "Asha"}
	w = app.do(http.MethodPost, "/api/v1/billing/upgrade", declined)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "Payment declined by test bank", decode[map[string]string](t, w)["reason"])
	assert.Equal(t, domain.TierFree, app.store.Tier())

	w = app.do(http.MethodPost, "/api/v1/billing/upgrade", gin.H{"method": "upi", "upi_id": "asha@upi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.TierPro, app.store.Tier())

	w = app.do(http.MethodPost, "/api/v1/billing/upgrade", gin.H{"method": "upi", "upi_id": "asha@upi"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/v1/insights/pro", nil).Code)
	w = app.do(http.MethodGet, "/api/v1/reports/business", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "business-report-")
	assert.Contains(t, w.Body.String(), "Rao Stores")

	w = app.do(http.MethodPost, "/api/v1/admin/billing/downgrade", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.TierFree, app.store.Tier())

	w = app.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bizdesk_paywall_hits_total")
	assert.Contains(t, w.Body.String(), `outcome="declined"`)
}

func TestCSVReport(t *testing.T) {
	app := newTestApp(t)
	item := app.addItem(t, "Soap, pack of 4", 10)
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/api/v1/sales", gin.H{"item_id": item.ID, "quantity": 1}).Code)

	w := app.do(http.MethodGet, "/api/v1/reports/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "basic-report-")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Item,Quantity,Revenue,Profit", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], `"Soap, pack of 4"`)
}

func TestContactsAndReminders(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/v1/contacts", gin.H{"name": "Sharma Wholesale", "phone": "98100", "type": "supplier"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = app.do(http.MethodPost, "/api/v1/contacts", gin.H{"name": "Priya", "phone": "98450", "type": "customer"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/api/v1/contacts", gin.H{"name": "X", "phone": "1", "type": "vendor"}).Code)

	suppliers := decode[[]domain.Contact](t, app.do(http.MethodGet, "/api/v1/contacts?type=supplier", nil))
	require.Len(t, suppliers, 1)
	assert.Equal(t, "Sharma Wholesale", suppliers[0].Name)

	w = app.do(http.MethodPost, "/api/v1/reminders", gin.H{
		"title":           "Pay invoice",
		"recipient_name":  "Sharma Wholesale",
		"recipient_phone": "98100",
		"due_date":        time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reminder := decode[domain.Reminder](t, w)

	summary := decode[service.ReminderSummary](t, app.do(http.MethodGet, "/api/v1/reminders/summary", nil))
	assert.Equal(t, 1, summary.Overdue)

	w = app.do(http.MethodPost, "/api/v1/reminders/"+reminder.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.Reminder](t, w).IsCompleted)

	views := decode[[]service.ReminderView](t, app.do(http.MethodGet, "/api/v1/reminders", nil))
	require.Len(t, views, 1)
	assert.Equal(t, domain.ReminderStatusCompleted, views[0].Status)

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, "/api/v1/reminders/missing", nil).Code)
}

func TestFeedStreamsAppliedActions(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + url.QueryEscape(app.token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return app.feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	app.store.Dispatch(store.UpgradeToPro{})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev FeedEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, store.TypeUpgradeToPro, ev.Type)
	assert.Equal(t, domain.TierPro, ev.Tier)
}

func TestFeedRejectsMissingToken(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
