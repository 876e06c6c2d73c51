package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/gate"
	"github.com/rl1809/bizdesk/internal/core/service"
	"github.com/rl1809/bizdesk/internal/obs"
)

const defaultSaleListLimit = 50

// Services groups the application services exposed over HTTP.
type Services struct {
	Inventory *service.InventoryService
	Contacts  *service.ContactService
	Reminders *service.ReminderService
	Sales     *service.SaleService
	Billing   *service.BillingService
	Insights  *service.InsightService
	Auth      *service.AuthService
	Gate      *gate.Gate
}

type HTTPHandler struct {
	svc     Services
	tokens  TokenVerifier
	metrics *obs.Metrics
	feed    *Feed
	admins  map[string]bool
}

type Option func(*HTTPHandler)

// WithAdmins lets the given account emails call the administrative routes.
func WithAdmins(emails ...string) Option {
	return func(h *HTTPHandler) {
		for _, e := range emails {
			if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
				h.admins[e] = true
			}
		}
	}
}

type RecordSaleHTTPRequest struct {
	RequestID string `json:"request_id"`
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
}

type LoginHTTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewHTTPHandler(svc Services, tokens TokenVerifier, metrics *obs.Metrics, feed *Feed, opts ...Option) *HTTPHandler {
	h := &HTTPHandler{
		svc:     svc,
		tokens:  tokens,
		metrics: metrics,
		feed:    feed,
		admins:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the gin engine with every route registered.
func (h *HTTPHandler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(), corsPolicy())

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	authRoutes := r.Group("/api/v1/auth")
	{
		authRoutes.POST("/signup", h.Signup)
		authRoutes.POST("/login", h.Login)
	}

	api := r.Group("/api/v1")
	api.Use(authenticate(h.tokens, false))
	{
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)

		api.GET("/inventory", h.ListItems)
		api.POST("/inventory", h.AddItem)
		api.GET("/inventory/low-stock", h.LowStock)
		api.GET("/inventory/:id", h.GetItem)
		api.PUT("/inventory/:id", h.UpdateItem)
		api.DELETE("/inventory/:id", h.DeleteItem)

		api.GET("/contacts", h.ListContacts)
		api.POST("/contacts", h.AddContact)
		api.PUT("/contacts/:id", h.UpdateContact)
		api.DELETE("/contacts/:id", h.DeleteContact)

		api.GET("/reminders", h.ListReminders)
		api.POST("/reminders", h.AddReminder)
		api.GET("/reminders/summary", h.ReminderSummary)
		api.PUT("/reminders/:id", h.UpdateReminder)
		api.POST("/reminders/:id/toggle", h.ToggleReminder)
		api.DELETE("/reminders/:id", h.DeleteReminder)

		api.GET("/sales", h.ListSales)
		api.POST("/sales", h.RecordSale)
		api.GET("/sales/today", h.TodaysSales)
		api.GET("/sales/:id", h.GetSale)
		api.GET("/sales/:id/receipt", h.Receipt)

		api.GET("/insights/basic", h.BasicInsights)
		api.GET("/insights/pro", h.ProInsights)
		api.GET("/features/:feature", h.CheckFeature)

		api.GET("/reports/csv", h.CSVReport)
		api.GET("/reports/business", h.BusinessReport)

		api.GET("/billing/plan", h.Plan)
		api.GET("/billing/tier", h.Tier)
		api.POST("/billing/upgrade", h.Upgrade)
	}

	admin := api.Group("/admin")
	admin.Use(requireAdmin(h.admins))
	{
		admin.POST("/billing/downgrade", h.Downgrade)
	}

	if h.feed != nil {
		r.GET("/ws", authenticate(h.tokens, true), h.feed.Serve)
	}
	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Auth

func (h *HTTPHandler) Signup(c *gin.Context) {
	var req service.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := h.svc.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req LoginHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *HTTPHandler) Logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), c.GetString(ctxUserID)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) Me(c *gin.Context) {
	user, err := h.svc.Auth.User(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// currentUser resolves the token subject, falling back to an empty user so
// reports use their default names.
func (h *HTTPHandler) currentUser(c *gin.Context) domain.User {
	user, err := h.svc.Auth.User(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		return domain.User{}
	}
	return user
}

// Inventory

func (h *HTTPHandler) ListItems(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Inventory.List())
}

func (h *HTTPHandler) GetItem(c *gin.Context) {
	item, err := h.svc.Inventory.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HTTPHandler) AddItem(c *gin.Context) {
	var req service.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.svc.Inventory.Add(req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *HTTPHandler) UpdateItem(c *gin.Context) {
	var req service.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.svc.Inventory.Update(c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HTTPHandler) DeleteItem(c *gin.Context) {
	if err := h.svc.Inventory.Delete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) LowStock(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Insights.LowStock())
}

// Contacts

func (h *HTTPHandler) ListContacts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Contacts.List(domain.ContactType(c.Query("type"))))
}

func (h *HTTPHandler) AddContact(c *gin.Context) {
	var req service.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	contact, err := h.svc.Contacts.Add(req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (h *HTTPHandler) UpdateContact(c *gin.Context) {
	var req service.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	contact, err := h.svc.Contacts.Update(c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *HTTPHandler) DeleteContact(c *gin.Context) {
	if err := h.svc.Contacts.Delete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reminders

func (h *HTTPHandler) ListReminders(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Reminders.List())
}

func (h *HTTPHandler) ReminderSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Reminders.Summary())
}

func (h *HTTPHandler) AddReminder(c *gin.Context) {
	var req service.ReminderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reminder, err := h.svc.Reminders.Add(req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

func (h *HTTPHandler) UpdateReminder(c *gin.Context) {
	var req service.ReminderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reminder, err := h.svc.Reminders.Update(c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

func (h *HTTPHandler) ToggleReminder(c *gin.Context) {
	reminder, err := h.svc.Reminders.ToggleComplete(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

func (h *HTTPHandler) DeleteReminder(c *gin.Context) {
	if err := h.svc.Reminders.Delete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sales

// RecordSale takes its idempotency key from request_id, then the
// Idempotency-Key header. Without either the sale is never deduplicated.
func (h *HTTPHandler) RecordSale(c *gin.Context) {
	var req RecordSaleHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetHeader("Idempotency-Key")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	sale, err := h.svc.Sales.RecordSale(c.Request.Context(), req.RequestID, req.ItemID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func (h *HTTPHandler) ListSales(c *gin.Context) {
	limit := defaultSaleListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, h.svc.Sales.List(limit))
}

func (h *HTTPHandler) TodaysSales(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Sales.Today())
}

func (h *HTTPHandler) GetSale(c *gin.Context) {
	sale, err := h.svc.Sales.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *HTTPHandler) Receipt(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.Insights.WriteReceipt(&buf, c.Param("id"), h.currentUser(c).BusinessName); err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Insights and reports

func (h *HTTPHandler) BasicInsights(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Insights.Basic())
}

func (h *HTTPHandler) ProInsights(c *gin.Context) {
	pro, err := h.svc.Insights.Pro()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pro)
}

func (h *HTTPHandler) CheckFeature(c *gin.Context) {
	feature := gate.Feature(c.Param("feature"))
	if err := h.svc.Gate.Check(feature); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feature": feature, "allowed": true})
}

func (h *HTTPHandler) CSVReport(c *gin.Context) {
	var buf bytes.Buffer
	name, err := h.svc.Insights.WriteCSV(&buf)
	if err != nil {
		fail(c, err)
		return
	}
	attachment(c, name, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *HTTPHandler) BusinessReport(c *gin.Context) {
	var buf bytes.Buffer
	name, err := h.svc.Insights.WriteBusinessReport(&buf, h.currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	attachment(c, name, "text/html; charset=utf-8", buf.Bytes())
}

func attachment(c *gin.Context, name, contentType string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, body)
}

// Billing

func (h *HTTPHandler) Plan(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Billing.Plan())
}

func (h *HTTPHandler) Tier(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tier": h.svc.Billing.Tier()})
}

func (h *HTTPHandler) Upgrade(c *gin.Context) {
	var req domain.PaymentDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	receipt, err := h.svc.Billing.Upgrade(c.Request.Context(), c.GetString(ctxUserID), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tier": h.svc.Billing.Tier(), "receipt": receipt})
}

func (h *HTTPHandler) Downgrade(c *gin.Context) {
	h.svc.Billing.Downgrade()
	c.JSON(http.StatusOK, gin.H{"tier": h.svc.Billing.Tier()})
}
