package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/core/service"
	"github.com/rl1809/shop-admin/internal/port"
)

const defaultMaxUploadBytes = 8 << 20

type HTTPConfig struct {
	// RequireAuth guards the product, order and upload routes with a session.
	RequireAuth    bool
	MaxUploadBytes int64
}

type HTTPHandler struct {
	catalog  *service.CatalogService
	orders   *service.OrderService
	identity *service.IdentityService
	uploader port.ImageUploader
	store    port.StateStore
	cfg      HTTPConfig
	logger   *slog.Logger
}

// NewHTTPHandler wires the services behind the REST API. uploader may be nil,
// in which case /api/uploads reports an upload failure.
func NewHTTPHandler(
	catalog *service.CatalogService,
	orders *service.OrderService,
	identity *service.IdentityService,
	uploader port.ImageUploader,
	store port.StateStore,
	cfg HTTPConfig,
	logger *slog.Logger,
) *HTTPHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{
		catalog:  catalog,
		orders:   orders,
		identity: identity,
		uploader: uploader,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

func (h *HTTPHandler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger))
	r.MaxMultipartMemory = h.cfg.MaxUploadBytes

	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/federated", h.federatedLogin)

		session := auth.Group("", h.requireAuth)
		session.POST("/logout", h.logout)
		session.GET("/me", h.me)
		session.GET("/events", h.authEvents)
	}

	api.GET("/feed/products", h.feedProducts)

	protected := api.Group("")
	if h.cfg.RequireAuth {
		protected.Use(h.requireAuth)
	}

	protected.POST("/feed/products", h.appendFeedProduct)

	limit := h.limitBody(h.cfg.MaxUploadBytes)

	products := protected.Group("/products")
	{
		products.GET("", h.listProducts)
		products.POST("", limit, h.createProduct)
		products.GET("/categories", h.categories)
		products.POST("/bulk-delete", h.bulkDeleteProducts)
		products.GET("/:id", h.getProduct)
		products.PUT("/:id", limit, h.updateProduct)
		products.DELETE("/:id", h.deleteProduct)
	}

	orders := protected.Group("/orders")
	{
		orders.GET("", h.listOrders)
		orders.POST("", h.createOrder)
		orders.POST("/quote", h.quoteOrder)
		orders.GET("/:id", h.getOrder)
		orders.PATCH("/:id", h.updateOrder)
		orders.DELETE("/:id", h.deleteOrder)
		orders.GET("/:id/reprice", h.repriceOrder)
	}

	protected.POST("/uploads", limit, h.uploadImage)

	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "state store unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, badRequest("body", "invalid request body"))
		return
	}

	session, err := h.identity.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusCreated, "account created", session)
}

func (h *HTTPHandler) login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, badRequest("body", "invalid request body"))
		return
	}

	session, err := h.identity.SignInWithPassword(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "signed in", session)
}

func (h *HTTPHandler) federatedLogin(c *gin.Context) {
	var req domain.FederatedLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, badRequest("body", "invalid request body"))
		return
	}

	session, err := h.identity.SignInFederated(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "signed in", session)
}

func (h *HTTPHandler) logout(c *gin.Context) {
	_, sessionID := currentIdentity(c)
	h.identity.SignOut(c.Request.Context(), sessionID)
	writeOK(c, http.StatusOK, "signed out", nil)
}

func (h *HTTPHandler) me(c *gin.Context) {
	identity, _ := currentIdentity(c)
	writeOK(c, http.StatusOK, "", identity)
}

// authEvents streams the caller's auth state as server-sent events: the
// current state first, then every change until the session ends or the
// client goes away.
func (h *HTTPHandler) authEvents(c *gin.Context) {
	identity, sessionID := currentIdentity(c)

	states := make(chan domain.AuthState, 8)
	unsubscribe := h.identity.Subscribe(func(s domain.AuthState) {
		mine := s.SessionID == sessionID || (s.Identity != nil && s.Identity.UID == identity.UID)
		if !mine {
			return
		}
		select {
		case states <- s:
		default:
			h.logger.Warn("auth event dropped for slow subscriber", "session_id", sessionID)
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("auth", domain.AuthState{Identity: identity, SessionID: sessionID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case s := <-states:
			c.SSEvent("auth", s)
			return s.SessionID != sessionID || s.SignedIn()
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *HTTPHandler) uploadImage(c *gin.Context) {
	if h.uploader == nil {
		writeError(c, h.logger, &domain.UploadError{Err: errNoUploader})
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		writeError(c, h.logger, bodyError(err, badRequest("image", "an image file is required")))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, h.logger, badRequest("image", "unreadable image file"))
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusCreated, "image uploaded", gin.H{"url": url})
}
