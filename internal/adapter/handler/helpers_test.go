package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/shop-admin/internal/adapter/identity"
	"github.com/rl1809/shop-admin/internal/adapter/storage"
	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/core/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers struct {
	mu    sync.Mutex
	users []domain.User
}

func (m *memUsers) Create(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrUserExists
		}
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.ID == id })
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Email == email })
}

func (m *memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeUploader struct {
	mu    sync.Mutex
	url   string
	err   error
	names []string
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	io.Copy(io.Discard, content)
	f.names = append(f.names, filename)
	if f.err != nil {
		return "", &domain.UploadError{Err: f.err}
	}
	return f.url, nil
}

type testEnv struct {
	router   *gin.Engine
	catalog  *service.CatalogService
	orders   *service.OrderService
	identity *service.IdentityService
	uploader *fakeUploader
}

func newTestEnv(t *testing.T, requireAuth bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore()
	uploader := &fakeUploader{url: "https://i.ibb.co/x/photo.png"}

	catalog := service.NewCatalogService(storage.NewCatalogStore(store), service.WithUploader(uploader), service.WithLogger(logger))
	orders := service.NewOrderService(storage.NewOrderStore(store), catalog, service.WithLogger(logger))
	ids := service.NewIdentityService(
		&memUsers{},
		identity.NewBcryptHasher(bcrypt.MinCost),
		identity.NewJWTManager(identity.JWTConfig{Secret: "test", TTL: time.Hour, Issuer: "shop-admin"}),
		nil,
		service.WithLogger(logger),
	)

	h := NewHTTPHandler(catalog, orders, ids, uploader, store, HTTPConfig{RequireAuth: requireAuth}, logger)
	return &testEnv{router: h.Router(), catalog: catalog, orders: orders, identity: ids, uploader: uploader}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

// decodeData re-decodes the envelope's data field into out.
func decodeData(t *testing.T, resp Response, out any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func (e *testEnv) register(t *testing.T) domain.Session {
	t.Helper()
	rec, resp := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Nadia", "email": "nadia@example.com", "password": "Sup3r!secret",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session domain.Session
	decodeData(t, resp, &session)
	return session
}

func (e *testEnv) seedProducts(t *testing.T) []domain.Product {
	t.Helper()
	var out []domain.Product
	for _, d := range []domain.ProductDraft{
		{ProductName: "Keyboard", SKU: "KB-1", Category: "Peripherals", Price: 100, Stock: 4},
		{ProductName: "Mouse", SKU: "MS-1", Category: "Peripherals", Price: 50, Stock: 9},
	} {
		p, err := e.catalog.Create(context.Background(), d, nil)
		require.NoError(t, err)
		out = append(out, *p)
	}
	return out
}
