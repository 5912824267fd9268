package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	cerrors "github.com/connectbuy/catalog/internal/errors"
	"github.com/connectbuy/catalog/internal/service"
	"github.com/connectbuy/catalog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionName = "catalog_session_test"

// mockListingService is a mock implementation of the ListingService interface
type mockListingService struct {
	page       *service.ProductPage
	error      error
	lastParams url.Values
}

func (m *mockListingService) List(_ context.Context, params url.Values) (*service.ProductPage, error) {
	m.lastParams = params
	if m.error != nil {
		return nil, m.error
	}
	return m.page, nil
}

// mockProductService is a mock implementation of the ProductService interface
type mockProductService struct {
	product    *service.ProductDto
	error      error
	lastUserID int64
	lastID     int64
	lastCreate *service.ProductCreateDto
	lastUpdate *service.ProductUpdateDto
	lastImage  *storage.Upload
}

func (m *mockProductService) FindByID(_ context.Context, id int64) (*service.ProductDto, error) {
	m.lastID = id
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) Create(_ context.Context, userID int64, product service.ProductCreateDto, image *storage.Upload) (*service.ProductDto, error) {
	m.lastUserID = userID
	m.lastCreate = &product
	m.lastImage = image
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) Update(_ context.Context, id int64, product service.ProductUpdateDto, image *storage.Upload) (*service.ProductDto, error) {
	m.lastID = id
	m.lastUpdate = &product
	m.lastImage = image
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) Delete(_ context.Context, id int64) error {
	m.lastID = id
	return m.error
}

// mockBlobStore is a mock implementation of the BlobStore interface
type mockBlobStore struct {
	content string
	error   error
}

func (m *mockBlobStore) Store(_ context.Context, _ storage.Upload) (string, error) {
	return "", m.error
}

func (m *mockBlobStore) Delete(_ context.Context, _ string) error {
	return m.error
}

func (m *mockBlobStore) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	if m.error != nil {
		return nil, m.error
	}
	return io.NopCloser(strings.NewReader(m.content)), nil
}

type testEnv struct {
	router   http.Handler
	sessions sessions.Store
	listing  *mockListingService
	products *mockProductService
	blobs    *mockBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessionStore := sessions.NewCookieStore([]byte("test-session-secret"))
	env := &testEnv{
		sessions: sessionStore,
		listing:  &mockListingService{page: &service.ProductPage{Items: []service.ProductDto{}}},
		products: &mockProductService{product: &service.ProductDto{ID: 1, Name: "Test Product"}},
		blobs:    &mockBlobStore{content: "image-bytes"},
	}
	router := chi.NewRouter()
	handler := NewHandler(env.listing, env.products, env.blobs, sessionStore, testSessionName, slog.New(slog.DiscardHandler))
	handler.RegisterRoutes(router)
	env.router = router
	return env
}

// authenticate issues a session cookie for the given user and attaches it to
// the request.
func (e *testEnv) authenticate(t *testing.T, req *http.Request, userID int64) {
	t.Helper()
	seed := httptest.NewRequest(http.MethodGet, "/", nil)
	session, err := e.sessions.Get(seed, testSessionName)
	require.NoError(t, err)
	session.Values[SessionUserKey] = userID

	rec := httptest.NewRecorder()
	require.NoError(t, session.Save(seed, rec))
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type pagePayload struct {
	Component string                     `json:"component"`
	Props     map[string]json.RawMessage `json:"props"`
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) pagePayload {
	t.Helper()
	var payload pagePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func Test_Handler_RequireSession(t *testing.T) {
	// given
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/products/", nil)

	// when
	rec := env.do(req)

	// then
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message": "Unauthenticated", "code": 401}`, rec.Body.String())
}

func Test_Handler_Index(t *testing.T) {
	// given
	env := newTestEnv(t)
	env.listing.page = &service.ProductPage{
		Items: []service.ProductDto{{ID: 1, Name: "Test Product"}},
		Pagination: service.PaginationDto{
			Total: 1, PerPage: 10, CurrentPage: 1, LastPage: 1, From: 1, To: 1,
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/products/?search=Test", nil)
	env.authenticate(t, req, 7)

	// when
	rec := env.do(req)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodePage(t, rec)
	assert.Equal(t, "products/AllProducts", page.Component)

	var paginator struct {
		Data    []service.ProductDto `json:"data"`
		Total   int64                `json:"total"`
		PerPage int                  `json:"per_page"`
	}
	require.NoError(t, json.Unmarshal(page.Props["products"], &paginator))
	assert.Len(t, paginator.Data, 1)
	assert.Equal(t, int64(1), paginator.Total)
	assert.Equal(t, 10, paginator.PerPage)
	assert.Equal(t, "Test", env.listing.lastParams.Get("search"))
}

func Test_Handler_Index_InvalidSortDirection(t *testing.T) {
	// given
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/products/?sort_direction=sideways", nil)
	env.authenticate(t, req, 7)

	// when
	rec := env.do(req)

	// then
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, env.listing.lastParams)
}

func Test_Handler_Show(t *testing.T) {
	testCases := []struct {
		name           string
		path           string
		productErr     error
		expectedStatus int
	}{
		{
			name:           "Success",
			path:           "/products/1",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Error - not found",
			path:           "/products/99",
			productErr:     cerrors.ErrProductNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Error - invalid ID",
			path:           "/products/abc",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			env := newTestEnv(t)
			env.products.error = tc.productErr
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			env.authenticate(t, req, 7)

			// when
			rec := env.do(req)

			// then
			assert.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectedStatus == http.StatusOK {
				assert.Equal(t, "products/ProductDetails", decodePage(t, rec).Component)
			}
		})
	}
}

// multipartBody builds a multipart form with the given fields and an optional
// image part.
func multipartBody(t *testing.T, fields map[string]string, imageName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if imageName != "" {
		part, err := writer.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func Test_Handler_Store(t *testing.T) {
	// given
	env := newTestEnv(t)
	body, contentType := multipartBody(t, map[string]string{
		"name":        "New Product",
		"description": "A new product",
		"price":       "1999",
		"stock":       "5",
	}, "photo.png")
	req := httptest.NewRequest(http.MethodPost, "/products/", body)
	req.Header.Set("Content-Type", contentType)
	env.authenticate(t, req, 7)

	// when
	rec := env.do(req)

	// then
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "products/EditProduct", decodePage(t, rec).Component)
	assert.Equal(t, int64(7), env.products.lastUserID)
	require.NotNil(t, env.products.lastCreate)
	assert.Equal(t, "New Product", env.products.lastCreate.Name)
	assert.Equal(t, int64(1999), env.products.lastCreate.Price)
	assert.Equal(t, int32(5), env.products.lastCreate.Stock)
	require.NotNil(t, env.products.lastImage)
	assert.Equal(t, "photo.png", env.products.lastImage.Filename)
}

func Test_Handler_Store_Validation(t *testing.T) {
	testCases := []struct {
		name       string
		fields     map[string]string
		errorField string
	}{
		{
			name:       "Error - missing name",
			fields:     map[string]string{"price": "100", "stock": "1"},
			errorField: "Name",
		},
		{
			name:       "Error - price is not a number",
			fields:     map[string]string{"name": "P", "price": "a lot", "stock": "1"},
			errorField: "price",
		},
		{
			name:       "Error - stock is not an integer",
			fields:     map[string]string{"name": "P", "price": "100", "stock": "many"},
			errorField: "stock",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			env := newTestEnv(t)
			body, contentType := multipartBody(t, tc.fields, "")
			req := httptest.NewRequest(http.MethodPost, "/products/", body)
			req.Header.Set("Content-Type", contentType)
			env.authenticate(t, req, 7)

			// when
			rec := env.do(req)

			// then
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			var payload struct {
				Errors map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Contains(t, payload.Errors, tc.errorField)
			assert.Nil(t, env.products.lastCreate)
		})
	}
}

func Test_Handler_Store_UnsupportedImage(t *testing.T) {
	// given
	env := newTestEnv(t)
	env.products.error = storage.ErrUnsupportedImage
	body, contentType := multipartBody(t, map[string]string{
		"name": "P", "price": "100", "stock": "1",
	}, "report.pdf")
	req := httptest.NewRequest(http.MethodPost, "/products/", body)
	req.Header.Set("Content-Type", contentType)
	env.authenticate(t, req, 7)

	// when
	rec := env.do(req)

	// then
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var payload struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload.Errors, "image")
}

func Test_Handler_Update_PartialForm(t *testing.T) {
	// given
	env := newTestEnv(t)
	form := url.Values{"price": {"2999"}}
	req := httptest.NewRequest(http.MethodPut, "/products/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	env.authenticate(t, req, 7)

	// when
	rec := env.do(req)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), env.products.lastID)
	require.NotNil(t, env.products.lastUpdate)
	require.NotNil(t, env.products.lastUpdate.Price)
	assert.Equal(t, int64(2999), *env.products.lastUpdate.Price)
	assert.Nil(t, env.products.lastUpdate.Name)
	assert.Nil(t, env.products.lastUpdate.Description)
	assert.Nil(t, env.products.lastUpdate.Stock)
	assert.Nil(t, env.products.lastUpdate.IsActive)
	assert.Nil(t, env.products.lastImage)
}

func Test_Handler_Update_ExplicitFalse(t *testing.T) {
	// given
	env := newTestEnv(t)
	form := url.Values{"is_active": {"false"}}
	req := httptest.NewRequest(http.MethodPut, "/products/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	env.authenticate(t, req, 7)

	// when
	rec := env.do(req)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.products.lastUpdate)
	require.NotNil(t, env.products.lastUpdate.IsActive)
	assert.False(t, *env.products.lastUpdate.IsActive)
}

func Test_Handler_Update_NotFound(t *testing.T) {
	// given
	env := newTestEnv(t)
	env.products.error = cerrors.ErrProductNotFound
	form := url.Values{"name": {"Renamed"}}
	req := httptest.NewRequest(http.MethodPut, "/products/99", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	env.authenticate(t, req, 7)

	// when
	rec := env.do(req)

	// then
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_Handler_Destroy(t *testing.T) {
	testCases := []struct {
		name           string
		productErr     error
		expectedStatus int
	}{
		{
			name:           "Success",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "Error - not found",
			productErr:     cerrors.ErrProductNotFound,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			env := newTestEnv(t)
			env.products.error = tc.productErr
			req := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
			env.authenticate(t, req, 7)

			// when
			rec := env.do(req)

			// then
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, int64(1), env.products.lastID)
		})
	}
}

func Test_Handler_Asset(t *testing.T) {
	// given
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/asset/images/photo.png", nil)

	// when, no session required
	rec := env.do(req)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "image-bytes", rec.Body.String())
}

func Test_Handler_Asset_NotFound(t *testing.T) {
	// given
	env := newTestEnv(t)
	env.blobs.error = storage.ErrBlobNotFound
	req := httptest.NewRequest(http.MethodGet, "/asset/images/missing.png", nil)

	// when
	rec := env.do(req)

	// then
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
