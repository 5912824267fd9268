package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	cerrors "github.com/connectbuy/catalog/internal/errors"
	"github.com/connectbuy/catalog/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

// mockAuthService is a mock implementation of the AuthService interface
type mockAuthService struct {
	token      *service.TokenDto
	userID     int64
	loginErr   error
	logoutErr  error
	refreshErr error
	verifyErr  error
	lastToken  string
}

func (m *mockAuthService) Login(_ context.Context, _, _ string) (*service.TokenDto, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.token, nil
}

func (m *mockAuthService) Logout(_ context.Context, token string) error {
	m.lastToken = token
	return m.logoutErr
}

func (m *mockAuthService) Refresh(_ context.Context, token string) (*service.TokenDto, error) {
	m.lastToken = token
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.token, nil
}

func (m *mockAuthService) Verify(_ context.Context, _ string) (int64, error) {
	if m.verifyErr != nil {
		return 0, m.verifyErr
	}
	return m.userID, nil
}

func newTestRouter(listing service.ListingService, auth service.AuthService) http.Handler {
	router := chi.NewRouter()
	handler := NewHandler(listing, auth, slog.New(slog.DiscardHandler))
	handler.RegisterRoutes(router)
	return router
}

func Test_Handler_Ping(t *testing.T) {
	// given
	router := newTestRouter(&mockListingService{}, &mockAuthService{})
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	// when
	router.ServeHTTP(rec, req)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "message": "ConnectBuy API is working!"}`, rec.Body.String())
}

func Test_Handler_Login(t *testing.T) {
	token := &service.TokenDto{Token: "signed", TokenType: "bearer", ExpiresIn: 3600}

	testCases := []struct {
		name           string
		body           string
		loginErr       error
		expectedStatus int
		checkResponse  func(t *testing.T, body string)
	}{
		{
			name:           "Success",
			body:           `{"email": "ada@example.com", "password": "secret"}`,
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"data": {"token": "signed", "token_type": "bearer", "expires_in": 3600}}`, body)
			},
		},
		{
			name:           "Error - malformed JSON",
			body:           `{"email": `,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Error - missing password",
			body:           `{"email": "ada@example.com"}`,
			expectedStatus: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, body string) {
				var payload struct {
					Errors map[string]string `json:"errors"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &payload))
				assert.Contains(t, payload.Errors, "Password")
			},
		},
		{
			name:           "Error - invalid email format",
			body:           `{"email": "not-an-email", "password": "secret"}`,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "Error - wrong credentials",
			body:           `{"email": "ada@example.com", "password": "wrong"}`,
			loginErr:       cerrors.ErrInvalidCredentials,
			expectedStatus: http.StatusUnauthorized,
			checkResponse: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"message": "Email or password is incorrect.", "code": 401}`, body)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			router := newTestRouter(&mockListingService{}, &mockAuthService{token: token, loginErr: tc.loginErr})
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			// when
			router.ServeHTTP(rec, req)

			// then
			assert.Equal(t, tc.expectedStatus, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec.Body.String())
			}
		})
	}
}

func Test_Handler_RequireBearer(t *testing.T) {
	testCases := []struct {
		name           string
		authHeader     string
		verifyErr      error
		expectedStatus int
	}{
		{
			name:           "Error - missing header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Error - not a bearer scheme",
			authHeader:     "Basic abc",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Error - invalid token",
			authHeader:     "Bearer bad",
			verifyErr:      cerrors.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Success",
			authHeader:     "Bearer good",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			listing := &mockListingService{page: &service.ProductPage{Items: []service.ProductDto{}}}
			router := newTestRouter(listing, &mockAuthService{userID: 7, verifyErr: tc.verifyErr})
			req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()

			// when
			router.ServeHTTP(rec, req)

			// then
			assert.Equal(t, tc.expectedStatus, rec.Code)
		})
	}
}

func Test_Handler_ListProducts(t *testing.T) {
	page := &service.ProductPage{
		Items: []service.ProductDto{{ID: 1, Name: "Test Product", Price: 1999}},
		Pagination: service.PaginationDto{
			Total: 1, PerPage: 10, CurrentPage: 1, LastPage: 1, From: 1, To: 1,
		},
	}

	// given
	listing := &mockListingService{page: page}
	router := newTestRouter(listing, &mockAuthService{userID: 7})
	req := httptest.NewRequest(http.MethodGet, "/v1/products?search=Test&page=1", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	// when
	router.ServeHTTP(rec, req)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Data struct {
			Products   []service.ProductDto  `json:"products"`
			Pagination service.PaginationDto `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Data.Products, 1)
	assert.Equal(t, "Test Product", payload.Data.Products[0].Name)
	assert.Equal(t, int64(1), payload.Data.Pagination.Total)
	assert.Equal(t, "Test", listing.lastParams.Get("search"))
}

func Test_Handler_ListProducts_InvalidSortDirection(t *testing.T) {
	// given
	listing := &mockListingService{}
	router := newTestRouter(listing, &mockAuthService{userID: 7})
	req := httptest.NewRequest(http.MethodGet, "/v1/products?sort_direction=sideways", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	// when
	router.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, listing.lastParams)
}

func Test_Handler_Logout(t *testing.T) {
	// given
	auth := &mockAuthService{userID: 7}
	router := newTestRouter(&mockListingService{}, auth)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer current-token")
	rec := httptest.NewRecorder()

	// when
	router.ServeHTTP(rec, req)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "current-token", auth.lastToken)
	assert.JSONEq(t, `{"data": {"message": "Session closed successfully"}}`, rec.Body.String())
}

func Test_Handler_Refresh(t *testing.T) {
	// given
	auth := &mockAuthService{userID: 7, token: &service.TokenDto{Token: "rotated", TokenType: "bearer", ExpiresIn: 3600}}
	router := newTestRouter(&mockListingService{}, auth)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()

	// when
	router.ServeHTTP(rec, req)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stale-token", auth.lastToken)
	assert.JSONEq(t, `{"data": {"token": "rotated", "token_type": "bearer", "expires_in": 3600}}`, rec.Body.String())
}
