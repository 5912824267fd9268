// Package web provides the session-authenticated handlers serving JSON page
// payloads for the SPA shell.
package web

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	cerrors "github.com/connectbuy/catalog/internal/errors"
	"github.com/connectbuy/catalog/internal/service"
	"github.com/connectbuy/catalog/internal/storage"
	pkgweb "github.com/connectbuy/catalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
)

// SessionUserKey is the session value holding the authenticated user's ID.
const SessionUserKey = "user_id"

// maxFormMemory bounds the in-memory part of multipart form parsing; larger
// file parts spill to disk.
const maxFormMemory = storage.MaxUploadSize

type Handler struct {
	listing     service.ListingService
	products    service.ProductService
	blobs       storage.BlobStore
	sessions    sessions.Store
	sessionName string
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewHandler creates a new web handler with the provided services and
// session store.
func NewHandler(listing service.ListingService, products service.ProductService, blobs storage.BlobStore, sessionStore sessions.Store, sessionName string, logger *slog.Logger) *Handler {
	return &Handler{
		listing:     listing,
		products:    products,
		blobs:       blobs,
		sessions:    sessionStore,
		sessionName: sessionName,
		validate:    validator.New(),
		logger:      logger.With("component", "web"),
	}
}

// RegisterRoutes registers the web routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/asset/*", h.Asset)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Index)
			r.Get("/create", h.CreatePage)
			r.Post("/", h.Store)
			r.Get("/{id}", h.Show)
			r.Get("/{id}/edit", h.EditPage)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Destroy)
		})
	})
}

// Index renders the paginated products listing page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	params := r.URL.Query()
	if err := h.validate.Var(params.Get("sort_direction"), "omitempty,oneof=asc desc"); err != nil {
		pkgweb.RespondError(w, mLogger, http.StatusBadRequest, "sort_direction must be asc or desc")
		return
	}

	page, err := h.listing.List(r.Context(), params)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		pkgweb.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	h.renderPage(w, mLogger, http.StatusOK, "products/AllProducts", map[string]any{
		"products": paginatorPayload(page),
	})
}

// CreatePage renders the product creation page.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, h.loggerWithReqID(r), http.StatusOK, "products/CreateProduct", map[string]any{})
}

// Show renders the product detail page.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := pkgweb.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	product, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		h.respondProductError(w, r, mLogger, id, err, "retrieve")
		return
	}
	h.renderPage(w, mLogger, http.StatusOK, "products/ProductDetails", map[string]any{"product": product})
}

// EditPage renders the product edit page.
func (h *Handler) EditPage(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := pkgweb.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	product, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		h.respondProductError(w, r, mLogger, id, err, "retrieve")
		return
	}
	h.renderPage(w, mLogger, http.StatusOK, "products/EditProduct", map[string]any{"product": product})
}

// Store creates a product from a multipart form submission. The owner is
// always the session user.
func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := pkgweb.UserID(r.Context())
	if !ok {
		pkgweb.RespondError(w, mLogger, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	form, err := formValues(r)
	if err != nil {
		pkgweb.RespondError(w, mLogger, http.StatusBadRequest, "Invalid form data")
		return
	}

	dto := service.ProductCreateDto{
		Name:        form.Get("name"),
		Description: form.Get("description"),
	}
	fieldErrs := make(map[string]string)
	if value := form.Get("price"); value != "" {
		price, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			fieldErrs["price"] = "Price must be a number"
		} else {
			dto.Price = price
		}
	}
	if value := form.Get("stock"); value != "" {
		stock, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			fieldErrs["stock"] = "Stock must be an integer"
		} else {
			dto.Stock = int32(stock)
		}
	}
	if len(fieldErrs) > 0 {
		h.respondFieldErrors(w, mLogger, fieldErrs)
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		if pkgweb.RespondValidationErrors(w, mLogger, err) {
			return
		}
		pkgweb.RespondError(w, mLogger, http.StatusBadRequest, "Invalid form data")
		return
	}

	image, closeImage, err := formImage(r)
	if err != nil {
		pkgweb.RespondError(w, mLogger, http.StatusBadRequest, "Invalid image upload")
		return
	}
	defer closeImage()

	created, err := h.products.Create(r.Context(), userID, dto, image)
	if err != nil {
		if h.respondImageError(w, mLogger, err) {
			return
		}
		mLogger.ErrorContext(r.Context(), "Error creating product", "error", err)
		pkgweb.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	h.renderPage(w, mLogger, http.StatusCreated, "products/EditProduct", map[string]any{"product": created})
}

// Update applies a partial update from a form submission: only fields present
// in the form are touched.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := pkgweb.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	form, err := formValues(r)
	if err != nil {
		pkgweb.RespondError(w, mLogger, http.StatusBadRequest, "Invalid form data")
		return
	}

	dto, fieldErrs := parseUpdateForm(form)
	if len(fieldErrs) > 0 {
		h.respondFieldErrors(w, mLogger, fieldErrs)
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		if pkgweb.RespondValidationErrors(w, mLogger, err) {
			return
		}
		pkgweb.RespondError(w, mLogger, http.StatusBadRequest, "Invalid form data")
		return
	}

	image, closeImage, err := formImage(r)
	if err != nil {
		pkgweb.RespondError(w, mLogger, http.StatusBadRequest, "Invalid image upload")
		return
	}
	defer closeImage()

	updated, err := h.products.Update(r.Context(), id, dto, image)
	if err != nil {
		if h.respondImageError(w, mLogger, err) {
			return
		}
		h.respondProductError(w, r, mLogger, id, err, "update")
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	h.renderPage(w, mLogger, http.StatusOK, "products/EditProduct", map[string]any{
		"product": updated,
		"flash":   map[string]string{"success": "Product updated successfully"},
	})
}

// Destroy deletes a product and its stored image.
func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := pkgweb.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		h.respondProductError(w, r, mLogger, id, err, "delete")
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// Asset streams a stored image blob. Unauthenticated, like the rest of the
// static asset surface.
func (h *Handler) Asset(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	path := chi.URLParam(r, "*")

	blob, err := h.blobs.Open(r.Context(), path)
	if err != nil {
		pkgweb.RespondError(w, mLogger, http.StatusNotFound, "Not found")
		return
	}
	defer blob.Close()

	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, blob); err != nil {
		mLogger.ErrorContext(r.Context(), "Error streaming asset", "path", path, "error", err)
	}
}

// requireSession rejects requests without an authenticated session and
// enriches the context with the session user's ID.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.loggerWithReqID(r)
		session, err := h.sessions.Get(r, h.sessionName)
		if err != nil {
			pkgweb.RespondError(w, mLogger, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		userID, ok := session.Values[SessionUserKey].(int64)
		if !ok || userID <= 0 {
			pkgweb.RespondError(w, mLogger, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(pkgweb.WithUserID(r.Context(), userID)))
	})
}

// renderPage writes an SPA page payload: the component to mount plus its props.
func (h *Handler) renderPage(w http.ResponseWriter, logger *slog.Logger, status int, component string, props map[string]any) {
	pkgweb.RespondJSON(w, logger, status, map[string]any{
		"component": component,
		"props":     props,
	})
}

func (h *Handler) respondFieldErrors(w http.ResponseWriter, logger *slog.Logger, fields map[string]string) {
	pkgweb.RespondJSON(w, logger, http.StatusUnprocessableEntity, map[string]any{
		"message": "The given data was invalid.",
		"code":    http.StatusUnprocessableEntity,
		"errors":  fields,
	})
}

// respondImageError maps blob validation failures to a 422 with a per-field
// message. Returns false for any other error.
func (h *Handler) respondImageError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	switch {
	case errors.Is(err, storage.ErrUnsupportedImage):
		h.respondFieldErrors(w, logger, map[string]string{"image": "The image must be of type: jpeg, png, jpg, gif, webp"})
		return true
	case errors.Is(err, storage.ErrImageTooLarge):
		h.respondFieldErrors(w, logger, map[string]string{"image": "The image cannot be larger than 2MB"})
		return true
	}
	return false
}

func (h *Handler) respondProductError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, id int64, err error, action string) {
	if errors.Is(err, cerrors.ErrProductNotFound) {
		logger.WarnContext(r.Context(), "Product not found", "ID", id)
		pkgweb.RespondError(w, logger, http.StatusNotFound, "Product not found")
		return
	}
	logger.ErrorContext(r.Context(), "Error handling product", "action", action, "ID", id, "error", err)
	pkgweb.RespondError(w, logger, http.StatusInternalServerError, "Failed to "+action+" product")
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

// paginatorPayload shapes a listing page the way the SPA's paginator expects.
func paginatorPayload(page *service.ProductPage) map[string]any {
	return map[string]any{
		"data":         page.Items,
		"total":        page.Pagination.Total,
		"per_page":     page.Pagination.PerPage,
		"current_page": page.Pagination.CurrentPage,
		"last_page":    page.Pagination.LastPage,
		"from":         page.Pagination.From,
		"to":           page.Pagination.To,
	}
}

// formValues parses either a multipart or url-encoded form body.
func formValues(r *http.Request) (url.Values, error) {
	err := r.ParseMultipartForm(maxFormMemory)
	if err == nil {
		return r.PostForm, nil
	}
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}
	return nil, err
}

// parseUpdateForm builds a partial-update DTO: only keys present in the form
// yield non-nil fields.
func parseUpdateForm(form url.Values) (service.ProductUpdateDto, map[string]string) {
	var dto service.ProductUpdateDto
	fieldErrs := make(map[string]string)

	if form.Has("name") {
		name := form.Get("name")
		dto.Name = &name
	}
	if form.Has("description") {
		description := form.Get("description")
		dto.Description = &description
	}
	if form.Has("price") {
		price, err := strconv.ParseInt(form.Get("price"), 10, 64)
		if err != nil {
			fieldErrs["price"] = "Price must be a number"
		} else {
			dto.Price = &price
		}
	}
	if form.Has("stock") {
		stock, err := strconv.ParseInt(form.Get("stock"), 10, 32)
		if err != nil {
			fieldErrs["stock"] = "Stock must be an integer"
		} else {
			stock32 := int32(stock)
			dto.Stock = &stock32
		}
	}
	if form.Has("is_active") {
		isActive, err := strconv.ParseBool(form.Get("is_active"))
		if err != nil {
			fieldErrs["is_active"] = "Status must be true or false"
		} else {
			dto.IsActive = &isActive
		}
	}
	return dto, fieldErrs
}

// formImage extracts the optional image upload from a multipart form. An
// absent file is not an error. The returned closer is always safe to call.
func formImage(r *http.Request) (*storage.Upload, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	upload := &storage.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
	return upload, func() { _ = file.Close() }, nil
}
