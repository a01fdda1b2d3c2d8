package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/events"
	"github.com/vyrodovalexey/inventory-tracker/internal/model"
	"github.com/vyrodovalexey/inventory-tracker/internal/store"
)

const (
	maxRequestBodySize = 1 << 20
	readyTimeout       = 2 * time.Second
)

// RESTHandler serves the inventory item API and announces every
// committed change through its publisher.
type RESTHandler struct {
	store     store.Store
	publisher events.Publisher
	logger    *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. A nil publisher
// disables change notifications.
func NewRESTHandler(s store.Store, publisher events.Publisher, logger *zap.Logger) *RESTHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &RESTHandler{
		store:     s,
		publisher: publisher,
		logger:    logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{id}", h.ReplaceItem).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/items/{id}", h.PatchItem).Methods(http.MethodPatch)
	router.HandleFunc("/api/v1/items/{id}", h.DeleteItem).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests. Stores backed by an external
// service are pinged; the in-memory store is always ready.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if pinger, ok := h.store.(store.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			h.logger.Warn("storage backend not ready", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, model.APIResponse[ReadyResponse]{
				Data:  ReadyResponse{Status: "not ready"},
				Error: "storage backend unavailable",
			})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListItems handles GET /api/v1/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /api/v1/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	item, err := h.store.Get(ctx, id)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// CreateItem handles POST /api/v1/items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input model.ItemInput
	if !h.decodeBody(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.store.Create(ctx, &input)
	if err != nil {
		h.handleStoreError(w, err, "create item")
		return
	}

	h.publish(ctx, model.NewChangeEvent(model.ChangeTypeCreated, item.ID, item))
	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// ReplaceItem handles PUT /api/v1/items/{id} requests. Every client
// field is overwritten.
func (h *RESTHandler) ReplaceItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var input model.ItemInput
	if !h.decodeBody(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.applyPatch(w, r, id, model.PatchFromInput(input))
}

// PatchItem handles PATCH /api/v1/items/{id} requests. Only the fields
// present in the body change.
func (h *RESTHandler) PatchItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch model.ItemPatch
	if !h.decodeBody(w, r, &patch) {
		return
	}

	if err := patch.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.applyPatch(w, r, id, patch)
}

func (h *RESTHandler) applyPatch(w http.ResponseWriter, r *http.Request, id string, patch model.ItemPatch) {
	ctx := r.Context()

	item, err := h.store.Update(ctx, id, &patch)
	if err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	h.publish(ctx, model.NewChangeEvent(model.ChangeTypeUpdated, item.ID, item))
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// DeleteItem handles DELETE /api/v1/items/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(ctx, id); err != nil {
		h.handleStoreError(w, err, "delete item")
		return
	}

	h.publish(ctx, model.NewChangeEvent(model.ChangeTypeDeleted, id, nil))
	h.writeJSON(w, http.StatusNoContent, nil)
}

// decodeBody reads a JSON body into dst, answering 400 on failure.
func (h *RESTHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// publish announces a committed change. The change already happened, so
// a delivery failure is logged and the request still succeeds.
func (h *RESTHandler) publish(ctx context.Context, event model.ChangeEvent) {
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish change event",
			zap.String("type", event.Type),
			zap.String("item_id", event.ItemID),
			zap.Error(err),
		)
	}
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
	case errors.Is(err, store.ErrAlreadyExists):
		h.writeError(w, http.StatusConflict, "item already exists")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
