package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"notedesk/internal/store"
	"notedesk/pkg/logger"
	"notedesk/socket"
)

// DocumentStore is what the handlers need from the store layer.
type DocumentStore interface {
	Create(ctx context.Context, fields store.Fields) (store.WriteResult, error)
	GetAll(ctx context.Context) ([]store.Document, error)
	GetByID(ctx context.Context, id string) (store.Document, error)
	Update(ctx context.Context, id string, fields store.Fields) (store.WriteResult, error)
	Delete(ctx context.Context, id string) (store.WriteResult, error)
}

type DocumentHandler struct {
	Store DocumentStore
	Hub   *socket.Hub
}

type DocumentRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func NewDocumentHandler(st DocumentStore, hub *socket.Hub) *DocumentHandler {
	return &DocumentHandler{Store: st, Hub: hub}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == nil || *req.Title == "" || req.Content == nil || *req.Content == "" {
		http.Error(w, "Title and content are required", http.StatusBadRequest)
		return
	}

	res, err := h.Store.Create(r.Context(), store.Fields{Title: req.Title, Content: req.Content})
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create document: %v", err)
		http.Error(w, err.Error(), store.StatusOf(err))
		return
	}
	h.publish(socket.CreatedType, res)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docs, err := h.Store.GetAll(r.Context())
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to fetch documents: %v", err)
		http.Error(w, err.Error(), store.StatusOf(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	doc, err := h.Store.GetByID(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to fetch document %s: %v", docID, err)
		http.Error(w, err.Error(), store.StatusOf(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.Store.Update(r.Context(), docID, store.Fields{Title: req.Title, Content: req.Content})
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to update document %s: %v", docID, err)
		http.Error(w, err.Error(), store.StatusOf(err))
		return
	}
	h.publish(socket.UpdatedType, res)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	res, err := h.Store.Delete(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete document %s: %v", docID, err)
		http.Error(w, err.Error(), store.StatusOf(err))
		return
	}
	h.publish(socket.DeletedType, res)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *DocumentHandler) publish(action string, res store.WriteResult) {
	if h.Hub == nil {
		return
	}
	h.Hub.Broadcast <- socket.ChangeEvent{Action: action, ID: res.ID, Rev: res.Rev}
}
