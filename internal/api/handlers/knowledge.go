package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/knowbase/internal/api"
	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/cloo-solutions/knowbase/internal/service"
	"github.com/go-chi/chi/v5"
)

type KnowledgeService interface {
	Add(ctx context.Context, input service.AddInput) (string, error)
	Search(ctx context.Context, input service.SearchInput) ([]domain.KnowledgeItem, error)
	Update(ctx context.Context, itemID string, fields domain.UpdateFields) (bool, error)
	Delete(ctx context.Context, itemID string) (bool, error)
	Export(ctx context.Context, domainName string) (*domain.Export, error)
	Domains(ctx context.Context) ([]string, error)
	Categories(ctx context.Context, domainName string) ([]string, error)
	Tags(ctx context.Context, domainName string) ([]string, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type AddItemRequest struct {
	Domain    string   `json:"domain"`
	Category  string   `json:"category"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	Source    string   `json:"source"`
	SourceURL *string  `json:"source_url"`
	FilePath  *string  `json:"file_path"`
	Priority  int      `json:"priority"`
}

type AddItemResponse struct {
	ID string `json:"id"`
}

type SearchRequest struct {
	Query    string   `json:"query"`
	Domain   string   `json:"domain"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	TopK     int      `json:"top_k"`
}

type SearchResponse struct {
	Items []domain.KnowledgeItem `json:"items"`
	Count int                    `json:"count"`
}

type UpdateItemRequest struct {
	Content  *string  `json:"content"`
	Category *string  `json:"category"`
	Title    *string  `json:"title"`
	Tags     []string `json:"tags"`
	Priority *int     `json:"priority"`
}

func (h *KnowledgeHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Domain == "" {
		api.Error(w, http.StatusBadRequest, "domain is required")
		return
	}
	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	id, err := h.svc.Add(r.Context(), service.AddInput{
		Domain:    req.Domain,
		Category:  req.Category,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		Source:    req.Source,
		SourceURL: req.SourceURL,
		FilePath:  req.FilePath,
		Priority:  req.Priority,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, AddItemResponse{ID: id})
}

func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.svc.Search(r.Context(), service.SearchInput{
		Query:    req.Query,
		Domain:   req.Domain,
		Category: req.Category,
		Tags:     req.Tags,
		TopK:     req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{Items: items, Count: len(items)})
}

func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		api.Error(w, http.StatusBadRequest, "item id is required")
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := domain.UpdateFields{
		Content:  req.Content,
		Category: req.Category,
		Title:    req.Title,
		Tags:     req.Tags,
		Priority: req.Priority,
	}
	if fields.Empty() {
		api.Error(w, http.StatusBadRequest, "no fields to update")
		return
	}

	updated, err := h.svc.Update(r.Context(), itemID, fields)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if !updated {
		api.Error(w, http.StatusNotFound, "item not found")
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": itemID})
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		api.Error(w, http.StatusBadRequest, "item id is required")
		return
	}

	deleted, err := h.svc.Delete(r.Context(), itemID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if !deleted {
		api.Error(w, http.StatusNotFound, "item not found")
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": itemID})
}

func (h *KnowledgeHandler) Export(w http.ResponseWriter, r *http.Request) {
	export, err := h.svc.Export(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, export)
}

func (h *KnowledgeHandler) Domains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.svc.Domains(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string][]string{"domains": domains})
}

func (h *KnowledgeHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string][]string{"categories": categories})
}

func (h *KnowledgeHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string][]string{"tags": tags})
}
