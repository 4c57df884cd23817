package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/knowbase/internal/api"
	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/cloo-solutions/knowbase/internal/service"
)

// StatusReader reads the initialization record for one domain. A nil status
// with nil error means the domain was never initialized.
type StatusReader interface {
	Get(ctx context.Context, domainName string) (*domain.InitStatus, error)
}

type StatusHandler struct {
	status StatusReader
	packs  []service.ContentPack
}

func NewStatusHandler(status StatusReader, packs []service.ContentPack) *StatusHandler {
	return &StatusHandler{status: status, packs: packs}
}

type DomainStatusResponse struct {
	Domain        string     `json:"domain"`
	Initialized   bool       `json:"initialized"`
	Version       string     `json:"version,omitempty"`
	WantVersion   string     `json:"want_version"`
	InitializedAt *time.Time `json:"initialized_at,omitempty"`
	ItemCount     int        `json:"item_count,omitempty"`
	ChunkCount    int        `json:"chunk_count,omitempty"`
	LastCheck     *time.Time `json:"last_check,omitempty"`
}

// Get reports the bootstrap state of every configured content pack, or of a
// single domain when ?domain= is given.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	packs := h.packs
	if domainName := r.URL.Query().Get("domain"); domainName != "" {
		packs = nil
		for _, p := range h.packs {
			if p.Domain == domainName {
				packs = append(packs, p)
			}
		}
		if len(packs) == 0 {
			api.Error(w, http.StatusNotFound, "unknown domain")
			return
		}
	}

	out := make([]DomainStatusResponse, 0, len(packs))
	for _, p := range packs {
		status, err := h.status.Get(r.Context(), p.Domain)
		if err != nil {
			api.HandleError(w, err)
			return
		}

		resp := DomainStatusResponse{Domain: p.Domain, WantVersion: p.Version}
		if status != nil {
			resp.Initialized = true
			resp.Version = status.Version
			resp.InitializedAt = &status.InitializedAt
			resp.ItemCount = status.ItemCount
			resp.ChunkCount = status.ChunkCount
			resp.LastCheck = &status.LastCheck
		}
		out = append(out, resp)
	}

	api.Success(w, http.StatusOK, map[string][]DomainStatusResponse{"statuses": out})
}
