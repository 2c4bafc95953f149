package sync

import (
	"context"
	"net/http"

	"github.com/hibiken/asynq"

	"github.com/andinotravel/partner-portal/internal/common"
)

// TypeCatalogSync is the asynq task type for catalog imports.
const TypeCatalogSync = "catalog:sync"

// NewCatalogSyncTask builds the task. It carries no payload; the importer
// always pulls the full feed.
func NewCatalogSyncTask() *asynq.Task {
	return asynq.NewTask(TypeCatalogSync, nil, asynq.MaxRetry(3))
}

// TaskHandler adapts the importer to asynq.
type TaskHandler struct {
	Importer *Importer
}

// ProcessTask runs one catalog import.
func (h *TaskHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	return h.Importer.Run(ctx)
}

// AdminHandler lets back-office users trigger an import out of schedule.
type AdminHandler struct {
	Client *asynq.Client
}

// Trigger enqueues a catalog sync.
func (h *AdminHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	info, err := h.Client.EnqueueContext(r.Context(), NewCatalogSyncTask())
	if err != nil {
		common.WriteError(w, common.ErrStorage(err))
		return
	}
	common.JSONData(w, http.StatusAccepted, map[string]any{"taskId": info.ID, "queue": info.Queue})
}
