package cart

import (
	"encoding/json"
	"net/http"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/common"
)

// Handler exposes the cart quote endpoint.
type Handler struct{}

type quoteRequest struct {
	Items []LineItem `json:"items"`
}

// Quote aggregates the submitted line items against the caller's commission
// rate. Internal callers get the same figures; hiding commission for them is
// a client presentation choice.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	caps, ok := capability.FromContext(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	var payload quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	for i, item := range payload.Items {
		if err := item.Validate(); err != nil {
			common.WriteError(w, common.ErrValidation(err.Error(), map[string]any{"index": i}))
			return
		}
	}
	totals := Aggregate(payload.Items, caps.CommissionRate)
	common.JSONData(w, http.StatusOK, map[string]any{
		"items":      payload.Items,
		"total":      totals.Total,
		"commission": totals.Commission,
		"net":        totals.Net,
	})
}
