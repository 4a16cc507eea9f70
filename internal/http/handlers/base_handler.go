// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"farebox/internal/modules/admin"
	"farebox/internal/modules/journey"
	"farebox/internal/modules/ledger"
	"farebox/internal/modules/location"
	"farebox/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts card tags: digits, letters, '-' and '_', at most 64 chars.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module sentinels to status codes. Unknown errors are
// logged and reported as 500 without detail.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, journey.ErrNoJourney):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, admin.ErrInvalidInput), errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, journey.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, admin.ErrNotAdmin):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, journey.ErrTapInProgress), errors.Is(err, journey.ErrDuplicateTap),
		errors.Is(err, journey.ErrJourneyInProgress), errors.Is(err, ledger.ErrAlreadyExists):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, location.ErrNoFix):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("http %s %s err=%v", c.Request.Method, c.FullPath(), err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type journeyResponse struct {
	JourneyID   types.ID     `json:"journey_id"`
	RiderID     types.ID     `json:"rider_id"`
	State       string       `json:"state"`
	Start       *types.Point `json:"start,omitempty"`
	End         *types.Point `json:"end,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	EndedAt     *time.Time   `json:"ended_at,omitempty"`
	DistanceKm  float64      `json:"distance_km"`
	Fare        int64        `json:"fare"`
	Balance     int64        `json:"balance"`
	AbortReason string       `json:"abort_reason,omitempty"`
}

func toJourneyResponse(j *journey.Journey) journeyResponse {
	out := journeyResponse{
		JourneyID:   j.ID,
		RiderID:     j.RiderID,
		State:       string(j.State),
		End:         j.End,
		EndedAt:     j.EndedAt,
		DistanceKm:  j.DistanceKm,
		Fare:        j.Fare,
		Balance:     j.Balance,
		AbortReason: j.AbortReason,
	}
	if !j.StartedAt.IsZero() {
		start, at := j.Start, j.StartedAt
		out.Start, out.StartedAt = &start, &at
	}
	return out
}
