// README: Journey handlers for tap, current journey and operator abort.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farebox/internal/modules/journey"
	"farebox/internal/types"
)

type JourneyHandler struct {
	journey *journey.Service
}

func NewJourneyHandler(svc *journey.Service) *JourneyHandler {
	return &JourneyHandler{journey: svc}
}

type tapReq struct {
	RiderID string `json:"rider_id"`
}

// Tap starts or settles the rider's journey. Aborted journeys are returned
// alongside the error status so the kiosk can show the reason.
func (h *JourneyHandler) Tap(c *gin.Context) {
	var req tapReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.RiderID) {
		writeError(c, http.StatusBadRequest, "invalid rider_id")
		return
	}
	j, err := h.journey.Tap(c.Request.Context(), types.ID(req.RiderID))
	if err != nil {
		if j != nil {
			status := http.StatusServiceUnavailable
			if j.AbortReason == journey.ReasonInsufficientFunds {
				status = http.StatusPaymentRequired
			}
			writeJSON(c, status, gin.H{"error": err.Error(), "journey": toJourneyResponse(j)})
			return
		}
		writeServiceError(c, err)
		return
	}
	status := http.StatusOK
	if j.State == journey.StateInProgress {
		status = http.StatusCreated
	}
	writeJSON(c, status, toJourneyResponse(j))
}

func (h *JourneyHandler) Current(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	j, ok := h.journey.Current(types.ID(id))
	if !ok {
		writeServiceError(c, journey.ErrNoJourney)
		return
	}
	writeJSON(c, http.StatusOK, toJourneyResponse(j))
}

func (h *JourneyHandler) Abort(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	j, err := h.journey.Abort(c.Request.Context(), types.ID(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toJourneyResponse(j))
}
