// README: Rider read handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farebox/internal/modules/ledger"
	"farebox/internal/types"
)

type RiderHandler struct {
	ledger *ledger.Service
}

func NewRiderHandler(svc *ledger.Service) *RiderHandler {
	return &RiderHandler{ledger: svc}
}

func (h *RiderHandler) Balance(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	r, err := h.ledger.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rider_id": r.ID, "name": r.Name, "balance": r.Balance})
}
