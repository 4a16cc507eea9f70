// README: Admin handlers; the caller's card tag comes from the AdminTag middleware.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"farebox/internal/http/middleware"
	"farebox/internal/modules/admin"
	"farebox/internal/modules/journey"
	"farebox/internal/types"
)

// UnsettledLister reads the reconciliation queue. It is optional.
type UnsettledLister interface {
	Unsettled(ctx context.Context, limit int) ([]journey.Journey, error)
}

type AdminHandler struct {
	admin   *admin.Service
	history UnsettledLister
}

func NewAdminHandler(svc *admin.Service, history UnsettledLister) *AdminHandler {
	return &AdminHandler{admin: svc, history: history}
}

type registerReq struct {
	RiderID string `json:"rider_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
}

type profileReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type rechargeReq struct {
	Amount jsonAmount `json:"amount"`
}

// jsonAmount keeps the operator's amount as text, whether sent as 50 or "50".
type jsonAmount string

func (a *jsonAmount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = ""
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	*a = jsonAmount(s)
	return nil
}

func (h *AdminHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.RiderID) {
		writeError(c, http.StatusBadRequest, "invalid rider_id")
		return
	}
	r, err := h.admin.Register(c.Request.Context(), admin.RegisterCommand{
		AdminID: middleware.CallerTag(c),
		RiderID: types.ID(req.RiderID),
		Name:    req.Name,
		Phone:   req.Phone,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"rider_id": r.ID, "name": r.Name, "phone": r.Phone, "balance": r.Balance})
}

func (h *AdminHandler) UpdateProfile(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	var req profileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.admin.UpdateProfile(c.Request.Context(), admin.ProfileCommand{
		AdminID: middleware.CallerTag(c),
		RiderID: types.ID(id),
		Name:    req.Name,
		Phone:   req.Phone,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rider_id": id, "name": req.Name, "phone": req.Phone})
}

func (h *AdminHandler) Recharge(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	var req rechargeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	balance, err := h.admin.Recharge(c.Request.Context(), admin.RechargeCommand{
		AdminID: middleware.CallerTag(c),
		RiderID: types.ID(id),
		Amount:  string(req.Amount),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rider_id": id, "balance": balance})
}

func (h *AdminHandler) Unsettled(c *gin.Context) {
	if h.history == nil {
		writeError(c, http.StatusNotImplemented, "journey history not configured")
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	js, err := h.history.Unsettled(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]journeyResponse, 0, len(js))
	for i := range js {
		out = append(out, toJourneyResponse(&js[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"journeys": out})
}
