package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"farebox/internal/modules/admin"
	"farebox/internal/modules/journey"
	"farebox/internal/modules/ledger"
	"farebox/internal/modules/location"
)

func TestWriteServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		want int
	}{
		{ledger.ErrNotFound, http.StatusNotFound},
		{journey.ErrNoJourney, http.StatusNotFound},
		{fmt.Errorf("%w: balance 3 below minimum charge 5", ledger.ErrInsufficientFunds), http.StatusPaymentRequired},
		{admin.ErrInvalidInput, http.StatusBadRequest},
		{ledger.ErrInvalidAmount, http.StatusBadRequest},
		{journey.ErrBadRequest, http.StatusBadRequest},
		{admin.ErrNotAdmin, http.StatusForbidden},
		{journey.ErrTapInProgress, http.StatusConflict},
		{journey.ErrDuplicateTap, http.StatusConflict},
		{ledger.ErrAlreadyExists, http.StatusConflict},
		{fmt.Errorf("start journey: %w", location.ErrNoFix), http.StatusServiceUnavailable},
		{errors.New("firebase: permission denied"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			writeServiceError(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestIsValidID(t *testing.T) {
	valid := []string{"27010276260", "card-7", "A_b"}
	invalid := []string{"", "has space", "x/y", string(make([]byte, 65))}
	for _, v := range valid {
		if !isValidID(v) {
			t.Errorf("isValidID(%q) = false", v)
		}
	}
	for _, v := range invalid {
		if isValidID(v) {
			t.Errorf("isValidID(%q) = true", v)
		}
	}
}
