// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farebox/internal/http/handlers"
	"farebox/internal/http/middleware"
)

func (s *Server) Routes() http.Handler {
	r := gin.New()
	if s.metrics != nil {
		r.Use(middleware.Logging(s.metrics))
	} else {
		r.Use(middleware.Logging(nil))
	}
	r.Use(middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api")

	journeyHandler := handlers.NewJourneyHandler(s.journey)
	api.POST("/taps", journeyHandler.Tap)
	api.GET("/riders/:id/journey", journeyHandler.Current)
	api.DELETE("/riders/:id/journey", middleware.AdminTag(s.admin), journeyHandler.Abort)

	riderHandler := handlers.NewRiderHandler(s.ledger)
	api.GET("/riders/:id/balance", riderHandler.Balance)

	adminHandler := handlers.NewAdminHandler(s.admin, s.history)
	adminGroup := api.Group("/admin", middleware.AdminTag(s.admin))
	adminGroup.POST("/riders", adminHandler.Register)
	adminGroup.PUT("/riders/:id", adminHandler.UpdateProfile)
	adminGroup.POST("/riders/:id/recharge", adminHandler.Recharge)
	adminGroup.GET("/journeys/unsettled", adminHandler.Unsettled)

	return r
}
