package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleLatestRelease serves the desktop updater feed.
func (s *Server) HandleLatestRelease(c *gin.Context) {
	release, err := s.releaseSvc.Latest(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Data: release})
}
