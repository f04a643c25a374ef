package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultWebhookProvider = "stripe"

// HandlePaymentWebhook ingests a payment provider delivery. Once the event
// is authenticated and handled the response is always 200, including for
// redeliveries, so the sender stops retrying.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	if provider == "" {
		provider = defaultWebhookProvider
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
