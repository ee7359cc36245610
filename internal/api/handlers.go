package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xray-integrations/securityhub-sync/internal/batch"
	"github.com/xray-integrations/securityhub-sync/internal/dispatch"
	"github.com/xray-integrations/securityhub-sync/internal/xray"
)

// ChunkSender delivers one issue chunk to the downstream stage.
type ChunkSender interface {
	SendChunk(ctx context.Context, issues []xray.Issue) error
}

// WebhookHandler validates incoming Xray payloads and fans the issue chunks
// out to the queue.
type WebhookHandler struct {
	sender    ChunkSender
	chunkSize int
}

func NewWebhookHandler(sender ChunkSender, chunkSize int) *WebhookHandler {
	return &WebhookHandler{sender: sender, chunkSize: chunkSize}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable body"})
		return
	}

	evt, err := xray.ValidateWebhook(raw)
	if err != nil {
		var serr *xray.SchemaError
		if errors.As(err, &serr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"ok":         false,
				"error":      "invalid Xray event payload",
				"field":      serr.Field,
				"constraint": serr.Constraint,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	issues := evt.Flatten()
	chunks := batch.Chunk(issues, h.chunkSize)

	results := dispatch.All(c.Request.Context(), chunks, h.sender.SendChunk)
	for _, err := range results.Errs() {
		log.Printf("[error] operation=dispatch watch=%s error=%v", evt.WatchName, err)
	}

	status := http.StatusOK
	if results.Failed() > 0 && results.Sent() == 0 && len(chunks) > 0 {
		// Nothing got through; surface the dependency failure.
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"ok":            status == http.StatusOK,
		"issues":        len(issues),
		"chunks":        len(chunks),
		"messages_sent": results.Sent(),
		"failed":        results.Failed(),
	})
}
