package api

import (
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/apierr"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/ingest"
)

// maxWebhookPayloadBytes rejects a pathological single-alert payload
// before it reaches JSON unmarshalling, distinct from the server-wide
// BodyLimit which bounds the raw HTTP read.
const maxWebhookPayloadBytes = 1024 * 1024

// webhookHandler handles POST /webhooks/:source/:user_id (SPEC_FULL.md
// §6's "one endpoint per source"): normalize the vendor payload, then
// hand it to the shared incident pipeline. Responds 202 once the raw
// event and/or incident row are durably written and follow-up work
// (summary, delayed RCA) is enqueued, rather than blocking the vendor's
// delivery on the full pipeline.
func (s *Server) webhookHandler(c *echo.Context) error {
	source := c.Param("source")
	userID := c.Param("user_id")
	if userID == "" {
		return apierr.ValidationError("missing user_id in webhook path")
	}
	if _, ok := ingest.Normalizers[source]; !ok {
		return apierr.ValidationError("unknown alert source %q", source)
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookPayloadBytes+1))
	if err != nil {
		return apierr.Internal(err)
	}
	if len(body) > maxWebhookPayloadBytes {
		return apierr.ValidationError("webhook payload exceeds maximum size of %d bytes", maxWebhookPayloadBytes)
	}

	norm, err := ingest.Normalize(source, body)
	if err != nil {
		return apierr.ValidationError("%s", err.Error())
	}

	if err := s.pipeline.Process(c.Request().Context(), source, userID, body, norm); err != nil {
		return apierr.Internal(err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}
