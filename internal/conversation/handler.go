package conversation

import (
	"net/http"
	"regexp"
	"strings"

	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var angleAddrRe = regexp.MustCompile(`<([^>]+)>`)

// Handler exposes the inbound-parse webhook and the manual send endpoint.
type Handler struct {
	service  *Service
	validate *validator.Validator
	log      *logger.Logger
}

// NewHandler creates the conversation HTTP handler.
func NewHandler(service *Service, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: service, validate: validate, log: log}
}

// Inbound accepts the email provider's inbound-parse post. The provider
// retries non-2xx responses, so everything short of a store outage is
// acknowledged with 200.
func (h *Handler) Inbound(c *gin.Context) {
	env := parseInboundForm(c)

	if env.From == "" || env.To == "" {
		h.log.WithContext(c.Request.Context()).PipelineDrop("parse", "missing from or to", env.From)
		c.String(http.StatusOK, "ok")
		return
	}

	if err := h.service.ProcessInbound(c.Request.Context(), env); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.String(http.StatusOK, "ok")
}

// SendRequest is the manual send payload.
type SendRequest struct {
	ClientID  string `json:"clientId" binding:"required"`
	Subject   string `json:"subject" binding:"required"`
	Text      string `json:"text" binding:"required"`
	InReplyTo string `json:"inReplyTo"`
}

// Send delivers operator-written content to a client.
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid client id")
		return
	}

	result, err := h.service.ManualSend(c.Request.Context(), clientID, req.Subject, req.Text, req.InReplyTo)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{
		"messageId":     result.MessageID,
		"wireMessageId": result.WireMessageID,
	})
}

// parseInboundForm maps the provider's multipart/urlencoded fields onto the
// pipeline envelope. "email" is the raw-MIME fallback for the plain body.
func parseInboundForm(c *gin.Context) InboundEmail {
	text := c.PostForm("text")
	if text == "" {
		text = c.PostForm("email")
	}

	headers := parseHeaderBlock(c.PostForm("headers"))

	wireID := firstNonEmpty(c.PostForm("message-id"), headers["message-id"])
	inReplyTo := firstNonEmpty(c.PostForm("in-reply-to"), headers["in-reply-to"])

	from, display := extractAddress(c.PostForm("from"))
	to, _ := extractAddress(c.PostForm("to"))

	return InboundEmail{
		From:          from,
		FromDisplay:   display,
		To:            to,
		Subject:       c.PostForm("subject"),
		Text:          text,
		HTML:          c.PostForm("html"),
		Headers:       headers,
		WireMessageID: wireID,
		InReplyTo:     inReplyTo,
	}
}

// extractAddress pulls the bare address out of `"Name" <addr>` style
// envelope fields, lowercased, along with the display name when present.
func extractAddress(raw string) (addr, display string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if m := angleAddrRe.FindStringSubmatch(raw); m != nil {
		display = strings.Trim(strings.TrimSpace(raw[:strings.Index(raw, "<")]), `"'`)
		return strings.ToLower(strings.TrimSpace(m[1])), strings.TrimSpace(display)
	}
	return strings.ToLower(raw), ""
}

// parseHeaderBlock parses the provider's raw header blob into a map with
// lowercased keys. Continuation lines are ignored.
func parseHeaderBlock(raw string) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if key != "" && value != "" {
			headers[key] = value
		}
	}
	return headers
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
