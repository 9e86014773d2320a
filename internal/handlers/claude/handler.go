package claude

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/translator"
)

// Handler serves the Anthropic-compatible surface.
type Handler struct {
	cfg        *config.Manager
	dispatcher *common.Dispatcher
}

func NewHandler(cfg *config.Manager, dispatcher *common.Dispatcher) *Handler {
	return &Handler{cfg: cfg, dispatcher: dispatcher}
}

// Messages handles POST /v1/messages.
func (h *Handler) Messages(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(raw) {
		c.JSON(http.StatusBadRequest, common.ClaudeError("invalid JSON body", "invalid_request_error"))
		return
	}
	originalModel := gjson.GetBytes(raw, "model").String()
	if originalModel == "" {
		c.JSON(http.StatusBadRequest, common.ClaudeError("model is required", "invalid_request_error"))
		return
	}

	custom, _, anthropic := h.cfg.Mappings()
	mappedModel := models.Resolve(originalModel, custom, anthropic)

	translated := translator.ClaudeToRequest(raw, originalModel, mappedModel)
	reqCfg := translated.Config

	stream := gjson.GetBytes(raw, "stream").Bool()
	stickyID := common.ClaudeSessionID(raw)

	req := &common.Request{
		Method:        "generateContent",
		RequestType:   reqCfg.RequestType,
		SessionID:     stickyID,
		OriginalModel: originalModel,
		MappedModel:   reqCfg.FinalModel,
		Stream:        stream,
		Build: func(projectID string) []byte {
			return translator.BuildEnvelope(projectID, reqCfg.FinalModel, reqCfg.RequestType, translated.Body, translated.SessionID)
		},
	}
	if stream {
		req.Method = "streamGenerateContent"
		req.Query = "alt=sse"
		req.NewStream = func(body io.ReadCloser) translator.Stream {
			return translator.NewClaudeStream(body, originalModel)
		}
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		common.WriteDispatchError(c, err, common.ClaudeShape)
		return
	}

	c.Header("X-Account-Email", result.Email)
	c.Header("X-Mapped-Model", reqCfg.FinalModel)

	if stream {
		flusher := common.PrepareSSE(c)
		c.Status(http.StatusOK)
		common.CopyStream(c, result.Stream, flusher)
		return
	}

	body := translator.ResponseToClaude(result.Body, originalModel)
	if !gjson.ValidBytes(body) {
		log.Warn("upstream returned unparseable body")
		c.JSON(http.StatusBadGateway, common.ClaudeError("upstream returned an unparseable response", "api_error"))
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// Models handles GET /v1/models on the Anthropic surface.
func (h *Handler) Models(c *gin.Context) {
	list := models.ClaudeModelList()

	custom, _, anthropic := h.cfg.Mappings()
	seen := make(map[string]bool, len(list))
	for _, m := range list {
		seen[m.ID] = true
	}
	for _, table := range []map[string]string{custom, anthropic} {
		for alias := range table {
			if !seen[alias] {
				seen[alias] = true
				list = append(list, models.ClaudeModel{ID: alias, Type: "model", DisplayName: alias})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": list, "has_more": false})
}
