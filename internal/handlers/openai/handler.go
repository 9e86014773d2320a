package openai

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/translator"
)

// Handler serves the OpenAI-compatible surface.
type Handler struct {
	cfg        *config.Manager
	dispatcher *common.Dispatcher
}

func NewHandler(cfg *config.Manager, dispatcher *common.Dispatcher) *Handler {
	return &Handler{cfg: cfg, dispatcher: dispatcher}
}

func (h *Handler) resolveModel(model string) string {
	custom, openaiMap, _ := h.cfg.Mappings()
	return models.Resolve(model, custom, openaiMap)
}

// ChatCompletions handles POST /v1/chat/completions.
func (h *Handler) ChatCompletions(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(raw) {
		c.JSON(http.StatusBadRequest, common.OpenAIError("invalid JSON body", "invalid_request_error"))
		return
	}
	h.completeChat(c, raw, false)
}

// Completions handles POST /v1/completions: the prompt becomes a single
// user message and the reply uses the text_completion shape.
func (h *Handler) Completions(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(raw) {
		c.JSON(http.StatusBadRequest, common.OpenAIError("invalid JSON body", "invalid_request_error"))
		return
	}
	prompt := gjson.GetBytes(raw, "prompt").String()
	raw, _ = sjson.SetBytes(raw, "messages", []map[string]interface{}{
		{"role": "user", "content": prompt},
	})
	raw, _ = sjson.DeleteBytes(raw, "prompt")
	h.completeChat(c, raw, true)
}

// Responses handles POST /v1/responses by normalising the Responses shape
// onto the chat pipeline.
func (h *Handler) Responses(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(raw) {
		c.JSON(http.StatusBadRequest, common.OpenAIError("invalid JSON body", "invalid_request_error"))
		return
	}
	if translator.IsResponsesShape(raw) {
		raw = translator.NormalizeResponsesRequest(raw)
	}
	h.completeChat(c, raw, false)
}

func (h *Handler) completeChat(c *gin.Context, raw []byte, legacy bool) {
	originalModel := gjson.GetBytes(raw, "model").String()
	if originalModel == "" {
		c.JSON(http.StatusBadRequest, common.OpenAIError("model is required", "invalid_request_error"))
		return
	}
	mappedModel := h.resolveModel(originalModel)
	reqCfg := translator.ResolveRequestConfig(originalModel, mappedModel)

	inner := translator.OpenAIChatToRequest(raw)
	inner = translator.ApplyRequestConfig(inner, reqCfg)

	stream := gjson.GetBytes(raw, "stream").Bool()
	sessionID := common.OpenAISessionID(raw)

	req := &common.Request{
		Method:        "generateContent",
		RequestType:   reqCfg.RequestType,
		SessionID:     sessionID,
		OriginalModel: originalModel,
		MappedModel:   reqCfg.FinalModel,
		Stream:        stream,
		Build: func(projectID string) []byte {
			return translator.BuildEnvelope(projectID, reqCfg.FinalModel, reqCfg.RequestType, inner, sessionID)
		},
	}
	if stream {
		req.Method = "streamGenerateContent"
		req.Query = "alt=sse"
		req.NewStream = func(body io.ReadCloser) translator.Stream {
			if legacy {
				return translator.NewOpenAILegacyStream(body, originalModel)
			}
			return translator.NewOpenAIStream(body, originalModel)
		}
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		common.WriteDispatchError(c, err, common.OpenAIShape)
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

	var body []byte
	if legacy {
		body = translator.ResponseToOpenAILegacy(result.Body, originalModel)
	} else {
		body = translator.ResponseToOpenAIChat(result.Body, originalModel)
	}
	if !gjson.ValidBytes(body) {
		log.Warn("upstream returned unparseable body")
		c.JSON(http.StatusBadGateway, common.OpenAIError("upstream returned an unparseable response", "api_error"))
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// Models handles GET /v1/models: the base catalogue plus every mapped
// alias from the active config.
func (h *Handler) Models(c *gin.Context) {
	const created = 1686935002
	list := models.OpenAIModelList(created)

	custom, openaiMap, _ := h.cfg.Mappings()
	seen := make(map[string]bool, len(list))
	for _, m := range list {
		seen[m.ID] = true
	}
	for _, table := range []map[string]string{custom, openaiMap} {
		for alias := range table {
			if !seen[alias] {
				seen[alias] = true
				list = append(list, models.OpenAIModel{ID: alias, Object: "model", Created: created, OwnedBy: "google"})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"object": "list", "data": list})
}
