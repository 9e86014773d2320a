package gemini

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// Handler serves the native Gemini surface under /v1beta.
type Handler struct {
	cfg        *config.Manager
	dispatcher *common.Dispatcher
	pool       *credential.Manager
	upstream   *upstream.Client
}

func NewHandler(cfg *config.Manager, dispatcher *common.Dispatcher, pool *credential.Manager, client *upstream.Client) *Handler {
	return &Handler{cfg: cfg, dispatcher: dispatcher, pool: pool, upstream: client}
}

// Generate handles POST /v1beta/models/{model}:{action} for
// generateContent, streamGenerateContent and countTokens.
func (h *Handler) Generate(c *gin.Context) {
	modelAction := strings.TrimPrefix(c.Param("modelAction"), "/")
	modelName, action := modelAction, "generateContent"
	if idx := strings.LastIndex(modelAction, ":"); idx >= 0 {
		modelName, action = modelAction[:idx], modelAction[idx+1:]
	}

	switch action {
	case "countTokens":
		h.countTokens(c)
		return
	case "generateContent", "streamGenerateContent":
	default:
		c.JSON(http.StatusBadRequest, common.GeminiError(http.StatusBadRequest, "Unsupported method: "+action))
		return
	}
	isStream := action == "streamGenerateContent"

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(raw) {
		c.JSON(http.StatusBadRequest, common.GeminiError(http.StatusBadRequest, "invalid JSON body"))
		return
	}

	custom, openaiMap, anthropic := h.cfg.Mappings()
	mappedModel := models.Resolve(modelName, custom, openaiMap, anthropic)
	reqCfg := translator.ResolveRequestConfig(modelName, mappedModel)

	inner := translator.GeminiToRequest(raw)
	inner = translator.ApplyRequestConfig(inner, reqCfg)

	req := &common.Request{
		Method:        "generateContent",
		RequestType:   reqCfg.RequestType,
		OriginalModel: modelName,
		MappedModel:   reqCfg.FinalModel,
		Stream:        isStream,
		Build: func(projectID string) []byte {
			return translator.BuildEnvelope(projectID, reqCfg.FinalModel, reqCfg.RequestType, inner, "")
		},
	}
	if isStream {
		req.Method = "streamGenerateContent"
		req.Query = "alt=sse"
		req.NewStream = func(body io.ReadCloser) translator.Stream {
			return translator.NewGeminiStream(body)
		}
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		common.WriteDispatchError(c, err, common.GeminiShape)
		return
	}

	c.Header("X-Account-Email", result.Email)
	c.Header("X-Mapped-Model", reqCfg.FinalModel)

	if isStream {
		flusher := common.PrepareSSE(c)
		c.Status(http.StatusOK)
		common.CopyStream(c, result.Stream, flusher)
		return
	}

	body := translator.ResponseToGemini(result.Body)
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadGateway, common.GeminiError(http.StatusBadGateway, "upstream returned an unparseable response"))
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// countTokens acknowledges the call without contacting the model; the
// upstream exposes no token counting for these models.
func (h *Handler) countTokens(c *gin.Context) {
	if _, err := h.pool.Pick(c.Request.Context(), translator.RequestTypeAgent, false, "", ""); err != nil {
		c.JSON(http.StatusServiceUnavailable, common.GeminiError(http.StatusServiceUnavailable, "Token error: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalTokens": 0})
}

// ListModels handles GET /v1beta/models, preferring the upstream catalogue
// and falling back to the static list.
func (h *Handler) ListModels(c *gin.Context) {
	if list, ok := h.fetchUpstreamModels(c); ok {
		c.JSON(http.StatusOK, gin.H{"models": list})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models.GeminiModelList()})
}

func (h *Handler) fetchUpstreamModels(c *gin.Context) ([]gin.H, bool) {
	pick, err := h.pool.Pick(c.Request.Context(), translator.RequestTypeAgent, false, "", "")
	if err != nil {
		return nil, false
	}
	resp, err := h.upstream.FetchAvailableModels(c.Request.Context(), pick.AccessToken)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}

	var list []gin.H
	gjson.ParseBytes(translator.UnwrapResponse(raw)).ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		displayName := value.Get("displayName").String()
		if displayName == "" {
			displayName = key.String()
		}
		list = append(list, gin.H{
			"name":                       "models/" + key.String(),
			"displayName":                displayName,
			"description":                value.Get("description").String(),
			"supportedGenerationMethods": []string{"generateContent", "streamGenerateContent", "countTokens"},
		})
		return true
	})
	if len(list) == 0 {
		return nil, false
	}
	return list, true
}

// GetModel handles GET /v1beta/models/{model}.
func (h *Handler) GetModel(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("modelAction"), "/")
	if name == "" {
		h.ListModels(c)
		return
	}
	if strings.Contains(name, ":") {
		c.JSON(http.StatusBadRequest, common.GeminiError(http.StatusBadRequest, "actions require POST"))
		return
	}
	log.WithField("model", name).Debug("model lookup")
	c.JSON(http.StatusOK, gin.H{
		"name":                       "models/" + name,
		"displayName":                name,
		"supportedGenerationMethods": []string{"generateContent", "streamGenerateContent", "countTokens"},
	})
}
