package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/translator"
)

type imageJob struct {
	prompt         string
	n              int
	size           string
	quality        string
	responseFormat string
	// optional reference images for edits, as inlineData parts
	references []map[string]interface{}
}

// ImageGenerations handles POST /v1/images/generations.
func (h *Handler) ImageGenerations(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(raw) {
		c.JSON(http.StatusBadRequest, common.OpenAIError("invalid JSON body", "invalid_request_error"))
		return
	}
	prompt := gjson.GetBytes(raw, "prompt").String()
	if prompt == "" {
		c.JSON(http.StatusBadRequest, common.OpenAIError("prompt is required", "invalid_request_error"))
		return
	}
	job := imageJob{
		prompt:         prompt,
		n:              int(gjson.GetBytes(raw, "n").Int()),
		size:           gjson.GetBytes(raw, "size").String(),
		quality:        gjson.GetBytes(raw, "quality").String(),
		responseFormat: gjson.GetBytes(raw, "response_format").String(),
	}
	h.runImageJob(c, job)
}

// ImageEdits handles POST /v1/images/edits (multipart form).
func (h *Handler) ImageEdits(c *gin.Context) {
	prompt := c.PostForm("prompt")
	if prompt == "" {
		c.JSON(http.StatusBadRequest, common.OpenAIError("prompt is required", "invalid_request_error"))
		return
	}

	imageFile, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.OpenAIError("image file is required", "invalid_request_error"))
		return
	}
	references := make([]map[string]interface{}, 0, 2)
	imagePart, err := inlinePartFromFile(imageFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.OpenAIError(err.Error(), "invalid_request_error"))
		return
	}
	references = append(references, imagePart)

	if maskFile, err := c.FormFile("mask"); err == nil {
		maskPart, err := inlinePartFromFile(maskFile)
		if err != nil {
			c.JSON(http.StatusBadRequest, common.OpenAIError(err.Error(), "invalid_request_error"))
			return
		}
		references = append(references, maskPart)
	}

	n, _ := strconv.Atoi(c.PostForm("n"))
	job := imageJob{
		prompt:         prompt,
		n:              n,
		size:           c.PostForm("size"),
		responseFormat: c.PostForm("response_format"),
		references:     references,
	}
	h.runImageJob(c, job)
}

// runImageJob fans n parallel upstream calls and gathers the images.
// Partial success is fine as long as at least one image comes back.
func (h *Handler) runImageJob(c *gin.Context, job imageJob) {
	n := job.n
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}

	inner := buildImageRequest(job)

	type outcome struct {
		images []imageResult
		err    error
	}
	results := make([]outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			req := &common.Request{
				Method:        "generateContent",
				RequestType:   translator.RequestTypeImageGen,
				OriginalModel: constants.ImageGenerationModel,
				MappedModel:   constants.ImageGenerationModel,
				Build: func(projectID string) []byte {
					return translator.BuildEnvelope(projectID, constants.ImageGenerationModel, translator.RequestTypeImageGen, inner, "")
				},
			}
			result, err := h.dispatcher.Dispatch(c.Request.Context(), req)
			if err != nil {
				results[slot] = outcome{err: err}
				return
			}
			results[slot] = outcome{images: extractImages(result.Body)}
		}(i)
	}
	wg.Wait()

	var images []imageResult
	var lastErr error
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			lastErr = r.err
			continue
		}
		images = append(images, r.images...)
	}
	if failed > 0 {
		log.WithFields(log.Fields{"failed": failed, "requested": n}).Warn("some image generations failed")
	}
	if len(images) == 0 {
		if lastErr != nil {
			common.WriteDispatchError(c, lastErr, common.OpenAIShape)
			return
		}
		c.JSON(http.StatusBadGateway, common.OpenAIError("upstream returned no image data", "api_error"))
		return
	}

	data := make([]gin.H, 0, len(images))
	for _, img := range images {
		if job.responseFormat == "url" {
			data = append(data, gin.H{"url": fmt.Sprintf("data:%s;base64,%s", img.mimeType, img.b64)})
		} else {
			data = append(data, gin.H{"b64_json": img.b64})
		}
	}
	c.JSON(http.StatusOK, gin.H{"created": time.Now().Unix(), "data": data})
}

type imageResult struct {
	mimeType string
	b64      string
}

func buildImageRequest(job imageJob) []byte {
	parts := make([]map[string]interface{}, 0, len(job.references)+1)
	parts = append(parts, job.references...)
	parts = append(parts, map[string]interface{}{"text": job.prompt})

	imageConfig := map[string]interface{}{"aspectRatio": aspectFromSize(job.size)}
	if job.quality == "hd" {
		imageConfig["imageSize"] = "4K"
	}

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"role": "user", "parts": parts},
		},
		"generationConfig": map[string]interface{}{
			"imageConfig": imageConfig,
		},
	}
	out, _ := json.Marshal(body)
	return out
}

func aspectFromSize(size string) string {
	switch size {
	case "1792x1024", "1536x1024":
		return "16:9"
	case "1024x1792", "1024x1536":
		return "9:16"
	default:
		return "1:1"
	}
}

func extractImages(upstreamBody []byte) []imageResult {
	result := gjson.ParseBytes(translator.UnwrapResponse(upstreamBody))
	var images []imageResult
	for _, part := range result.Get("candidates.0.content.parts").Array() {
		if inline := part.Get("inlineData"); inline.Exists() {
			images = append(images, imageResult{
				mimeType: inline.Get("mimeType").String(),
				b64:      inline.Get("data").String(),
			})
		}
	}
	return images
}

func inlinePartFromFile(header *multipart.FileHeader) (map[string]interface{}, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return map[string]interface{}{
		"inlineData": map[string]interface{}{
			"mimeType": mimeType,
			"data":     base64.StdEncoding.EncodeToString(data),
		},
	}, nil
}
