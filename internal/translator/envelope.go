package translator

import (
	"encoding/json"

	"antigravity2api-go/internal/constants"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// safetySettingsOff disables every harm category, matching the desktop
// client's behaviour. The civic-integrity category must be listed too or
// the upstream applies its default threshold.
var safetySettingsOff = []map[string]string{
	{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "OFF"},
	{"category": "HARM_CATEGORY_HATE_SPEECH", "threshold": "OFF"},
	{"category": "HARM_CATEGORY_SEXUALLY_EXPLICIT", "threshold": "OFF"},
	{"category": "HARM_CATEGORY_DANGEROUS_CONTENT", "threshold": "OFF"},
	{"category": "HARM_CATEGORY_CIVIC_INTEGRITY", "threshold": "OFF"},
}

// BuildEnvelope wraps a translated request body in the v1internal envelope.
// The requestId is freshly generated per call, so retry attempts rebuild
// the envelope rather than reusing it.
func BuildEnvelope(projectID, model, requestType string, requestBody []byte, sessionID string) []byte {
	body := requestBody
	if !gjson.GetBytes(body, "safetySettings").Exists() {
		settings, _ := json.Marshal(safetySettingsOff)
		body, _ = sjson.SetRawBytes(body, "safetySettings", settings)
	}
	if sessionID != "" {
		body, _ = sjson.SetBytes(body, "sessionId", sessionID)
	}

	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "project", projectID)
	out, _ = sjson.SetBytes(out, "requestId", "agent-"+uuid.NewString())
	out, _ = sjson.SetBytes(out, "model", model)
	out, _ = sjson.SetBytes(out, "userAgent", constants.EnvelopeUserAgent)
	out, _ = sjson.SetBytes(out, "requestType", requestType)
	out, _ = sjson.SetRawBytes(out, "request", body)
	return out
}

// UnwrapResponse strips the {"response":…} wrapper some upstream replies
// carry. Consumers always inspect the wrapper first, then the top level.
func UnwrapResponse(body []byte) []byte {
	if inner := gjson.GetBytes(body, "response"); inner.Exists() && inner.IsObject() {
		return []byte(inner.Raw)
	}
	return body
}
