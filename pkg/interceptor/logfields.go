package interceptor

import (
	"encoding/json"
	"strings"
)

// SplitModel splits a model identifier on its first "/". An identifier
// without one yields an empty provider.
func SplitModel(id string) (provider, model string) {
	provider, model, ok := strings.Cut(id, "/")
	if !ok {
		return "", id
	}
	return provider, model
}

// LogFields builds the log_fields guard parameter. Both values are JSON
// documents encoded as strings.
func LogFields(modelID, endpoint string) map[string]any {
	provider, model := SplitModel(modelID)

	modelJSON, _ := json.Marshal(struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}{provider, model})

	extraJSON, _ := json.Marshal(struct {
		API string `json:"api"`
	}{endpoint})

	return map[string]any{
		"model":      string(modelJSON),
		"extra_info": string(extraJSON),
	}
}
