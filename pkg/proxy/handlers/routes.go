package handlers

import (
	"net/http"

	"mercator-hq/aiguard/pkg/interceptor"
)

// Routes maps inbound API paths to the call type they carry.
var Routes = map[string]interceptor.CallType{
	"/v1/chat/completions":     interceptor.CallCompletion,
	"/chat/completions":        interceptor.CallCompletion,
	"/v1/completions":          interceptor.CallTextCompletion,
	"/completions":             interceptor.CallTextCompletion,
	"/v1/embeddings":           interceptor.CallEmbeddings,
	"/v1/images/generations":   interceptor.CallImageGeneration,
	"/v1/moderations":          interceptor.CallModeration,
	"/v1/audio/transcriptions": interceptor.CallAudioTranscription,
}

// Register mounts a handler for every route on mux.
func Register(mux *http.ServeMux, h *CompletionHandler) {
	for path, callType := range Routes {
		mux.Handle(path, h.For(callType))
	}
}

// RouteLabel returns the metrics label for r: its call type, or "other"
// for paths outside the routing table.
func RouteLabel(r *http.Request) string {
	if callType, ok := Routes[r.URL.Path]; ok {
		return string(callType)
	}
	return "other"
}
