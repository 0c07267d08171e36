package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mercator-hq/aiguard/pkg/guard"
	"mercator-hq/aiguard/pkg/interceptor"
	"mercator-hq/aiguard/pkg/proxy/types"
)

// hopHeaders are connection-scoped and never copied between hops.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error response.
// It extracts the appropriate HTTP status code from the error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}

// WriteRejection writes a guard rejection with its status code and detail.
func WriteRejection(w http.ResponseWriter, rej *interceptor.RejectionError) error {
	code := types.CodePolicyViolation
	if rej.Kind == interceptor.KindGuardFailure {
		code = types.CodeGuardUnavailable
	}
	return WriteJSONResponse(w, rej.StatusCode, types.NewRejectionError(rej.Message(), code))
}

// CopyResponse streams resp to w, flushing after every read so server-sent
// events reach the client as they arrive.
func CopyResponse(w http.ResponseWriter, resp *http.Response) error {
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write response: %w", werr)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read upstream response: %w", err)
		}
	}
}

// WriteBufferedResponse writes a fully read upstream response.
func WriteBufferedResponse(w http.ResponseWriter, resp *http.Response, body []byte) error {
	copyHeaders(w.Header(), resp.Header)
	w.Header().Del("Content-Length")
	w.WriteHeader(resp.StatusCode)
	_, err := w.Write(body)
	return err
}

func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		dst[name] = append([]string(nil), values...)
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
}

// ExtractReply returns the first choice of a non-streaming completion
// response as an assistant message.
func ExtractReply(body []byte, callType interceptor.CallType) (guard.Message, bool) {
	var resp types.CompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		return guard.Message{}, false
	}

	choice := resp.Choices[0]
	if callType == interceptor.CallCompletion {
		if choice.Message == nil {
			return guard.Message{}, false
		}
		role := choice.Message.Role
		if role == "" {
			role = "assistant"
		}
		return guard.Message{Role: role, Content: choice.Message.Text()}, true
	}
	return guard.Message{Role: "assistant", Content: choice.Text}, true
}

// ApplyReply replaces the first choice's content in a raw response body.
func ApplyReply(body []byte, callType interceptor.CallType, reply guard.Message) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	choices, ok := doc["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil, errors.New("response has no choices")
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return nil, errors.New("malformed choice")
	}

	if callType == interceptor.CallCompletion {
		message, ok := choice["message"].(map[string]any)
		if !ok {
			return nil, errors.New("choice has no message")
		}
		message["content"] = reply.Content
	} else {
		choice["text"] = reply.Content
	}

	return json.Marshal(doc)
}
