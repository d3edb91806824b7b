package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/LineSchedule/internal/models"
)

// callbackAck is the body LINE receives for every verified delivery.
const callbackAck = "OK"

// fallbackErrorResponse is marshaled once so a failing response still has a body.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse marshals response before touching the headers, so an
// unencodable value turns into a 500 rather than a truncated 200.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// writeError rejects a webhook delivery with a JSON error body.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, models.Error(message))
}

// writeCallbackAck acknowledges a verified delivery in the plain text LINE expects.
func writeCallbackAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(callbackAck)); err != nil {
		slog.Error("Server.writeCallbackAck: failed to write response", "error", err)
	}
}

// writeMethodNotAllowed answers a request on a route that takes only allowed.
func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	slog.Warn("Server: method not allowed", "path", r.URL.Path, "method", r.Method)
	w.Header().Set("Allow", allowed)
	w.WriteHeader(http.StatusMethodNotAllowed)
}
