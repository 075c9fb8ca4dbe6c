package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// maxBodyBytes bounds request bodies; grant requests are tiny.
const maxBodyBytes = 64 << 10

// Response is the envelope shared by every JSON reply.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func errorResponse(msg string) Response {
	return Response{Status: false, Error: msg}
}

// setCORS applies the cross-origin headers every response carries.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
}

// WriteJSON sends a JSON response with the CORS headers.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// request is a parsed API call: merged parameters plus the raw body the
// signature is computed over.
type request struct {
	params url.Values
	body   []byte
}

// readRequest merges query and body parameters. Body values win.
func readRequest(r *http.Request) (*request, error) {
	params := url.Values{}
	for k, v := range r.URL.Query() {
		params[k] = v
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(body) > maxBodyBytes {
			return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
		}
	}

	if len(body) > 0 {
		bodyParams, err := parseBody(r.Header.Get("Content-Type"), body)
		if err != nil {
			return nil, err
		}
		for k, v := range bodyParams {
			params[k] = v
		}
	}
	return &request{params: params, body: body}, nil
}

func parseBody(contentType string, body []byte) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/json":
		var obj map[string]any
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		out := url.Values{}
		for k, v := range obj {
			switch val := v.(type) {
			case string:
				out.Set(k, val)
			case float64, bool:
				out.Set(k, fmt.Sprint(val))
			}
		}
		return out, nil
	case "application/x-www-form-urlencoded", "":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		return values, nil
	default:
		return url.Values{}, nil
	}
}

// getClientIP extracts the client IP from the request. With trustProxy the
// first X-Forwarded-For entry wins when it parses as an IP.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// responseWriter captures the status code for logging and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
