package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

// Recorder receives request measurements. *iammetrics.Registry satisfies it.
type Recorder interface {
	RecordRequestDuration(amountMS float64, method, route string)
	RecordResponseError(code int, method, route string)
}

// RouteFunc derives the route label of a served request.
type RouteFunc func(r *http.Request) string

// UnmatchedRoute labels requests that matched no route.
const UnmatchedRoute = "unmatched"

// OtherMethod labels requests with a non-standard HTTP method.
const OtherMethod = "OTHER"

// ChiRoute returns the matched chi route pattern, or [UnmatchedRoute] when chi
// matched nothing or did not route the request. The raw URL path is never
// used, so clients cannot mint new series.
func ChiRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return UnmatchedRoute
}

func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	}
	return OtherMethod
}

// Instrument records the wall time of every request in milliseconds and
// counts responses with status 400 or above. A nil route uses [ChiRoute].
// Route labels that are empty or not valid UTF-8 become [UnmatchedRoute].
func Instrument(rec Recorder, route RouteFunc) func(http.Handler) http.Handler {
	if route == nil {
		route = ChiRoute
	}
	return func(next http.Handler) http.Handler {
		if rec == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &responseRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}
			label := route(r)
			if label == "" || !utf8.ValidString(label) {
				label = UnmatchedRoute
			}
			method := methodLabel(r.Method)
			rec.RecordRequestDuration(float64(time.Since(start))/float64(time.Millisecond), method, label)
			if status >= http.StatusBadRequest {
				rec.RecordResponseError(status, method, label)
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	return rr.ResponseWriter.Write(b)
}

func (rr *responseRecorder) Flush() {
	if f, ok := rr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}
