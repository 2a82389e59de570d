package http

import "net/http"

// responseWriter decorates http.ResponseWriter so withLogging can report
// the status code and body size after the handler returns, without
// buffering the response. WriteHeader forwards to the underlying writer
// exactly once; later calls are ignored per the http.ResponseWriter
// contract.
type responseWriter struct {
	http.ResponseWriter

	status      int
	size        int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.status = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

// Write counts bytes across all calls. A Write before WriteHeader records
// the implicit 200.
func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}
