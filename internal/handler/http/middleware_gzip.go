package http

import (
	"compress/gzip"
	"net/http"
	"strings"
	"sync"
)

// Writers and readers are pooled; envelope payloads make some request
// bodies large enough for allocation churn to matter.
var (
	gzipWriterPool = sync.Pool{
		New: func() any { return gzip.NewWriter(nil) },
	}
	gzipReaderPool = sync.Pool{
		New: func() any { return new(gzip.Reader) },
	}
)

// withGZip transparently inflates gzip request bodies and compresses
// responses for clients that accept it. Every endpoint speaks JSON, so the
// response side keys off the Content-Type the handler sets and leaves
// anything else uncompressed.
func withGZip(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") && r.Body != nil {
			zr := gzipReaderPool.Get().(*gzip.Reader)
			if err := zr.Reset(r.Body); err != nil {
				gzipReaderPool.Put(zr)
				http.Error(w, "malformed gzip body", http.StatusBadRequest)
				return
			}
			r.Body = &pooledBody{Reader: zr}
			r.Header.Del("Content-Encoding")
		}

		w.Header().Add("Vary", "Accept-Encoding")
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		zw := gzipWriterPool.Get().(*gzip.Writer)
		zw.Reset(w)

		cw := &compressingWriter{ResponseWriter: w, gzip: zw}
		next.ServeHTTP(cw, r)

		if cw.compressing {
			zw.Close()
		}
		gzipWriterPool.Put(zw)
	})
}

// pooledBody returns its gzip reader to the pool on Close.
type pooledBody struct {
	*gzip.Reader
}

func (b *pooledBody) Close() error {
	err := b.Reader.Close()
	gzipReaderPool.Put(b.Reader)
	return err
}

// compressingWriter gzips the response body when the handler produced
// JSON. The decision is made once, on the first WriteHeader, because the
// Content-Encoding header must be out before any body bytes.
type compressingWriter struct {
	http.ResponseWriter

	gzip        *gzip.Writer
	compressing bool
	decided     bool
}

func (w *compressingWriter) WriteHeader(statusCode int) {
	if !w.decided {
		w.decided = true
		ct := w.Header().Get("Content-Type")
		bodyless := statusCode == http.StatusNoContent || statusCode == http.StatusNotModified
		if !bodyless && (ct == "" || strings.HasPrefix(ct, "application/json")) {
			w.compressing = true
			w.Header().Set("Content-Encoding", "gzip")
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *compressingWriter) Write(data []byte) (int, error) {
	if !w.decided {
		w.WriteHeader(http.StatusOK)
	}
	if w.compressing {
		return w.gzip.Write(data)
	}
	return w.ResponseWriter.Write(data)
}
