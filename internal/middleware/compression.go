// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// gzPool recycles gzip writers across requests. A gzip writer allocates
// ~800KB of window state, which adds up fast on item-list responses.
var gzPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// compressedWriter routes the body through gzip while headers and status go
// straight to the underlying ResponseWriter.
type compressedWriter struct {
	io.Writer
	http.ResponseWriter
	wroteHeader bool
}

func (w *compressedWriter) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.Writer.Write(b)
}

// Compression gzips responses for clients that advertise gzip support.
// Snapshot and item-list payloads are JSON and compress well; WebSocket
// upgrades are left alone because the hijacked connection bypasses the
// ResponseWriter entirely.
func Compression(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next(w, r)
			return
		}
		if r.Header.Get("Upgrade") == "websocket" {
			next(w, r)
			return
		}

		gz := gzPool.Get().(*gzip.Writer)
		defer gzPool.Put(gz)
		gz.Reset(w)
		defer func() {
			// Best-effort flush; the response is already on the wire.
			_ = gz.Close()
		}()

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		// Stale after compression, and chunked encoding covers it.
		w.Header().Del("Content-Length")

		next(&compressedWriter{Writer: gz, ResponseWriter: w}, r)
	}
}
