package walker

import (
	"bytes"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Handler serves the listing for root, walking it again on every request
func (w *Walker) Handler(root string) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			rw.Header().Set("Allow", "GET, HEAD")
			http.Error(rw, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		var buf bytes.Buffer
		if err := w.Write(r.Context(), root, &buf); err != nil {
			w.log.Error("failed to build listing", zap.String("root", root), zap.Error(err))
			http.Error(rw, http.StatusText(statusFor(err)), statusFor(err))
			return
		}

		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		rw.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := buf.WriteTo(rw); err != nil {
			w.log.Warn("failed to send listing", zap.Error(err))
		}
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrDirectoryNotFound), errors.Is(err, ErrNotDirectory):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
