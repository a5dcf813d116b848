package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

// NewReverseProxy encaminha tudo para target; falhas do upstream viram 502.
func NewReverseProxy(target *url.URL, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error",
			zap.String("upstream", target.String()),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "bad_gateway", "upstream unavailable")
	}
	return proxy
}
