package handlers

import (
	"net/http"

	"texrelay-hq/texrelay/pkg/proxy"
	"texrelay-hq/texrelay/pkg/proxy/types"
)

// NotFoundHandler answers unknown routes with the JSON error shape used by
// the compile endpoint.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxy.WriteError(w, http.StatusNotFound, types.MessageNotFound, "")
	})
}
