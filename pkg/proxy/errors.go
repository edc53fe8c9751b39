package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"texrelay-hq/texrelay/pkg/compiler"
	"texrelay-hq/texrelay/pkg/proxy/types"
	"texrelay-hq/texrelay/pkg/security/auth"
)

// Error classes, used as log fields and metric labels.
const (
	ClassAuth       = "auth_error"
	ClassValidation = "validation_error"
	ClassUpstream   = "upstream_error"
	ClassInternal   = "internal_error"
)

// HandleError converts an error from any pipeline step into the status code
// and body the caller receives, plus its class.
//
//	if err != nil {
//	    status, body, _ := proxy.HandleError(err)
//	    proxy.Write(w, proxy.NewErrorResponse(status, body))
//	}
func HandleError(err error) (int, *types.ErrorResult, string) {
	if auth.IsAuthError(err) {
		return http.StatusUnauthorized, types.NewErrorResult(types.MessageUnauthorized, ""), ClassAuth
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, types.NewErrorResult(reqErr.Message, ""), ClassValidation
	}

	if compiler.IsUpstreamFailure(err) {
		detail := compiler.ErrorDetail(err)
		var rejected *compiler.RejectedError
		if detail == "" && errors.As(err, &rejected) {
			detail = fmt.Sprintf("compiler returned status %d with an empty body", rejected.StatusCode)
		}
		return http.StatusBadRequest, types.NewErrorResult(types.MessageCompileFailed, detail), ClassUpstream
	}

	return http.StatusInternalServerError, types.NewErrorResult(types.MessageInternalError, err.Error()), ClassInternal
}
