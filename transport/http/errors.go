package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/encryptme/core"
)

var statusByError = []struct {
	err    error
	status int
}{
	{core.ErrEncoding, http.StatusBadRequest},
	{core.ErrInvalidSession, http.StatusBadRequest},
	{core.ErrInvalidSignature, http.StatusUnauthorized},
	{core.ErrInvalidToken, http.StatusUnauthorized},
	{core.ErrNoLedgerSession, http.StatusUnauthorized},
	{core.ErrNotRegistered, http.StatusForbidden},
	{core.ErrAccessDenied, http.StatusForbidden},
	{core.ErrUnknownMessage, http.StatusNotFound},
	{core.ErrStaleNonce, http.StatusConflict},
	{core.ErrAlreadyRegistered, http.StatusConflict},
	{core.ErrAlreadyCommitted, http.StatusConflict},
	{core.ErrNoActiveCommitment, http.StatusConflict},
	{core.ErrDeadlineExceeded, http.StatusGone},
	{core.ErrSessionExpired, http.StatusGone},
	{core.ErrHashMismatch, http.StatusUnprocessableEntity},
	{core.ErrTimeout, http.StatusGatewayTimeout},
}

// statusOf maps a domain error to an HTTP status
func statusOf(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
