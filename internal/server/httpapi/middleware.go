package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/common"
	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	identityKey     = "docgate.identity"
	requestIDHeader = "X-Request-ID"
)

var (
	errAuthRequired = common.NewError(common.ErrorUnauthorized, "authorization required")
	errMalformed    = common.NewError(common.ErrorUnauthorized, "malformed authorization")
	errExpired      = common.NewError(common.ErrorUnauthorized, "token expired")
	errInvalid      = common.NewError(common.ErrorUnauthorized, "invalid token")
)

// IdentityFrom returns the identity attached by an auth gate, if any.
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	id, ok := v.(*models.Identity)
	return id, ok && id != nil
}

// bearerToken extracts the credential from an Authorization header value.
func bearerToken(header string) (string, error) {
	scheme, credential, _ := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, common.BearerScheme) {
		return "", errMalformed
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", errAuthRequired
	}
	return credential, nil
}

func (a *API) authenticate(c *gin.Context, token string) bool {
	id, err := a.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			a.fail(c, errExpired)
		} else {
			a.fail(c, errInvalid)
		}
		return false
	}
	c.Set(identityKey, id)
	return true
}

// RequireAuth admits only requests with a valid bearer token in the
// Authorization header.
func (a *API) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeader)
		if header == "" {
			a.fail(c, errAuthRequired)
			return
		}
		token, err := bearerToken(header)
		if err != nil {
			a.fail(c, err)
			return
		}
		if !a.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth reads the header first and the token query parameter second.
// Requests with neither pass through without an identity; a credential that
// is present but bad is rejected as RequireAuth would.
func (a *API) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if header := c.GetHeader(common.AuthorizationHeader); header != "" {
			t, err := bearerToken(header)
			if err != nil {
				a.fail(c, err)
				return
			}
			token = t
		} else {
			token = strings.TrimSpace(c.Query(common.TokenQueryParam))
		}

		if token != "" && !a.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// RequireRole must run after an auth gate.
func (a *API) RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			a.fail(c, errAuthRequired)
			return
		}
		if id.Role != role {
			a.fail(c, common.NewError(common.ErrorForbidden, fmt.Sprintf("%s access required", role)))
			return
		}
		c.Next()
	}
}

// requestLogger tags the request context with a request id, echoed in the
// X-Request-ID header, then logs and counts the request.
func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(logging.WithAttrs(c.Request.Context(), "request_id", requestID))

		c.Next()

		elapsed := time.Since(start)
		a.metrics.observe(c.Request.Method, c.FullPath(), c.Writer.Status(), elapsed)

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", elapsed,
		}
		if id, ok := IdentityFrom(c); ok {
			args = append(args, "subject", id.SubjectID)
		}
		a.logger.Info(c.Request.Context(), "http request", args...)
	}
}

func (a *API) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		a.logger.Error(c.Request.Context(), "panic recovered", "panic", recovered, "path", c.Request.URL.Path)
		if c.Writer.Written() {
			c.Abort()
			return
		}
		a.fail(c, common.Internal(fmt.Errorf("panic: %v", recovered)))
	})
}

func noRoute(a *API) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.fail(c, common.NewError(common.ErrorNotFound, fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path)))
	}
}

