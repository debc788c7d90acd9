package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/planora/internal/auth/domain"
	"github.com/smallbiznis/planora/internal/authorization"
	invdomain "github.com/smallbiznis/planora/internal/invitation/domain"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/rbac"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTooManyRequests = errors.New("too_many_requests")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, invdomain.ErrAuthenticationRequired):
		// The invitee keeps the token across the sign-in redirect.
		return http.StatusUnauthorized, errorPayload{
			Type:    "authentication_required",
			Message: "sign in to accept this invitation",
		}
	// Denials and unknown organizations render the same generic message
	// so callers cannot probe which organizations exist.
	case errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrNotAMember),
		errors.Is(err, orgdomain.ErrOrgNotFound):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "you don't have access",
		}
	// Invitation outcomes are specific. The caller already holds the
	// token, so nothing is leaked by saying why it no longer works.
	case errors.Is(err, invdomain.ErrInvitationNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "invitation_not_found",
			Message: "this invitation link is no longer valid",
		}
	case errors.Is(err, invdomain.ErrInvitationExpired):
		return http.StatusGone, errorPayload{
			Type:    "invitation_expired",
			Message: "this invitation has expired, ask for a new one",
		}
	case errors.Is(err, invdomain.ErrInvitationAlreadyAccepted):
		return http.StatusConflict, errorPayload{
			Type:    "invitation_already_accepted",
			Message: "this invitation has already been used",
		}
	case errors.Is(err, invdomain.ErrInviteLimitReached):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "invite_limit_reached",
			Message: "too many outstanding invitations for this organization",
		}
	case errors.Is(err, orgdomain.ErrLastAdmin):
		return http.StatusConflict, errorPayload{
			Type:    "last_admin",
			Message: "an organization must keep at least one active admin",
		}
	case errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests, slow down",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orgdomain.ErrMemberNotFound),
		errors.Is(err, authdomain.ErrUserNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, rbac.ErrUnknownAction):
		// Catalog misconfiguration. Surfaced as internal because it is a
		// deploy-time defect, never a user condition.
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, orgdomain.ErrInvalidName),
		errors.Is(err, orgdomain.ErrInvalidOrganization),
		errors.Is(err, orgdomain.ErrInvalidRole),
		errors.Is(err, orgdomain.ErrInvalidStatus),
		errors.Is(err, orgdomain.ErrInvalidUser),
		errors.Is(err, invdomain.ErrInvalidEmail),
		errors.Is(err, rbac.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
