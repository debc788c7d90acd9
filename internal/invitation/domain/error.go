package domain

import "errors"

var (
	ErrInvalidEmail              = errors.New("invalid_email")
	ErrInvitationNotFound        = errors.New("invitation_not_found")
	ErrInvitationExpired         = errors.New("invitation_expired")
	ErrInvitationAlreadyAccepted = errors.New("invitation_already_accepted")
	ErrAuthenticationRequired    = errors.New("authentication_required")
	ErrInviteLimitReached        = errors.New("invite_limit_reached")
)
