package domain

import "errors"

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrOrgNotFound         = errors.New("organization_not_found")
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrLastAdmin           = errors.New("last_admin")
)
