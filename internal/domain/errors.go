package domain

import "errors"

var (
	ErrGuildNotFound    = errors.New("guild not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrSessionNotFound  = errors.New("session not found")

	// ErrInvalidTemplateName is returned for names that cannot map to a file.
	ErrInvalidTemplateName = errors.New("invalid template name")
)
