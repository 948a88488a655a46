package ai

import (
	apperrors "github.com/iron-dillo/cybersandbox/internal/pkg/errors"
)

// ErrUnavailable is returned when the backing embedding model or service
// is not reachable or not configured. Callers must not retry internally.
var ErrUnavailable = apperrors.ErrUnavailable
