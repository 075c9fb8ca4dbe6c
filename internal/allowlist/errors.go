package allowlist

import (
	"errors"

	"grimm.is/firegate/internal/firewall"
)

// Error kinds. The gateway-facing ones are shared with the firewall package
// so errors.Is works across the boundary.
var (
	ErrInvalidArgument      = firewall.ErrInvalidArgument
	ErrSanitizationRejected = firewall.ErrSanitizationRejected
	ErrExternalToolFailure  = firewall.ErrExternalToolFailure
	ErrPersistence          = errors.New("persistence failure")
	ErrStopped              = errors.New("coordinator stopped")
)

// IsInputError reports whether err was caused by caller input rather than
// by the firewall or the store.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrSanitizationRejected)
}
