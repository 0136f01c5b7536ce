package pool

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the errors produced by this package.
const (
	TextCodeNameRequired   = "POOL_NAME_REQUIRED"
	TextCodeConfigInvalid  = "POOL_CONFIG_INVALID"
	TextCodeCreateFailed   = "POOL_CREATE_FAILED"
	TextCodeDestroyFailed  = "POOL_DESTROY_FAILED"
	TextCodeNotInitialized = "POOL_NOT_INITIALIZED"
	TextCodeNotManaged     = "POOL_NOT_MANAGED"
)

// ErrNotInitialized is returned by runtime accessors of a handle that has no
// live native pool, either because it was never resolved or because it was destroyed.
var ErrNotInitialized = goerrors.New("pool has not been initialized", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotInitialized)

// ErrNotManaged is returned by an explicit Destroy of a discovered pool. The
// process that created it owns its teardown.
var ErrNotManaged = goerrors.New("pool is not managed by this process", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotManaged)

func newNameRequiredError() *goerrors.Error {
	return goerrors.New("pool name is required", goerrors.CategoryValidation).
		WithTextCode(TextCodeNameRequired)
}

func newEndpointError(value, reason string) *goerrors.Error {
	return goerrors.New("invalid endpoint: "+reason, goerrors.CategoryValidation).
		WithTextCode(TextCodeConfigInvalid).
		WithMetadata(map[string]any{"endpoint": value})
}

func newCreationError(name string, source error) *goerrors.Error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, "failed to create pool")
	// Wrap keeps the category and code of an already structured source, so
	// set them explicitly for the creation failure.
	err.Category = goerrors.CategoryExternal
	return err.WithTextCode(TextCodeCreateFailed).
		WithMetadata(map[string]any{"pool": name})
}

func newTeardownError(name string, source error) *goerrors.Error {
	err := goerrors.Wrap(source, goerrors.CategoryOperation, "failed to destroy pool")
	err.Category = goerrors.CategoryOperation
	return err.WithTextCode(TextCodeDestroyFailed).
		WithMetadata(map[string]any{"pool": name})
}

// IsConfigurationError reports whether err is a missing name or invalid configuration.
func IsConfigurationError(err error) bool {
	return hasTextCode(err, TextCodeNameRequired) || hasTextCode(err, TextCodeConfigInvalid)
}

// IsNativeCreationError reports whether err came from the native pool creation path.
func IsNativeCreationError(err error) bool {
	return hasTextCode(err, TextCodeCreateFailed)
}

// IsTeardownError reports whether err came from destroying an owned pool.
func IsTeardownError(err error) bool {
	return hasTextCode(err, TextCodeDestroyFailed)
}

func hasTextCode(err error, code string) bool {
	var e *goerrors.Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.TextCode == code
}
