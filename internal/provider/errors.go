package provider

import (
	"errors"
	"fmt"

	"github.com/zjrosen/canvasflow/internal/catalog"
)

var (
	// ErrUnknownModel is returned when a model id is not in the catalog.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownProvider is returned when a catalog entry names a provider
	// that was never registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnsupportedCapability is returned when a provider cannot serve the
	// requested modality.
	ErrUnsupportedCapability = errors.New("unsupported capability")

	// ErrProviderExecution wraps failures reported by a vendor.
	ErrProviderExecution = errors.New("provider execution failed")

	// ErrFeatureUnavailable marks a modality that exists in the data model
	// but is not implemented yet.
	ErrFeatureUnavailable = errors.New("feature not available")

	// ErrOperationTimeout is returned when a long-running vendor operation
	// does not finish within its polling budget.
	ErrOperationTimeout = errors.New("operation timed out")
)

// UnknownModelError reports a model id missing from the catalog.
type UnknownModelError struct {
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model: %s", e.Model)
}

func (e *UnknownModelError) Unwrap() error { return ErrUnknownModel }

// UnknownProviderError reports a provider name missing from the registry.
type UnknownProviderError struct {
	Provider string
	Model    string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("model %s: unknown provider: %s", e.Model, e.Provider)
}

func (e *UnknownProviderError) Unwrap() error { return ErrUnknownProvider }

// UnsupportedCapabilityError reports a provider or model that cannot
// generate the requested modality.
type UnsupportedCapabilityError struct {
	Provider   string
	Model      string
	Capability catalog.Modality
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("provider %s does not support %s generation (model %s)", e.Provider, e.Capability, e.Model)
}

func (e *UnsupportedCapabilityError) Unwrap() error { return ErrUnsupportedCapability }

// ExecutionError wraps an error returned by a provider.
type ExecutionError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Provider, e.Model, e.Err)
}

// Unwrap exposes both the vendor error and ErrProviderExecution.
func (e *ExecutionError) Unwrap() []error {
	return []error{ErrProviderExecution, e.Err}
}
