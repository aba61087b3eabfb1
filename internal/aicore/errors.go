package aicore

import "errors"

var (
	ErrInvalidSettings        = errors.New("invalid ai core settings")
	ErrNoDeploymentFound      = errors.New("no ai core deployment found")
	ErrMissingDeploymentURL   = errors.New("selected deployment is missing deployment url")
	ErrDeploymentNameRequired = errors.New("deployment name required")
)
