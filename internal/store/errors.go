package store

import (
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// Sentinel errors. They carry domain error codes, so callers can match them
// with errors.Is against either these values or the domain sentinels.
var (
	ErrNotFound      = errors.NotFound("resource not found")
	ErrAlreadyExists = errors.EntityCreationf("resource already exists")
	ErrTxnClosed     = errors.Internalf("transaction already committed or rolled back")
)
