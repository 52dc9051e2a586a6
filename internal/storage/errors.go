package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrObjectNotFound indicates no object is stored under the requested key.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey indicates a key the store cannot hold.
var ErrInvalidKey = errors.New("invalid object key")

// ErrInvalidCursor indicates a list cursor that was not produced by this store.
var ErrInvalidCursor = errors.New("invalid list cursor")

const maxKeyLength = 1024

// ValidateKey checks the constraints shared by all drivers.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, maxKeyLength)
	}
	if strings.ContainsRune(key, 0) {
		return fmt.Errorf("%w: contains NUL", ErrInvalidKey)
	}
	return nil
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
