package chunker

import (
	"errors"
	"fmt"
)

// ErrMinimumChunkSize is matched by every MinimumChunkSizeError via errors.Is
var ErrMinimumChunkSize = errors.New("chunk cannot be reduced below maximum size")

// MinimumChunkSizeError reports content that cannot be split under the size limit,
// typically a single line longer than the maximum chunk size
type MinimumChunkSizeError struct {
	Size int
	Max  int
}

func (e *MinimumChunkSizeError) Error() string {
	return fmt.Sprintf("chunk of %d bytes exceeds maximum chunk size %d and cannot be split further", e.Size, e.Max)
}

// Is lets callers test with errors.Is(err, ErrMinimumChunkSize)
func (e *MinimumChunkSizeError) Is(target error) bool {
	return target == ErrMinimumChunkSize
}

// IsFatal reports whether err must abort processing of the current document
func IsFatal(err error) bool {
	return errors.Is(err, ErrMinimumChunkSize)
}
