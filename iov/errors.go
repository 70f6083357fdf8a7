package iov

import "errors"

// ErrOrderRange is returned by a PageAllocator when asked for a
// compound-page order it does not support.
var ErrOrderRange = errors.New("iov: page order out of range")
