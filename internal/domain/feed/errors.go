package feed

import "errors"

var (
	// ErrStale is returned by a Session build whose viewer changed while it ran.
	ErrStale = errors.New("feed: viewer changed during build")
	// ErrNoViewer is returned by a Session that has not been bound to a user.
	ErrNoViewer = errors.New("feed: no viewer bound")
)
