package eventstream

import "errors"

// ErrNilCheckEvent indicates a nil check event payload was provided to a publisher.
var ErrNilCheckEvent = errors.New("nil check event")
