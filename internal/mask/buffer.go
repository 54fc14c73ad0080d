package mask

import "errors"

var errNilBuffer = errors.New("nil buffer")

// Buffer is a frame buffer borrowed from the host for a single call.
// The slice returned by Map is only valid until Unmap and must not be
// retained after it.
type Buffer interface {
	Map() ([]byte, error)
	Unmap()
}

// Bytes adapts a slice the caller already owns to Buffer.
type Bytes []byte

// Map returns the slice itself.
func (b Bytes) Map() ([]byte, error) {
	if b == nil {
		return nil, errNilBuffer
	}
	return b, nil
}

// Unmap is a no-op.
func (b Bytes) Unmap() {}
