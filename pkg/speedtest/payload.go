package speedtest

import "fmt"

// Generate returns a payload of exactly size bytes. The content is a fixed
// non-zero pattern, so repeated calls yield identical buffers.
func Generate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: payload size %v", ErrInvalidArgument, size)
	}

	p := make([]byte, size)
	for i := range p {
		p[i] = byte(i%251) + 1
	}

	return p, nil
}
