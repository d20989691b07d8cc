package transport

import (
	"fmt"

	"github.com/modmap/cody/internal/cody/buffer"
)

// Endpoint is one side of a Direct in-process connection: requests or
// responses are appended to Out the same way they would be for any other
// transport, but Flush hands the bytes straight to the peer's In rather
// than through a kernel read/write pair, so neither side ever sees EAGAIN.
type Endpoint struct {
	Out  buffer.MessageBuffer
	In   buffer.MessageBuffer
	peer *Endpoint
}

// NewDirectPair wires two Endpoints to each other. Either one's Flush
// delivers to the other's In.
func NewDirectPair() (a, b *Endpoint) {
	a, b = &Endpoint{}, &Endpoint{}
	a.peer, b.peer = b, a
	return a, b
}

// Flush hands everything currently queued in e.Out to e.peer.In in one
// synchronous step. A no-op when nothing is queued.
func (e *Endpoint) Flush() error {
	data := e.Out.TakeOutgoing()
	if len(data) == 0 {
		return nil
	}
	res, err := e.peer.In.AbsorbRaw(data)
	if res != buffer.Ok {
		return fmt.Errorf("transport: direct handoff: %w", err)
	}
	return nil
}
