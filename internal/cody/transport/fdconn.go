// Package transport supplies the three concrete byte-stream endpoints this
// library ships: FDConn, a nonblocking file-descriptor pair suitable for a
// real pipe or socket, NetConn, an adapter for any net.Conn, and a Direct
// in-process handoff that never blocks and never reports EAGAIN.
package transport

import "golang.org/x/sys/unix"

// FDConn adapts a single nonblocking file descriptor to
// buffer.RawReader/buffer.RawWriter. The descriptor is owned by the
// caller: FDConn never closes it.
type FDConn struct {
	fd int
}

// NewFDConn wraps fd, which the caller must already have placed in
// nonblocking mode (or does so itself via SetNonblocking).
func NewFDConn(fd int) *FDConn {
	return &FDConn{fd: fd}
}

// SetNonblocking puts the wrapped descriptor into nonblocking mode, so
// Read and Write below return syscall.EAGAIN instead of blocking the
// calling goroutine.
func (c *FDConn) SetNonblocking() error {
	return unix.SetNonblock(c.fd, true)
}

// ReadChunk performs one raw, possibly-partial read(2). A nonblocking fd
// with nothing available returns (0, syscall.EAGAIN); MessageBuffer.Read
// maps that to buffer.Again, not EOF.
func (c *FDConn) ReadChunk(p []byte) (int, error) {
	return unix.Read(c.fd, p)
}

// WriteChunk performs one raw, possibly-partial write(2).
func (c *FDConn) WriteChunk(p []byte) (int, error) {
	return unix.Write(c.fd, p)
}

// Fd reports the wrapped descriptor, e.g. for registering with an epoll
// or poll set the caller drives itself.
func (c *FDConn) Fd() int {
	return c.fd
}
