package transport

import "net"

// NetConn adapts any net.Conn (a Unix-domain socket, a TCP connection, or a
// net.Pipe) to buffer.RawReader/buffer.RawWriter.
type NetConn struct {
	net.Conn
}

func NewNetConn(c net.Conn) NetConn { return NetConn{c} }

func (c NetConn) ReadChunk(p []byte) (int, error)  { return c.Conn.Read(p) }
func (c NetConn) WriteChunk(p []byte) (int, error) { return c.Conn.Write(p) }
