package client

import (
	"net"
	"testing"
	"time"

	"github.com/modmap/cody/internal/cody/buffer"
	"github.com/modmap/cody/internal/cody/resolver"
	"github.com/modmap/cody/internal/cody/server"
)

// pipeRW adapts a net.Conn to buffer.RawReader/RawWriter so a net.Pipe can
// stand in for a real transport in tests without touching the filesystem
// or a real socket.
type pipeRW struct {
	net.Conn
}

func (p pipeRW) ReadChunk(buf []byte) (int, error)  { return p.Conn.Read(buf) }
func (p pipeRW) WriteChunk(buf []byte) (int, error) { return p.Conn.Write(buf) }

// runServer drives one Server over conn until it's closed, dispatching
// every batch it reads and writing back the matching response batch.
func runServer(t *testing.T, conn net.Conn, r resolver.Resolver) {
	t.Helper()
	rw := pipeRW{conn}
	srv := server.New(r)
	var in buffer.MessageBuffer
	for {
		res, err := in.Read(rw)
		if res == buffer.EOFResult {
			return
		}
		if res != buffer.Ok {
			if err != nil {
				t.Logf("server read: %v (%v)", res, err)
			}
			return
		}
		if err := srv.ParseRequests(&in); err != nil {
			t.Errorf("ParseRequests: %v", err)
			return
		}
		for {
			wres, werr := srv.Out().Write(rw)
			if wres == buffer.Ok {
				break
			}
			if wres != buffer.Again && wres != buffer.Interrupted {
				t.Errorf("server write: %v (%v)", wres, werr)
				return
			}
		}
	}
}

func TestClientServerRoundTripOverPipe(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	r := &resolver.Default{RepoDir: "cmi.cache", Ident: "default"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		runServer(t, serverConn, r)
	}()
	defer func() {
		serverConn.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("server goroutine did not exit")
		}
	}()

	c := New(pipeRW{clientConn}, "test-compiler")

	connectResp, err := c.Connect(1, "build-1")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if connectResp.Verb != "HELLO" || connectResp.Version != 1 || connectResp.Ident != "default" {
		t.Fatalf("connect response: %+v", connectResp)
	}

	repoResp, err := c.ModuleRepo()
	if err != nil {
		t.Fatalf("module repo: %v", err)
	}
	if repoResp.Path != "cmi.cache" {
		t.Fatalf("repo response: %+v", repoResp)
	}

	exportResp, err := c.ModuleExport("foo")
	if err != nil {
		t.Fatalf("module export: %v", err)
	}
	if exportResp.Path != "foo.cmi" {
		t.Fatalf("export response: %+v", exportResp)
	}
}

func TestClientBatchDeferredUntilWaitUntilReady(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	r := &resolver.Default{RepoDir: "cmi.cache", Ident: "default"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		runServer(t, serverConn, r)
	}()
	defer func() {
		serverConn.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("server goroutine did not exit")
		}
	}()

	c := New(pipeRW{clientConn}, "test-compiler")
	if _, err := c.Connect(1, "build-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	batch := c.NewBatch().ModuleExport("a").ModuleImport("b").ModuleCompiled("c")
	responses, err := batch.WaitUntilReady()
	if err != nil {
		t.Fatalf("wait until ready: %v", err)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3: %+v", len(responses), responses)
	}
	if responses[0].Path != "a.cmi" || responses[1].Path != "b.cmi" || responses[2].Verb != "OK" {
		t.Fatalf("responses = %+v", responses)
	}
}

func TestClientSurfacesProtocolError(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	r := &resolver.Default{RepoDir: "cmi.cache", Ident: "default"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		runServer(t, serverConn, r)
	}()
	defer func() {
		serverConn.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("server goroutine did not exit")
		}
	}()

	c := New(pipeRW{clientConn}, "test-compiler")

	resp, err := c.ModuleRepo()
	if err != nil {
		t.Fatalf("module repo: %v", err)
	}
	if resp.Verb != "ERROR" {
		t.Fatalf("expected ERROR verb, got %+v", resp)
	}
	if protoErr := resp.AsError(); protoErr == nil {
		t.Fatalf("expected non-nil AsError()")
	} else if protoErr.(*ProtocolError).Code != "not_connected" {
		t.Fatalf("code = %q", protoErr.(*ProtocolError).Code)
	}
}
