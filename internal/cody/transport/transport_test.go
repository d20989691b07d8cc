package transport

import (
	"net"
	"os"
	"testing"

	"github.com/modmap/cody/internal/cody/buffer"
)

func TestDirectPairHandsOffWithoutKernelCopy(t *testing.T) {
	a, b := NewDirectPair()

	a.Out.BeginLine()
	a.Out.AppendWord("MODULE-REPO", false)
	if err := a.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	words, res := b.In.Lex()
	if res != buffer.Ok {
		t.Fatalf("lex: %v", res)
	}
	if len(words) != 1 || words[0] != "MODULE-REPO" {
		t.Fatalf("got %v", words)
	}

	if _, res := b.In.Lex(); res != buffer.NoMessage {
		t.Fatalf("expected NoMessage after draining the one line, got %v", res)
	}
}

func TestDirectPairFlushWithNothingQueuedIsNoOp(t *testing.T) {
	a, b := NewDirectPair()
	if err := a.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, res := b.In.Lex(); res != buffer.NoMessage {
		t.Fatalf("expected NoMessage, got %v", res)
	}
}

func TestFDConnReadWriteOverOSPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	writer := NewFDConn(int(w.Fd()))
	reader := NewFDConn(int(r.Fd()))

	var out buffer.MessageBuffer
	out.BeginLine()
	out.AppendWord("MODULE-REPO", false)
	out.AppendWord("cmi.cache", true)

	for {
		res, werr := out.Write(writer)
		if werr != nil {
			t.Fatalf("write: %v", werr)
		}
		if res == buffer.Ok {
			break
		}
	}

	var in buffer.MessageBuffer
	for {
		res, rerr := in.Read(reader)
		if res == buffer.Ok {
			break
		}
		if rerr != nil {
			t.Fatalf("read: %v (%v)", res, rerr)
		}
	}

	words, res := in.Lex()
	if res != buffer.Ok {
		t.Fatalf("lex: %v", res)
	}
	if len(words) != 2 || words[0] != "MODULE-REPO" || words[1] != "cmi.cache" {
		t.Fatalf("got %v", words)
	}
}

func TestNetConnReadWriteOverPipe(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	writer := NewNetConn(clientConn)
	reader := NewNetConn(serverConn)

	var out buffer.MessageBuffer
	out.BeginLine()
	out.AppendWord("HELLO", false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			res, err := out.Write(writer)
			if err != nil {
				t.Errorf("write: %v", err)
				return
			}
			if res == buffer.Ok {
				return
			}
		}
	}()

	var in buffer.MessageBuffer
	for {
		res, err := in.Read(reader)
		if res == buffer.Ok {
			break
		}
		if err != nil {
			t.Fatalf("read: %v (%v)", res, err)
		}
	}
	<-done

	words, res := in.Lex()
	if res != buffer.Ok || len(words) != 1 || words[0] != "HELLO" {
		t.Fatalf("got %v %v", words, res)
	}
}
