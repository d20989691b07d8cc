// Package client implements the compiler side of the protocol: a mirror of
// internal/cody/server that encodes typed requests, flushes a batch, and
// decodes the matching batch of responses back into typed results.
package client

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/modmap/cody/internal/cody/buffer"
	"github.com/modmap/cody/internal/cody/wire"
)

// ProtocolError is the decoded form of an ERROR response: a short
// underscore-joined code and optional human-readable detail.
type ProtocolError struct {
	Code   string
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return e.Code + ": " + e.Detail
}

// Response is one decoded response line, self-describing by Verb: callers
// read only the fields that verb populates.
type Response struct {
	Verb    wire.Verb
	Version uint32
	Ident   string
	Path    string
	Err     *ProtocolError
}

// ReadWriter is the pairing of buffer's nonblocking raw interfaces a
// transport must satisfy for a Client to drive it.
type ReadWriter interface {
	buffer.RawReader
	buffer.RawWriter
}

// Client is one endpoint's compiler-side session state: the agent string
// it identifies itself with, and the outgoing/incoming MessageBuffers a
// Batch's requests and responses flow through.
type Client struct {
	rw    ReadWriter
	agent string
	out   buffer.MessageBuffer
	in    buffer.MessageBuffer
	log   zerolog.Logger
}

// New creates a Client that will identify itself to the server as agent
// (typically the compiler's own name and version) once Connect is called.
func New(rw ReadWriter, agent string) *Client {
	return &Client{rw: rw, agent: agent, log: log.Logger}
}

// WithLogger overrides the zerolog.Logger used for round-trip logging,
// returning the same Client for chaining.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.log = logger
	return c
}

// NewBatch starts a deferred batch of requests against this Client: no
// bytes are written until the batch's WaitUntilReady is called.
func (c *Client) NewBatch() *Batch {
	return &Batch{c: c}
}

// Connect, ModuleRepo, ModuleExport, ModuleImport, ModuleCompiled, and
// IncludeTranslate are each a one-call batch: enqueue, flush, decode.

func (c *Client) Connect(version uint32, ident string) (Response, error) {
	return c.NewBatch().Connect(version, ident).waitUntilReadyOne()
}

func (c *Client) ModuleRepo() (Response, error) {
	return c.NewBatch().ModuleRepo().waitUntilReadyOne()
}

func (c *Client) ModuleExport(module string) (Response, error) {
	return c.NewBatch().ModuleExport(module).waitUntilReadyOne()
}

func (c *Client) ModuleImport(module string) (Response, error) {
	return c.NewBatch().ModuleImport(module).waitUntilReadyOne()
}

func (c *Client) ModuleCompiled(module string) (Response, error) {
	return c.NewBatch().ModuleCompiled(module).waitUntilReadyOne()
}

func (c *Client) IncludeTranslate(include string) (Response, error) {
	return c.NewBatch().IncludeTranslate(include).waitUntilReadyOne()
}

// roundTrip flushes everything queued in c.out as one framed batch and
// reads back the matching response batch into c.in. It loops on Again and
// Interrupted, the caller's responsibility under the cooperative,
// single-threaded concurrency model this library assumes.
func (c *Client) roundTrip() error {
	for {
		res, err := c.out.Write(c.rw)
		if res == buffer.Ok {
			break
		}
		if res != buffer.Again && res != buffer.Interrupted {
			return fmt.Errorf("client: write: %w", err)
		}
	}
	for {
		res, err := c.in.Read(c.rw)
		if res == buffer.Ok {
			break
		}
		if res != buffer.Again && res != buffer.Interrupted {
			return fmt.Errorf("client: read: %w", err)
		}
	}
	return nil
}

// decodeNext lexes and decodes the next response line out of c.in.
func (c *Client) decodeNext() (Response, error) {
	words, res := c.in.Lex()
	if res == buffer.Invalid {
		return Response{}, fmt.Errorf("client: malformed response line: %q", c.in.LexedLine())
	}
	if res != buffer.Ok {
		return Response{}, fmt.Errorf("client: expected a response, got %s", res)
	}
	return decodeResponseWords(words)
}

func decodeResponseWords(words []string) (Response, error) {
	if len(words) == 0 {
		return Response{}, fmt.Errorf("client: empty response line")
	}
	verb := wire.Verb(words[0])
	args := words[1:]
	switch verb {
	case wire.Hello:
		if len(args) != 2 {
			return Response{}, fmt.Errorf("client: HELLO response wants 2 args, got %d", len(args))
		}
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return Response{}, fmt.Errorf("client: HELLO response version: %w", err)
		}
		return Response{Verb: verb, Version: uint32(version), Ident: args[1]}, nil
	case wire.ModuleRepo, wire.ModuleCMI:
		if len(args) != 1 {
			return Response{}, fmt.Errorf("client: %s response wants 1 arg, got %d", verb, len(args))
		}
		return Response{Verb: verb, Path: args[0]}, nil
	case wire.IncludeText:
		if len(args) > 1 {
			return Response{}, fmt.Errorf("client: %s response wants 0 or 1 args, got %d", verb, len(args))
		}
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return Response{Verb: verb, Path: path}, nil
	case wire.OK:
		return Response{Verb: verb}, nil
	case wire.Error:
		if len(args) != 1 {
			return Response{}, fmt.Errorf("client: ERROR response wants 1 arg, got %d", len(args))
		}
		code, detail := args[0], ""
		for i, b := range []byte(args[0]) {
			if b == ' ' {
				code, detail = args[0][:i], args[0][i+1:]
				break
			}
		}
		return Response{Verb: verb, Err: &ProtocolError{Code: code, Detail: detail}}, nil
	default:
		return Response{}, fmt.Errorf("client: unrecognized response verb %q", verb)
	}
}

// AsError turns a Response carrying an ERROR verb into its *ProtocolError,
// or nil for any other verb.
func (r Response) AsError() error {
	if r.Verb != wire.Error || r.Err == nil {
		return nil
	}
	return r.Err
}
