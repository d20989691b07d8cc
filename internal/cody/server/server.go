// Package server implements the module-mapper side of the protocol: the
// Disconnected/Connected state machine, request dispatch to a
// resolver.Resolver, and the response-encoding half of
// resolver.ResponseSink.
package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/modmap/cody/internal/cody/buffer"
	"github.com/modmap/cody/internal/cody/resolver"
	"github.com/modmap/cody/internal/cody/wire"
	"github.com/modmap/cody/internal/observability"
)

// State is the connection's position in the protocol's handshake
// state machine.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// ErrDispatchInvariant reports a Resolver implementation that failed to
// push exactly one response for the request it was given. This is a bug in
// the Resolver, not in client input, and is only ever raised in tests that
// exercise a Resolver directly against a Server.
var ErrDispatchInvariant = errors.New("server: resolver pushed an unexpected number of responses")

// Server holds one session's state: its current Resolver, its
// Connected/Disconnected position, and the outgoing MessageBuffer that the
// ResponseSink methods append to.
type Server struct {
	state        State
	resolver     resolver.Resolver
	out          buffer.MessageBuffer
	log          zerolog.Logger
	respCount    int
	node         string
	lastRespVerb wire.Verb
}

// New creates a Server in the Disconnected state, dispatching to r once a
// HELLO is accepted.
func New(r resolver.Resolver) *Server {
	return &Server{state: Disconnected, resolver: r, log: log.Logger}
}

// WithLogger overrides the zerolog.Logger used for transition and error
// logging, returning the same Server for chaining.
func (s *Server) WithLogger(logger zerolog.Logger) *Server {
	s.log = logger
	return s
}

// WithMetrics names this session for Prometheus labeling and enables
// per-request mapper metrics recording via internal/observability. Left
// unset, no metrics are recorded.
func (s *Server) WithMetrics(node string) *Server {
	s.node = node
	return s
}

// State reports the session's current handshake state.
func (s *Server) State() State {
	return s.state
}

// Out exposes the outgoing MessageBuffer so a transport can drain it with
// Write, TakeOutgoing, or any other buffer.MessageBuffer method.
func (s *Server) Out() *buffer.MessageBuffer {
	return &s.out
}

// ParseRequests lexes every complete line currently available in in and
// dispatches each one, appending exactly one response line per request to
// s.Out(). It returns after in reports NoMessage; a malformed or unknown
// request only produces an ERROR response for that one line and does not
// stop the batch.
func (s *Server) ParseRequests(in *buffer.MessageBuffer) error {
	s.resolver.WaitUntilReady(s)
	for {
		words, res := in.Lex()
		switch res {
		case buffer.NoMessage:
			return nil
		case buffer.Invalid:
			s.ErrorResponse("malformed_request", in.LexedLine())
		case buffer.Ok:
			if err := s.dispatch(words); err != nil {
				return err
			}
		default:
			return fmt.Errorf("server: lex: %s", res)
		}
	}
}

// dispatch decodes and answers one request line. It returns
// ErrDispatchInvariant only if the Resolver in use pushed zero or more than
// one response for a request that reached it — a bug in that Resolver, not
// in the input — so callers outside tests will never see it from
// well-behaved resolvers.
func (s *Server) dispatch(words []string) error {
	req, err := wire.DecodeRequest(words)
	if err != nil {
		code := "malformed_request"
		if errors.Is(err, wire.ErrUnknownVerb) {
			code = "unrecognized_request"
		}
		s.ErrorResponse(code, strings.Join(words, " "))
		return nil
	}

	if req.Verb == wire.Hello {
		before := s.respCount
		s.dispatchHello(req.Args)
		if s.respCount != before+1 {
			return fmt.Errorf("%w: %s pushed %d responses", ErrDispatchInvariant, req.Verb, s.respCount-before)
		}
		return nil
	}

	if s.state != Connected {
		s.log.Debug().Str("verb", string(req.Verb)).Msg("request before handshake")
		s.ErrorResponse("not_connected", string(req.Verb))
		return nil
	}

	switch req.Verb {
	case wire.ModuleExport, wire.ModuleImport, wire.ModuleCompiled, wire.IncludeTranslate:
		if req.Args[0] == "" {
			s.ErrorResponse("malformed_request", string(req.Verb))
			return nil
		}
	}

	before := s.respCount
	start := time.Now()
	switch req.Verb {
	case wire.ModuleRepo:
		s.resolver.ModuleRepoRequest(s)
	case wire.ModuleExport:
		s.resolver.ModuleExportRequest(s, req.Args[0])
	case wire.ModuleImport:
		s.resolver.ModuleImportRequest(s, req.Args[0])
	case wire.ModuleCompiled:
		s.resolver.ModuleCompiledRequest(s, req.Args[0])
	case wire.IncludeTranslate:
		s.resolver.IncludeTranslateRequest(s, req.Args[0])
	default:
		s.ErrorResponse("unrecognized_request", string(req.Verb))
		return nil
	}
	if s.respCount != before+1 {
		return fmt.Errorf("%w: %s pushed %d responses", ErrDispatchInvariant, req.Verb, s.respCount-before)
	}
	s.recordDispatch(req.Verb, time.Since(start))
	return nil
}

func (s *Server) recordDispatch(reqVerb wire.Verb, d time.Duration) {
	if s.node == "" {
		return
	}
	observability.RecordMapperRequest(s.node, string(reqVerb), string(s.lastRespVerb), d)
}

func (s *Server) dispatchHello(args []string) {
	if s.state == Connected {
		s.log.Debug().Msg("HELLO received while connected")
		s.ErrorResponse("already_connected", "")
		return
	}

	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		s.ErrorResponse("malformed_request", "HELLO "+strings.Join(args, " "))
		return
	}

	next := s.resolver.ConnectRequest(s, uint32(version), args[1], args[2])
	if next == nil {
		s.state = Disconnected
		s.log.Info().Msg("connect rejected, remaining disconnected")
		return
	}
	s.resolver = next
	if s.lastRespVerb != wire.Hello {
		// The Resolver pushed an ERROR (e.g. a version mismatch) rather
		// than a HELLO response: an ERROR never changes the handshake
		// state, so the session stays Disconnected even though the
		// Resolver chose to keep itself around for a retry.
		return
	}
	s.state = Connected
	s.log.Info().Str("agent", args[1]).Str("ident", args[2]).Msg("connected")
}

// resolver.ResponseSink implementation.

func (s *Server) ConnectResponse(version uint32, ident string) {
	s.beginLine(wire.Hello)
	s.out.AppendWord(string(wire.Hello), false)
	s.out.AppendInteger(uint64(version))
	s.out.AppendWord(ident, true)
}

func (s *Server) ModuleRepoResponse(path string) {
	s.beginLine(wire.ModuleRepo)
	s.out.AppendWord(string(wire.ModuleRepo), false)
	s.out.AppendWord(path, true)
}

func (s *Server) ModuleCMIResponse(path string) {
	s.beginLine(wire.ModuleCMI)
	s.out.AppendWord(string(wire.ModuleCMI), false)
	s.out.AppendWord(path, true)
}

func (s *Server) IncludeTranslateResponse() {
	s.beginLine(wire.IncludeText)
	s.out.AppendWord(string(wire.IncludeText), false)
}

func (s *Server) OKResponse() {
	s.beginLine(wire.OK)
	s.out.AppendWord(string(wire.OK), false)
}

func (s *Server) ErrorResponse(code, detail string) {
	word := code
	if detail != "" {
		word = code + " " + detail
	}
	s.beginLine(wire.Error)
	s.out.AppendWord(string(wire.Error), false)
	s.out.AppendWord(word, true)
	s.log.Warn().Str("code", code).Str("detail", detail).Msg("error response")
}

func (s *Server) beginLine(verb wire.Verb) {
	s.out.BeginLine()
	s.respCount++
	s.lastRespVerb = verb
}

var _ resolver.ResponseSink = (*Server)(nil)
