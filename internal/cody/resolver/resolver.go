// Package resolver defines the pluggable policy object a Server consults to
// answer semantic requests, and ships the protocol's default implementation.
//
// Resolver is a capability interface rather than a base class: a Server
// holds a non-owning Resolver for the duration of one batch dispatch, and a
// Resolver may return a different Resolver from ConnectRequest to pivot
// subsequent requests (in this batch and all later ones) to a
// session-specific handler.
package resolver

// ResponseSink is the subset of a Server's behavior a Resolver needs to
// push its own response line. Implemented by *server.Server; defined here,
// not there, so resolver has no dependency on the server package and a
// Resolver implementation can be written and tested without one either.
type ResponseSink interface {
	// ConnectResponse answers a HELLO, echoing the client-requested
	// version and naming this endpoint's agent identifier.
	ConnectResponse(version uint32, ident string)
	// ModuleRepoResponse answers MODULE-REPO with the repository path.
	ModuleRepoResponse(path string)
	// ModuleCMIResponse answers MODULE-EXPORT/MODULE-IMPORT, or a
	// successfully translated INCLUDE-TRANSLATE, with a CMI path.
	ModuleCMIResponse(path string)
	// IncludeTranslateResponse answers INCLUDE-TRANSLATE with a bare
	// INCLUDE-TEXT: the include remains textual, not translated.
	IncludeTranslateResponse()
	// OKResponse answers MODULE-COMPILED.
	OKResponse()
	// ErrorResponse answers any request with ERROR 'code detail'.
	ErrorResponse(code, detail string)
}

// Resolver answers the protocol's semantic requests. Every request method
// (all but WaitUntilReady) pushes exactly one response onto sink before
// returning; the Server's dispatch loop treats a resolver call that pushes
// zero or more than one response as an invariant violation.
type Resolver interface {
	// WaitUntilReady is called once before the first dispatch of a batch,
	// giving a Resolver a hook to block or prepare state. The default
	// implementation is a no-op.
	WaitUntilReady(sink ResponseSink)

	// ConnectRequest handles HELLO. It returns the Resolver to use for
	// all subsequent requests in this session (usually itself; returning
	// a different Resolver is the pivot mechanism). A nil return does not
	// end the session: the Server stays Disconnected, keeps its current
	// Resolver, and goes on dispatching the rest of the batch.
	ConnectRequest(sink ResponseSink, version uint32, agent, ident string) Resolver

	ModuleRepoRequest(sink ResponseSink)
	ModuleExportRequest(sink ResponseSink, module string)
	ModuleImportRequest(sink ResponseSink, module string)
	ModuleCompiledRequest(sink ResponseSink, module string)
	IncludeTranslateRequest(sink ResponseSink, include string)
}

// ProtocolVersion is the highest HELLO version this library's default
// Resolver accepts.
const ProtocolVersion = 1
