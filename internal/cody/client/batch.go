package client

import "github.com/modmap/cody/internal/cody/wire"

// Batch accumulates one or more requests against a Client's outgoing
// MessageBuffer without flushing, mirroring the Resolver/Server side's
// WaitUntilReady naming: nothing reaches the wire until WaitUntilReady is
// called on the batch.
type Batch struct {
	c      *Client
	n      int
	queued bool
}

func (b *Batch) enqueue() {
	b.c.out.BeginLine()
	b.queued = true
	b.n++
}

// Connect queues a HELLO, identifying this endpoint with ident and
// requesting version.
func (b *Batch) Connect(version uint32, ident string) *Batch {
	b.enqueue()
	b.c.out.AppendWord(string(wire.Hello), false)
	b.c.out.AppendInteger(uint64(version))
	b.c.out.AppendWord(b.c.agent, true)
	b.c.out.AppendWord(ident, true)
	return b
}

// ModuleRepo queues a MODULE-REPO.
func (b *Batch) ModuleRepo() *Batch {
	b.enqueue()
	b.c.out.AppendWord(string(wire.ModuleRepo), false)
	return b
}

// ModuleExport queues a MODULE-EXPORT for module.
func (b *Batch) ModuleExport(module string) *Batch {
	b.enqueue()
	b.c.out.AppendWord(string(wire.ModuleExport), false)
	b.c.out.AppendWord(module, true)
	return b
}

// ModuleImport queues a MODULE-IMPORT for module.
func (b *Batch) ModuleImport(module string) *Batch {
	b.enqueue()
	b.c.out.AppendWord(string(wire.ModuleImport), false)
	b.c.out.AppendWord(module, true)
	return b
}

// ModuleCompiled queues a MODULE-COMPILED for module.
func (b *Batch) ModuleCompiled(module string) *Batch {
	b.enqueue()
	b.c.out.AppendWord(string(wire.ModuleCompiled), false)
	b.c.out.AppendWord(module, true)
	return b
}

// IncludeTranslate queues an INCLUDE-TRANSLATE for the given #include
// spelling.
func (b *Batch) IncludeTranslate(include string) *Batch {
	b.enqueue()
	b.c.out.AppendWord(string(wire.IncludeTranslate), false)
	b.c.out.AppendWord(include, true)
	return b
}

// WaitUntilReady flushes every request queued on this batch as one framed
// batch, blocks for the matching response batch, and returns the decoded
// responses in request order.
func (b *Batch) WaitUntilReady() ([]Response, error) {
	if !b.queued || b.n == 0 {
		return nil, nil
	}
	if err := b.c.roundTrip(); err != nil {
		return nil, err
	}
	responses := make([]Response, 0, b.n)
	for i := 0; i < b.n; i++ {
		resp, err := b.c.decodeNext()
		if err != nil {
			return responses, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// waitUntilReadyOne is the one-call-batch helper the synchronous Client
// methods use.
func (b *Batch) waitUntilReadyOne() (Response, error) {
	responses, err := b.WaitUntilReady()
	if err != nil {
		if len(responses) > 0 {
			return responses[0], err
		}
		return Response{}, err
	}
	if len(responses) != 1 {
		return Response{}, nil
	}
	return responses[0], nil
}
