package buffer

import (
	"testing"
	"testing/quick"
)

// TestPropertyQuoteRoundTrip proves that for any arbitrary byte sequence
// appended as a single word, emitting and re-lexing it yields the original
// bytes back unchanged.
func TestPropertyQuoteRoundTrip(t *testing.T) {
	property := func(data []byte) bool {
		word := string(data)

		var out MessageBuffer
		out.BeginLine()
		out.AppendWord(word, true)

		var w sinkWriter
		for {
			res, err := out.Write(&w)
			if err != nil {
				return false
			}
			if res == Ok {
				break
			}
		}

		var in MessageBuffer
		if res, _ := in.AbsorbRaw(w.data); res != Ok {
			return false
		}
		got, res := in.Lex()
		if res != Ok || len(got) != 1 {
			return false
		}
		return got[0] == word
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 2000}); err != nil {
		t.Error(err)
	}
}

// TestPropertyResponseOrderingMatchesRequestCount proves that lexing a
// buffer built from N independently appended lines always yields exactly N
// lines back, in the same order they were appended.
func TestPropertyResponseOrderingMatchesRequestCount(t *testing.T) {
	property := func(words []string) bool {
		if len(words) == 0 {
			return true
		}
		var out MessageBuffer
		for _, w := range words {
			out.BeginLine()
			out.AppendWord(w, true)
		}

		var sink sinkWriter
		for {
			res, err := out.Write(&sink)
			if err != nil {
				return false
			}
			if res == Ok {
				break
			}
		}

		var in MessageBuffer
		if res, _ := in.AbsorbRaw(sink.data); res != Ok {
			return false
		}
		for _, want := range words {
			got, res := in.Lex()
			if res != Ok || len(got) != 1 || got[0] != want {
				return false
			}
		}
		_, res := in.Lex()
		return res == NoMessage
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}
