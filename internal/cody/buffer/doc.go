// Ownership boundary: byte-level framing only. buffer knows nothing about
// verbs, requests, or resolver policy — see internal/cody/wire for that.
package buffer
