package resolver

import (
	"os"
	"path/filepath"
	"strings"
)

// Default is the protocol's batteries-included Resolver: it answers every
// request itself, naming CMI files under RepoDir by the module-to-filename
// algorithm in GetCMIName and never pivots.
type Default struct {
	// RepoDir is the CMI repository path reported in answer to
	// MODULE-REPO and used to prefix every CMI name this resolver names.
	RepoDir string
	// Ident is this endpoint's agent identifier, echoed back in
	// ConnectResponse.
	Ident string
	// Suffix is appended, after a ".", to a module's canonicalized name to
	// produce its CMI filename. Defaults to "cmi" when empty.
	Suffix string
}

func (d *Default) suffix() string {
	suffix := d.Suffix
	if suffix == "" {
		suffix = "cmi"
	}
	return "." + suffix
}

// WaitUntilReady is a no-op: Default never defers readiness.
func (d *Default) WaitUntilReady(sink ResponseSink) {}

// ConnectRequest rejects any version beyond ProtocolVersion with an ERROR,
// keeping this same resolver in place for a retry rather than terminating
// the session, and otherwise answers with this resolver's own Ident, never
// pivoting.
func (d *Default) ConnectRequest(sink ResponseSink, version uint32, agent, ident string) Resolver {
	if version > ProtocolVersion {
		sink.ErrorResponse("version_mismatch", "unsupported version")
		return d
	}
	sink.ConnectResponse(version, d.Ident)
	return d
}

func (d *Default) ModuleRepoRequest(sink ResponseSink) {
	sink.ModuleRepoResponse(d.RepoDir)
}

func (d *Default) ModuleExportRequest(sink ResponseSink, module string) {
	sink.ModuleCMIResponse(d.GetCMIName(module))
}

func (d *Default) ModuleImportRequest(sink ResponseSink, module string) {
	sink.ModuleCMIResponse(d.GetCMIName(module))
}

func (d *Default) ModuleCompiledRequest(sink ResponseSink, module string) {
	sink.OKResponse()
}

// IncludeTranslateRequest stats <RepoDir>/GetCMIName(include); if a regular
// file already exists there, the include is answered as a header unit with
// that CMI. Any stat failure, including a non-regular file, leaves the
// include textual.
func (d *Default) IncludeTranslateRequest(sink ResponseSink, include string) {
	if include == "" {
		sink.IncludeTranslateResponse()
		return
	}
	name := d.GetCMIName(include)
	info, err := os.Stat(filepath.Join(d.RepoDir, name))
	if err != nil || !info.Mode().IsRegular() {
		sink.IncludeTranslateResponse()
		return
	}
	sink.ModuleCMIResponse(name)
}

// dotReplace and colonReplace are the two characters GetCMIName substitutes
// into a module name so the result is safe to use as a single path
// component (or a traversal-safe relative path) on every filesystem cody
// targets.
const (
	dotReplace   = ','
	colonReplace = '-'
)

// isAbsModulePath reports whether name already names a filesystem path
// (rather than a logical module name): either starting with a directory
// separator, or with a Windows drive letter — an ASCII letter, a ':', and
// then either nothing more or a directory separator. A one-letter module
// name followed by a colon and more name text, like "a:part", is module
// partition syntax rather than a drive, so it only matches this far when
// what follows the colon can't be anything but a path.
func isAbsModulePath(name string) bool {
	if len(name) == 0 {
		return false
	}
	if name[0] == '/' || name[0] == '\\' {
		return true
	}
	if len(name) >= 2 && isASCIILetter(name[0]) && name[1] == ':' {
		return len(name) == 2 || isDirSep(name[2])
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// GetCMIName canonicalizes a module name (or, for a header unit, an
// #include spelling) into a repository-relative CMI path:
//
//   - An absolute path is reproduced under a leading "." that is never
//     itself dot-replaced (only a relative header unit's own leading dot
//     is), and — exactly like a relative header unit — has each ".."
//     segment bounded by directory separators on both sides replaced by
//     ",," so a traversal spelled into an absolute include can't walk the
//     CMI name back out of the repository once joined onto it:
//     "/usr/inc/x.h" becomes "./usr/inc/x.h.cmi", "/../../etc/passwd"
//     becomes "./,,/,,/etc/passwd.cmi".
//   - A relative header unit — one starting with "./" or ".\" — has its
//     leading dot replaced by "," and each ".." segment bounded by
//     directory separators on both sides replaced by ",," so the
//     traversal marker can never resolve against the filesystem; every
//     other byte, including a filename's own extension dot, is left
//     untouched: "./foo.h" becomes ",/foo.h.cmi", "./a/../b" becomes
//     ",/a/,,/b.cmi".
//   - Everything else, including a relative path that merely contains a
//     directory separator without a leading "./", is a named module: only
//     ":" (partition separator) is replaced by "-", e.g. "foo:bar" becomes
//     "foo-bar.cmi".
//
// In every case the configured suffix is appended last.
func (d *Default) GetCMIName(name string) string {
	suffix := d.suffix()
	if name == "" {
		return suffix
	}

	if isAbsModulePath(name) {
		b := []byte("." + filepathClean(name))
		rewriteParentSegments(b)
		return string(b) + suffix
	}

	if hasPathShape(name) {
		return traversalSafeRelative(name) + suffix
	}

	return strings.ReplaceAll(name, ":", string(colonReplace)) + suffix
}

// hasPathShape reports whether name is a relative header-unit spelling:
// exactly a "." immediately followed by a directory separator. Anything
// else — a bare module name, a partitioned name, or a relative path with
// slashes but no leading "./" — is a named module (colon-replaced only).
func hasPathShape(name string) bool {
	if len(name) < 2 || name[0] != '.' {
		return false
	}
	return isDirSep(name[1])
}

func isDirSep(b byte) bool {
	return b == '/' || b == '\\'
}

// traversalSafeRelative rewrites a relative header-unit path (one hasPathShape
// has already confirmed starts with "./" or ".\"): its leading marker dot
// becomes dotReplace, and every ".." segment bounded by a directory
// separator on both sides becomes two dotReplace bytes. Every other byte —
// including a filename's own extension dot — survives unchanged, so the
// repository never needs to know whether the traversal is real, only that
// the name stays a distinct, collision-free path component.
func traversalSafeRelative(name string) string {
	b := []byte(name)
	b[0] = dotReplace
	rewriteParentSegments(b)
	return string(b)
}

// rewriteParentSegments replaces every ".." segment bounded by a directory
// separator on both sides with two dotReplace bytes, in place. Byte 0 is
// never inspected as the left boundary of a segment (there is nothing
// before it to be a separator), so a caller that also needs to replace a
// leading marker dot must do so itself.
func rewriteParentSegments(b []byte) {
	for ix := 1; ix+1 < len(b); ix++ {
		if b[ix] != '.' || b[ix+1] != '.' {
			continue
		}
		if !isDirSep(b[ix-1]) {
			continue
		}
		if ix+2 >= len(b) || !isDirSep(b[ix+2]) {
			continue
		}
		b[ix] = dotReplace
		b[ix+1] = dotReplace
	}
}

// filepathClean does the minimal cleanup GetCMIName needs on an absolute
// path before prepending the synthetic leading dot: a Windows drive letter
// prefix (already recognized by isAbsModulePath) never survives into a CMI
// name, since it names no useful path component once repository-relative,
// and backslashes are normalized to forward slashes so the emitted name
// uses one separator convention. It deliberately does not collapse "."
// or ".." segments itself — GetCMIName's own traversal rewrite handles
// those — so this is a syntactic rename, not a filesystem resolution.
func filepathClean(name string) string {
	if len(name) >= 2 && isASCIILetter(name[0]) && name[1] == ':' {
		name = name[2:]
	}
	if strings.IndexByte(name, '\\') < 0 {
		return name
	}
	return strings.ReplaceAll(name, "\\", "/")
}

var _ Resolver = (*Default)(nil)
