package compiler

import "regexp"

// feature-detection patterns per §4.8: enums, decorators, namespaces,
// constructor parameter-property shorthand, and JSX/TSX markers trigger
// full compilation. Interfaces, type aliases, abstract classes, and
// parameter/return annotations do not.
var (
	reEnum        = regexp.MustCompile(`(?m)^\s*(export\s+)?(const\s+)?enum\s+[A-Za-z_$][\w$]*`)
	reDecorator   = regexp.MustCompile(`(?m)^\s*@[A-Za-z_$][\w$]*\s*(\([^)]*\))?\s*\n\s*(export\s+)?(abstract\s+)?class\b`)
	reMemberDeco  = regexp.MustCompile(`(?m)^\s*@[A-Za-z_$][\w$]*\s*(\([^)]*\))?\s*\n\s*(public|private|protected|readonly|static|\s)*[A-Za-z_$]`)
	reNamespace   = regexp.MustCompile(`(?m)^\s*(export\s+)?namespace\s+[A-Za-z_$][\w$]*\s*\{`)
	reCtorProp    = regexp.MustCompile(`constructor\s*\(([^)]*\b(public|private|protected|readonly)\b[^)]*)\)`)
	reJSXFragment = regexp.MustCompile(`<>`)
	reJSXTag      = regexp.MustCompile(`<[A-Z][\w.]*[\s/>]`)
)

// needsFullCompilation reports whether source requires the real esbuild
// transform rather than the regex type-stripper.
func needsFullCompilation(source string) bool {
	switch {
	case reEnum.MatchString(source):
		return true
	case reDecorator.MatchString(source):
		return true
	case reMemberDeco.MatchString(source):
		return true
	case reNamespace.MatchString(source):
		return true
	case reCtorProp.MatchString(source):
		return true
	case reJSXFragment.MatchString(source):
		return true
	case reJSXTag.MatchString(source):
		return true
	default:
		return false
	}
}
