// Package catalogue implements the Attack Pattern Catalogue (C2): a fixed,
// process-global set of regular languages describing strings that can
// inject in a given output context, plus the named sanitizer "residue"
// patterns that real-world escaping/removal functions are compared
// against. Every pattern is built once, from SSV combinators, the same way
// package registry builds transfer functions out of automaton primitives —
// there is no separate regex-string table to keep in sync with the
// automata.
package catalogue

import "github.com/christiankrug/sanitizer-checker/ssv"

// Context names a sink output context (spec §4.2).
type Context string

const (
	HTML       Context = "HTML"
	HTMLAttr   Context = "HTML_ATTR"
	Javascript Context = "JAVASCRIPT"
	URL        Context = "URL"
	SQL        Context = "SQL"
	MFE        Context = "MFE"
)

var contextPatterns = map[Context]ssv.SSV{
	HTML:       htmlAttack(),
	HTMLAttr:   htmlAttrAttack(),
	Javascript: javascriptAttack(),
	URL:        urlAttack(),
	SQL:        sqlAttack(),
	MFE:        mfeAttack(),
}

// PatternFor returns the attack pattern SSV for context, and false if
// context is not one of the six the catalogue knows about.
func PatternFor(context Context) (ssv.SSV, bool) {
	p, ok := contextPatterns[context]
	return p, ok
}

var comparators = map[string]ssv.SSV{
	"HTML_ESCAPED":           htmlEscaped(),
	"HTML_REMOVED":           noRawOccurrence('<', '>', '\'', '"', '&', '/'),
	"HTML_REMOVED_NO_SLASH":  noRawOccurrence('<', '>', '\'', '"', '&'),
	"ENCODE_HTML_COMPAT":     noRawOccurrence('<', '>', '&', '"'),
	"ENCODE_HTML_NO_QUOTES":  noRawOccurrence('<', '>', '&'),
	"ENCODE_HTML_QUOTES":     noRawOccurrence('<', '>', '&', '"', '\''),
	"ENCODE_HTML_SLASH":      noRawOccurrence('<', '>', '&', '"', '\'', '/'),
	"ENCODE_HTML_TAGS_ONLY":  noRawOccurrence('<', '>'),
	"HTML_BACKTICK":          htmlEscapedExcluding('`'),
	"HTML_NO_SLASHES":        htmlEscaped(),
	"HTML_ATTR_ESCAPED":      htmlAttrEscaped(),
	"JAVASCRIPT_ESCAPED":     javascriptEscaped(),
	"URL_ESCAPED":            urlEscaped(),
	"URL_COMPONENT_ENCODED":  urlComponentEncoded(),
}

// Comparator returns the named sanitizer residue pattern, and false if name
// is not one of the fourteen the catalogue knows about.
func Comparator(name string) (ssv.SSV, bool) {
	c, ok := comparators[name]
	return c, ok
}

// --- shared building blocks -------------------------------------------------

// byteClass returns the SSV for a single byte drawn from one of ranges. Its
// operands are fixed literal ranges baked into the catalogue at package
// init, never attacker-influenced, so ssv.Must is the right guard here (see
// ssv.Must's doc comment) throughout this file.
func byteClass(ranges ...[2]byte) ssv.SSV {
	acc := ssv.Empty()
	for _, r := range ranges {
		acc = ssv.Must(ssv.Union(acc, ssv.OfCharRange(r[0], r[1])))
	}
	return acc
}

// anyByteExcept returns the SSV for a single byte not in excluded.
func anyByteExcept(excluded ...byte) ssv.SSV {
	bad := make(map[byte]bool, len(excluded))
	for _, b := range excluded {
		bad[b] = true
	}
	acc := ssv.Empty()
	lo := -1
	flush := func(hi int) {
		if lo >= 0 {
			acc = ssv.Must(ssv.Union(acc, ssv.OfCharRange(byte(lo), byte(hi))))
			lo = -1
		}
	}
	for b := 0; b < 256; b++ {
		if bad[byte(b)] {
			flush(b - 1)
			continue
		}
		if lo < 0 {
			lo = b
		}
	}
	flush(255)
	return acc
}

// noRawOccurrence returns the language of strings that never contain any of
// bad as a raw byte anywhere — the "complement of a characters-to-escape
// regex over Sigma*" shape spec §4.2 describes for the ENCODE_HTML_* family.
func noRawOccurrence(bad ...byte) ssv.SSV {
	return ssv.Must(ssv.Star(anyByteExcept(bad...)))
}

func hexDigit() ssv.SSV {
	return byteClass([2]byte{'0', '9'}, [2]byte{'A', 'F'}, [2]byte{'a', 'f'})
}

func digit() ssv.SSV { return ssv.OfCharRange('0', '9') }

func alnum() ssv.SSV {
	return byteClass([2]byte{'A', 'Z'}, [2]byte{'a', 'z'}, [2]byte{'0', '9'})
}

// htmlEntityTail returns "amp;|lt;|gt;|quot;|apos;|#[0-9]+;" — the part of a
// numeric/named HTML entity reference that follows the leading "&" (spec §6:
// "& allowed only when followed by amp;|lt;|gt;|quot;|apos;|#\d+;").
func htmlEntityTail() ssv.SSV {
	named := ssv.Must(ssv.Union(ssv.OfLiteral("amp;"),
		ssv.Must(ssv.Union(ssv.OfLiteral("lt;"),
			ssv.Must(ssv.Union(ssv.OfLiteral("gt;"),
				ssv.Must(ssv.Union(ssv.OfLiteral("quot;"), ssv.OfLiteral("apos;")))))))))
	numeric := ssv.Must(ssv.Concat(ssv.OfLiteral("#"),
		ssv.Must(ssv.Concat(digit(), ssv.Must(ssv.Concat(ssv.Must(ssv.Star(digit())), ssv.OfLiteral(";")))))))
	return ssv.Must(ssv.Union(named, numeric))
}

func htmlEntity() ssv.SSV {
	return ssv.Must(ssv.Concat(ssv.OfLiteral("&"), htmlEntityTail()))
}

// htmlEscapedExcluding builds the HTML_ESCAPED language but additionally
// forbids any raw occurrence of the bytes in extra (HTML_BACKTICK adds the
// backtick to the excluded set on top of <, >, ', ", &).
func htmlEscapedExcluding(extra ...byte) ssv.SSV {
	excluded := append([]byte{'<', '>', '\'', '"', '&'}, extra...)
	safeToken := ssv.Must(ssv.Union(anyByteExcept(excluded...), htmlEntity()))
	return ssv.Must(ssv.Star(safeToken))
}

// htmlEscaped is the safe language for raw HTML text content: any byte
// except <, >, ', ", & — where & is allowed only as a well-formed entity
// reference (spec §6). HTML_NO_SLASHES is the same construction (the slash
// was never excluded to begin with).
func htmlEscaped() ssv.SSV { return htmlEscapedExcluding() }

// htmlAttack is the language of strings an HTML-text sanitizer must
// eliminate: anything that does not decompose entirely into safe bytes and
// well-formed entities.
func htmlAttack() ssv.SSV { return ssv.Complement(htmlEscaped()) }

// htmlAttrEscaped allows only [A-Za-z0-9] plus an escaped entity reference
// (spec §6: "HTML_ATTR allows only [A-Za-z0-9] plus escaped &...; sequences").
func htmlAttrEscaped() ssv.SSV {
	return ssv.Must(ssv.Star(ssv.Must(ssv.Union(alnum(), htmlEntity()))))
}

func htmlAttrAttack() ssv.SSV { return ssv.Complement(htmlAttrEscaped()) }

// javascriptEscaped allows only [A-Za-z0-9,._ \t\n\r]; everything else must
// appear as a \xHH or \uHHHH escape (spec §6).
func javascriptEscaped() ssv.SSV {
	safeChars := byteClass(
		[2]byte{'A', 'Z'}, [2]byte{'a', 'z'}, [2]byte{'0', '9'},
		[2]byte{',', ','}, [2]byte{'.', '.'}, [2]byte{'_', '_'},
		[2]byte{' ', ' '}, [2]byte{'\t', '\t'}, [2]byte{'\n', '\n'}, [2]byte{'\r', '\r'},
	)
	xEscape := ssv.Must(ssv.Concat(ssv.OfLiteral("\\x"), ssv.Must(ssv.Concat(hexDigit(), hexDigit()))))
	uEscape := ssv.Must(ssv.Concat(ssv.OfLiteral("\\u"),
		ssv.Must(ssv.Concat(hexDigit(), ssv.Must(ssv.Concat(hexDigit(), ssv.Must(ssv.Concat(hexDigit(), hexDigit()))))))))
	return ssv.Must(ssv.Star(ssv.Must(ssv.Union(safeChars, ssv.Must(ssv.Union(xEscape, uEscape))))))
}

func javascriptAttack() ssv.SSV { return ssv.Complement(javascriptEscaped()) }

// urlEscaped allows only [A-Za-z0-9\-_.~] plus %[0-9A-Fa-f]{2} percent
// escapes (spec §6).
func urlEscaped() ssv.SSV {
	safeChars := byteClass(
		[2]byte{'A', 'Z'}, [2]byte{'a', 'z'}, [2]byte{'0', '9'},
		[2]byte{'-', '-'}, [2]byte{'_', '_'}, [2]byte{'.', '.'}, [2]byte{'~', '~'},
	)
	percent := ssv.Must(ssv.Concat(ssv.OfLiteral("%"), ssv.Must(ssv.Concat(hexDigit(), hexDigit()))))
	return ssv.Must(ssv.Star(ssv.Must(ssv.Union(safeChars, percent))))
}

func urlAttack() ssv.SSV { return ssv.Complement(urlEscaped()) }

// urlComponentEncoded mirrors what a JavaScript-style encodeURIComponent
// leaves unescaped: RFC 3986 unreserved characters plus the small set of
// "sub-delims" browsers additionally leave alone, plus %HH escapes. Neither
// spec.md nor the retrieved original source pins this down exactly; this is
// a documented judgment call (see DESIGN.md).
func urlComponentEncoded() ssv.SSV {
	safeChars := byteClass(
		[2]byte{'A', 'Z'}, [2]byte{'a', 'z'}, [2]byte{'0', '9'},
		[2]byte{'-', '-'}, [2]byte{'_', '_'}, [2]byte{'.', '.'}, [2]byte{'~', '~'},
		[2]byte{'!', '!'}, [2]byte{'*', '*'}, [2]byte{'\'', '\''}, [2]byte{'(', '('}, [2]byte{')', ')'},
	)
	percent := ssv.Must(ssv.Concat(ssv.OfLiteral("%"), ssv.Must(ssv.Concat(hexDigit(), hexDigit()))))
	return ssv.Must(ssv.Star(ssv.Must(ssv.Union(safeChars, percent))))
}

// sqlAttack is the language of strings containing an unescaped SQL string
// metacharacter: a raw single quote or a "--" comment marker. Spec.md lists
// SQL as a context but (like MFE) leaves its exact attack regex undefined;
// this follows the same "contains an unescaped special character" shape as
// the documented HTML/JS/URL patterns (see DESIGN.md).
func sqlAttack() ssv.SSV {
	return ssv.Must(ssv.Union(containsLiteral("'"), containsLiteral("--")))
}

// mfeAttack is the language of strings containing a raw CR or LF byte — the
// classic header/mail-header injection vector (CRLF injection) that an MFE
// (mail-forgery-exploit) sanitizer must strip or escape. Same documented
// judgment call as sqlAttack.
func mfeAttack() ssv.SSV {
	return ssv.Must(ssv.Union(containsLiteral("\r"), containsLiteral("\n")))
}

func containsLiteral(s string) ssv.SSV {
	return ssv.Must(ssv.Concat(ssv.AnyString(), ssv.Must(ssv.Concat(ssv.OfLiteral(s), ssv.AnyString()))))
}
