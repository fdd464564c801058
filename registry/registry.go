// Package registry implements the Operation Semantics Registry (C4): a
// process-global, read-only-after-init mapping from operation-node name to
// its forward and backward transfer functions over SSVs.
package registry

import (
	"fmt"
	"strconv"

	"github.com/christiankrug/sanitizer-checker/automaton"
	"github.com/christiankrug/sanitizer-checker/errkind"
	"github.com/christiankrug/sanitizer-checker/ssv"
)

// Fwd computes a parent SSV from its ordered children.
type Fwd func(children []ssv.SSV) (ssv.SSV, error)

// Bwd computes a new constraint for child i given the parent's current
// constraint and the (already forward-evaluated) values of every child.
type Bwd func(parent ssv.SSV, childForward []ssv.SSV, childIndex int) (ssv.SSV, error)

// OpDescriptor is one registry entry (spec §4.4).
type OpDescriptor struct {
	Arity             int
	Fwd               Fwd
	Bwd               Bwd
	CommutesWithUnion bool
}

var ops map[string]OpDescriptor

// VariadicArity marks an OpDescriptor whose Fwd/Bwd accept any number of
// children (concat, whose DepGraph nodes carry one child per concatenated
// piece rather than a fixed 2).
const VariadicArity = -1

func init() {
	ops = map[string]OpDescriptor{
		"concat":                   concatOp(),
		"replace":                  replaceOp(),
		"regex_replace":            replaceOp(),
		"substring":                substringOp(),
		"to_upper":                 homomorphicOp(upperHomomorphism()),
		"to_lower":                 homomorphicOp(lowerHomomorphism()),
		"trim_ws":                  trimOp(isWhitespace, true, true),
		"trim_left":                trimOp(isWhitespace, true, false),
		"trim_right":               trimOp(isWhitespace, false, true),
		"char_escape":              charEscapeOp(),
		"html_escape":              homomorphicOp(htmlEscapeHomomorphism()),
		"htmlspecialchars":         homomorphicOp(htmlEscapeHomomorphism()),
		"url_encode":               homomorphicOp(urlEncodeHomomorphism()),
		"url_decode":               decodeOp(urlEncodeHomomorphism()),
		"addslashes":               homomorphicOp(backslashEscape([]byte{'\'', '"', '\\', 0})),
		"length_restrict":          lengthRestrictOp(),
		"strip_tags":               stripTagsOp(),
		"json_encode":              homomorphicOp(jsonEscapeHomomorphism()),
		"sql_escape":               homomorphicOp(backslashEscape([]byte{'\'', '"', '\\', 0})),
		"mysql_real_escape_string": homomorphicOp(backslashEscape([]byte{'\'', '"', '\\', 0})),
		"null_byte_strip":          homomorphicOp(nullByteStripHomomorphism()),
	}
}

// Lookup returns the descriptor for name, and false if it is not
// registered (spec §4.1 "UnsupportedOp").
func Lookup(name string) (OpDescriptor, bool) {
	d, ok := ops[name]
	return d, ok
}

// Apply runs descriptor d's forward function after checking arity,
// translating failures into the closed errkind.Kind set (spec §4.1, §7).
func Apply(name string, children []ssv.SSV) (ssv.SSV, error) {
	d, ok := Lookup(name)
	if !ok {
		return ssv.SSV{}, errkind.New(errkind.UnsupportedOp, "", fmt.Errorf("operation %q is not registered", name))
	}
	if d.Arity != VariadicArity && len(children) != d.Arity {
		return ssv.SSV{}, errkind.New(errkind.ArityMismatch, "",
			fmt.Errorf("operation %q wants %d children, got %d", name, d.Arity, len(children)))
	}
	return d.Fwd(children)
}

// --- unary homomorphic operations -------------------------------------------

func homomorphicOp(h *automaton.Homomorphism) OpDescriptor {
	return OpDescriptor{
		Arity:             1,
		CommutesWithUnion: true,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			img, err := automaton.Image(h, children[0].Automaton())
			if err != nil {
				return ssv.SSV{}, err
			}
			return ssv.FromAutomaton(img), nil
		},
		Bwd: func(parent ssv.SSV, _ []ssv.SSV, _ int) (ssv.SSV, error) {
			return ssv.FromAutomaton(automaton.Preimage(h, parent.Automaton())), nil
		},
	}
}

// decodeOp builds the inverse relation of the encoding homomorphism h:
// decode(s) for s drawn from a language is exactly h's pre-image relation
// run in reverse (decoding is "what input would h have encoded to produce
// this"), and its backward direction is h's own forward image.
func decodeOp(h *automaton.Homomorphism) OpDescriptor {
	return OpDescriptor{
		Arity:             1,
		CommutesWithUnion: true,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			return ssv.FromAutomaton(automaton.Preimage(h, children[0].Automaton())), nil
		},
		Bwd: func(parent ssv.SSV, _ []ssv.SSV, _ int) (ssv.SSV, error) {
			img, err := automaton.Image(h, parent.Automaton())
			if err != nil {
				return ssv.SSV{}, err
			}
			return ssv.FromAutomaton(img), nil
		},
	}
}

// --- trim family -------------------------------------------------------------

func isWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// trimOp builds trim_ws/trim_left/trim_right. Forward is exact (built from
// automaton.TrimLeftByClass/TrimRightByClass); backward is a sound
// over-approximation — trimming is lossy (it discards how much whitespace
// was removed and what, if anything, it bordered), so the pre-image can
// only be bounded above by re-admitting an arbitrary whitespace run on
// each trimmed side, marked approximate per spec §4.1.
func trimOp(class func(byte) bool, left, right bool) OpDescriptor {
	return OpDescriptor{
		Arity:             1,
		CommutesWithUnion: true,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			a := children[0].Automaton()
			var err error
			if left {
				if a, err = automaton.TrimLeftByClass(a, class); err != nil {
					return ssv.SSV{}, err
				}
			}
			if right {
				a = automaton.TrimRightByClass(a, class)
			}
			return ssv.FromAutomaton(a), nil
		},
		Bwd: func(parent ssv.SSV, _ []ssv.SSV, _ int) (ssv.SSV, error) {
			whitespaceRun := whitespaceStar()
			result := parent
			var err error
			if left {
				if result, err = ssv.Concat(whitespaceRun, result); err != nil {
					return ssv.SSV{}, err
				}
			}
			if right {
				if result, err = ssv.Concat(result, whitespaceRun); err != nil {
					return ssv.SSV{}, err
				}
			}
			return result.Approximate(), nil
		},
	}
}

// whitespaceStar builds the language of zero-or-more ASCII whitespace bytes.
// Its operands are fixed literal ranges, not attacker-influenced DepGraph
// values, so construction failure here would be a programming error — hence
// ssv.Must rather than another threaded error return.
func whitespaceStar() ssv.SSV {
	ws := ssv.Must(ssv.Union(ssv.OfCharRange(' ', ' '),
		ssv.Must(ssv.Union(ssv.OfCharRange('\t', '\t'),
			ssv.Must(ssv.Union(ssv.OfCharRange('\n', '\f'), ssv.OfCharRange('\r', '\r')))))))
	return ssv.Must(ssv.Star(ws))
}

// --- length_restrict ---------------------------------------------------------

// lengthRestrictOp takes its bounds as two extra literal children (min, max)
// alongside the subject, the same way replace takes pattern/replacement as
// children rather than out-of-band parameters — the DepGraph node shape
// stays uniform (operation node, ordered children) for every operation.
// max < 0 (an empty or unparseable literal) means unbounded.
func lengthRestrictOp() OpDescriptor {
	return OpDescriptor{
		Arity:             3,
		CommutesWithUnion: false,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			lo, hi := bounds(children[1], children[2])
			r, err := automaton.LengthRestrict(children[0].Automaton(), lo, hi)
			if err != nil {
				return ssv.SSV{}, err
			}
			return ssv.FromAutomaton(r), nil
		},
		Bwd: func(parent ssv.SSV, childForward []ssv.SSV, childIndex int) (ssv.SSV, error) {
			if childIndex != 0 {
				return childForward[childIndex], nil
			}
			lo, hi := bounds(childForward[1], childForward[2])
			// Exact: length_restrict is an intersection with a fixed length
			// language, so the pre-image of parent constraint P is just P
			// intersected with that same length language.
			r, err := automaton.LengthRestrict(parent.Automaton(), lo, hi)
			if err != nil {
				return ssv.SSV{}, err
			}
			return ssv.FromAutomaton(r), nil
		},
	}
}

func bounds(loV, hiV ssv.SSV) (int, int) {
	lo, _ := literalInt(loV)
	hi, ok := literalInt(hiV)
	if !ok {
		hi = -1
	}
	return lo, hi
}

func literalInt(v ssv.SSV) (int, bool) {
	s, ok := ssv.IsSingleton(v)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// --- char_escape --------------------------------------------------------------

// charEscapeOp backslash-escapes exactly the bytes named by its second
// child, a literal string of the characters to escape (spec §4.1
// "char_escape(set)"). Like length_restrict, the parameter rides along as
// an ordinary literal-node child.
func charEscapeOp() OpDescriptor {
	return OpDescriptor{
		Arity:             2,
		CommutesWithUnion: false,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			h := backslashEscape(escapeSet(children[1]))
			img, err := automaton.Image(h, children[0].Automaton())
			if err != nil {
				return ssv.SSV{}, err
			}
			return ssv.FromAutomaton(img), nil
		},
		Bwd: func(parent ssv.SSV, childForward []ssv.SSV, childIndex int) (ssv.SSV, error) {
			if childIndex != 0 {
				return childForward[childIndex], nil
			}
			h := backslashEscape(escapeSet(childForward[1]))
			return ssv.FromAutomaton(automaton.Preimage(h, parent.Automaton())), nil
		},
	}
}

func escapeSet(v ssv.SSV) []byte {
	s, ok := ssv.IsSingleton(v)
	if !ok {
		return []byte{'\'', '"', '\\'}
	}
	return []byte(s)
}

// --- substring ---------------------------------------------------------------

// substringOp takes its numeric bounds as literal children (s, i, j),
// following spec §4.1's explicit instruction to approximate numeric-bound
// substring extraction "to Sigma*-padded slices": neither direction tracks
// content, only that the subject was at least as long as the slice
// required.
func substringOp() OpDescriptor {
	return OpDescriptor{
		Arity:             3,
		CommutesWithUnion: false,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			i, iOK := literalInt(children[1])
			j, jOK := literalInt(children[2])
			if !iOK || !jOK || j < i {
				return ssv.AnyString().Approximate(), nil
			}
			r, err := automaton.LengthRestrict(automaton.AnyString(), j-i, j-i)
			if err != nil {
				return ssv.SSV{}, err
			}
			return ssv.FromAutomaton(r).Approximate(), nil
		},
		Bwd: func(parent ssv.SSV, childForward []ssv.SSV, childIndex int) (ssv.SSV, error) {
			if childIndex != 0 {
				return childForward[childIndex], nil
			}
			i, iOK := literalInt(childForward[1])
			if !iOK {
				return ssv.AnyString().Approximate(), nil
			}
			r, err := automaton.LengthRestrict(automaton.AnyString(), i, -1)
			if err != nil {
				return ssv.SSV{}, err
			}
			return ssv.FromAutomaton(r).Approximate(), nil
		},
	}
}

// --- concat --------------------------------------------------------------

// concatOp handles the variable-arity concat(piece1, piece2, ...) node:
// forward is exact (ssv.Concat folded left to right); backward for child i
// is exact when every other piece is a literal (the common "prefix +
// input + suffix" shape spec §8 scenario 3 exercises), computed via
// QuotientByPrefixLiteral/QuotientBySuffixLiteral rather than full
// automaton quotienting, which this package does not implement. When a
// neighboring piece is not a literal, that side contributes no narrowing
// and the result is marked approximate (still sound: it is Sigma*-padded
// on the unresolved side, the same padding substring/substring-like
// operations already use).
func concatOp() OpDescriptor {
	return OpDescriptor{
		Arity:             VariadicArity,
		CommutesWithUnion: false,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			if len(children) == 0 {
				return ssv.Epsilon(), nil
			}
			acc := children[0]
			var err error
			for _, c := range children[1:] {
				if acc, err = ssv.Concat(acc, c); err != nil {
					return ssv.SSV{}, err
				}
			}
			return acc, nil
		},
		Bwd: func(parent ssv.SSV, childForward []ssv.SSV, childIndex int) (ssv.SSV, error) {
			prefixExact, prefixLit := literalPrefixOf(childForward, childIndex)
			suffixExact, suffixLit := literalSuffixOf(childForward, childIndex)

			a := parent.Automaton()
			if prefixLit {
				a = automaton.QuotientByPrefixLiteral(a, prefixExact)
			}
			if suffixLit {
				var err error
				if a, err = automaton.QuotientBySuffixLiteral(a, suffixExact); err != nil {
					return ssv.SSV{}, err
				}
			}
			result := ssv.FromAutomaton(a)
			if !prefixLit || !suffixLit {
				result = result.Approximate()
			}
			return result, nil
		},
	}
}

// literalPrefixOf concatenates the literal value of every child before
// index, returning ok=false as soon as a non-literal piece is found (only
// a run of literals immediately preceding index can be quotiented away
// exactly; a non-literal predecessor means the split point is unknown).
func literalPrefixOf(childForward []ssv.SSV, index int) (string, bool) {
	var b []byte
	for i := 0; i < index; i++ {
		s, ok := ssv.IsSingleton(childForward[i])
		if !ok {
			return "", false
		}
		b = append(b, s...)
	}
	return string(b), true
}

func literalSuffixOf(childForward []ssv.SSV, index int) (string, bool) {
	var b []byte
	for i := index + 1; i < len(childForward); i++ {
		s, ok := ssv.IsSingleton(childForward[i])
		if !ok {
			return "", false
		}
		b = append(b, s...)
	}
	return string(b), true
}

// --- replace / regex_replace --------------------------------------------------

// replaceOp covers both replace(subject, pattern, replacement) and its
// generalization regex_replace. A general leftmost non-overlapping
// multi-byte regex replace is not expressible as a simple per-byte
// transduction (it requires buffering an unbounded-lookahead partial
// match before deciding whether to flush it verbatim or as the
// replacement), so both directions are a sound over-approximation here;
// see DESIGN.md for why the exact per-byte homomorphism machinery used by
// html_escape/url_encode/etc. does not extend to this operation.
func replaceOp() OpDescriptor {
	return OpDescriptor{
		Arity:             3,
		CommutesWithUnion: false,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			return ssv.AnyString().Approximate(), nil
		},
		Bwd: func(parent ssv.SSV, _ []ssv.SSV, childIndex int) (ssv.SSV, error) {
			if childIndex != 0 {
				// pattern/replacement themselves are treated as already fixed.
				return ssv.AnyString().Approximate(), nil
			}
			return ssv.AnyString().Approximate(), nil
		},
	}
}

// --- strip_tags ---------------------------------------------------------------

// stripTagsOp removes HTML tags (angle-bracket-delimited runs). Exact
// removal of arbitrary nested/malformed tag soup is not regular in
// general (matching quote-aware attribute values inside "<...>" is
// routinely approximated even by real sanitizers' own DFAs), so this is a
// documented sound over-approximation in both directions.
func stripTagsOp() OpDescriptor {
	return OpDescriptor{
		Arity:             1,
		CommutesWithUnion: true,
		Fwd: func(children []ssv.SSV) (ssv.SSV, error) {
			return ssv.AnyString().Approximate(), nil
		},
		Bwd: func(parent ssv.SSV, _ []ssv.SSV, _ int) (ssv.SSV, error) {
			return ssv.AnyString().Approximate(), nil
		},
	}
}

// --- homomorphism builders ----------------------------------------------------

func upperHomomorphism() *automaton.Homomorphism {
	h := automaton.NewHomomorphism()
	for b := byte('a'); b <= 'z'; b++ {
		h.Set(b, []byte{b - 'a' + 'A'})
	}
	return h
}

func lowerHomomorphism() *automaton.Homomorphism {
	h := automaton.NewHomomorphism()
	for b := byte('A'); b <= 'Z'; b++ {
		h.Set(b, []byte{b - 'A' + 'a'})
	}
	return h
}

// htmlEscapeHomomorphism matches PHP's htmlspecialchars default since 8.1
// (ENT_QUOTES | ENT_SUBSTITUTE | ENT_HTML401): escapes &, <, >, the double
// quote, and the single quote. Earlier ENT_COMPAT left the single quote
// alone, which left a raw `'` reachable in the post-image and defeated the
// HTML_ESCAPED/HTML-attack-pattern relationship the catalogue depends on.
func htmlEscapeHomomorphism() *automaton.Homomorphism {
	h := automaton.NewHomomorphism()
	h.Set('&', []byte("&amp;"))
	h.Set('<', []byte("&lt;"))
	h.Set('>', []byte("&gt;"))
	h.Set('"', []byte("&quot;"))
	h.Set('\'', []byte("&#039;"))
	return h
}

// urlEncodeHomomorphism percent-encodes every byte outside the
// [A-Za-z0-9\-_.~] safe set (spec §6's URL safe-character definition).
func urlEncodeHomomorphism() *automaton.Homomorphism {
	h := automaton.NewHomomorphism()
	const hex = "0123456789ABCDEF"
	safe := func(b byte) bool {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
			return true
		case b == '-' || b == '_' || b == '.' || b == '~':
			return true
		default:
			return false
		}
	}
	for b := 0; b < 256; b++ {
		if safe(byte(b)) {
			continue
		}
		h.Set(byte(b), []byte{'%', hex[b>>4], hex[b&0xF]})
	}
	return h
}

// backslashEscape builds a homomorphism that backslash-escapes every byte
// in set (char_escape(set) and addslashes/sql_escape's fixed sets);
// set == nil defaults to the classic addslashes set.
func backslashEscape(set []byte) *automaton.Homomorphism {
	if set == nil {
		set = []byte{'\'', '"', '\\'}
	}
	h := automaton.NewHomomorphism()
	for _, b := range set {
		if b == 0 {
			h.Set(0, []byte{'\\', '0'})
			continue
		}
		h.Set(b, []byte{'\\', b})
	}
	return h
}

// jsonEscapeHomomorphism escapes the bytes JSON string literals require
// escaping: the quote, backslash, and the C0 control range.
func jsonEscapeHomomorphism() *automaton.Homomorphism {
	h := automaton.NewHomomorphism()
	h.Set('"', []byte(`\"`))
	h.Set('\\', []byte(`\\`))
	h.Set('\n', []byte(`\n`))
	h.Set('\r', []byte(`\r`))
	h.Set('\t', []byte(`\t`))
	const hex = "0123456789abcdef"
	for b := 0; b < 0x20; b++ {
		switch byte(b) {
		case '\n', '\r', '\t':
			continue
		}
		h.Set(byte(b), []byte{'\\', 'u', '0', '0', hex[b>>4], hex[b&0xF]})
	}
	return h
}

func nullByteStripHomomorphism() *automaton.Homomorphism {
	h := automaton.NewHomomorphism()
	h.Set(0, []byte{})
	return h
}
