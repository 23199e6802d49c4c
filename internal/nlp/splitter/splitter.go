package splitter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"bank_reviews/internal/domain"
)

// Config holds the tunable segmentation constants. Marker lists and the
// minimum clause length are configuration, not hardcoded assumptions.
type Config struct {
	// ContrastMarkers are discourse markers that typically introduce a
	// topic or sentiment shift; each occurrence opens a new clause, with
	// the marker kept on the right-hand side.
	ContrastMarkers []string
	// ClauseHints are subordinate-clause cues that allow a soft split on
	// a comma when they appear on either side of it.
	ClauseHints []string
	// MinTokens is the minimum meaningful-token count for a standalone
	// clause. Shorter spans are merged into a neighbouring clause rather
	// than dropped, so no text is lost.
	MinTokens int
}

// DefaultConfig mirrors the markers the production models were calibrated
// against.
func DefaultConfig() Config {
	return Config{
		ContrastMarkers: []string{
			"с другой стороны", "при этом", "к тому же",
			"однако", "хотя", "зато", "но", "а",
		},
		ClauseHints: []string{
			"потому что", "так как", "однако", "чтобы",
			"когда", "если", "хотя", "что", "но",
		},
		MinTokens: 2,
	}
}

// Splitter segments raw review text into clauses using punctuation and
// discourse-marker heuristics. It is stateless and safe for concurrent use.
type Splitter struct {
	cfg        Config
	contrastRE *regexp.Regexp
	hintRE     *regexp.Regexp
}

func New(cfg Config) *Splitter {
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = DefaultConfig().MinTokens
	}
	if len(cfg.ContrastMarkers) == 0 {
		cfg.ContrastMarkers = DefaultConfig().ContrastMarkers
	}
	if len(cfg.ClauseHints) == 0 {
		cfg.ClauseHints = DefaultConfig().ClauseHints
	}
	return &Splitter{
		cfg:        cfg,
		contrastRE: wordListRE(cfg.ContrastMarkers),
		hintRE:     wordListRE(cfg.ClauseHints),
	}
}

// wordListRE builds a case-folded whole-word alternation. Go's \b is
// ASCII-only, so Cyrillic word boundaries are expressed explicitly.
func wordListRE(words []string) *regexp.Regexp {
	alts := make([]string, 0, len(words))
	for _, w := range words {
		alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`))
	}
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])(` + strings.Join(alts, "|") + `)($|[^\p{L}\p{N}])`)
}

// Split implements domain.Splitter. Empty or whitespace-only input yields
// an empty slice; input without any delimiter yields exactly one clause
// equal to the whole text.
func (s *Splitter) Split(reviewID, text string) []domain.Clause {
	norm := normalize(text)
	if norm == "" {
		return nil
	}

	protected, mapping := protect(norm)

	var parts []string
	for _, sent := range splitSentences(protected) {
		for _, piece := range s.splitByContrast(sent) {
			parts = append(parts, s.splitByCommas(piece)...)
		}
	}

	parts = s.mergeShort(parts)

	clauses := make([]domain.Clause, 0, len(parts))
	var prev string
	for _, p := range parts {
		p = unprotect(p, mapping)
		p = strings.Trim(collapseSpaces(p), " ,;—–-")
		if p == "" || p == prev {
			continue
		}
		clauses = append(clauses, domain.Clause{
			ReviewID: reviewID,
			Index:    len(clauses),
			Text:     p,
		})
		prev = p
	}
	return clauses
}

// ---- normalization & protection ----

var (
	nbspReplacer = strings.NewReplacer(" ", " ", "​", " ")
	spacesRE     = regexp.MustCompile(`[ ]{2,}`)
	punctRunRE   = regexp.MustCompile(`[.!?]{3,}`)

	refRE      = regexp.MustCompile(`№\s?[A-Za-zА-Яа-я0-9*]+`)
	numGlueRE  = regexp.MustCompile(`(\d)[\s\x{00A0}]*([.,])[\s\x{00A0}]*(\d)`)
	numberRE   = regexp.MustCompile(`(?i)\d{1,3}(?:[\s\x{00A0}]\d{3})*(?:[.,]\d+)?(?:\s?(?:₽|руб\.?|р\.?))?`)
	digitsOnly = regexp.MustCompile(`\D`)
	formulaRE  = regexp.MustCompile(`\d[=+×*/-]\d`)
	wordRE     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// Abbreviations that must not be cut on their dots. Each pattern is
// anchored to a non-letter on the left when compiled.
var abbrPatterns = func() []*regexp.Regexp {
	raw := []string{
		`и\.\s?т\.\s?д\.`, `и\.\s?т\.\s?п\.`, `т\.\s?д\.`, `т\.\s?п\.`,
		`г\.`, `ул\.`, `пр\.`, `стр\.`, `долл?\.`, `руб\.`, `млн\.`, `млрд\.`,
	}
	res := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		res = append(res, regexp.MustCompile(`(?i)(^|[^\p{L}])(`+p+`)`))
	}
	return res
}()

func normalize(text string) string {
	t := nbspReplacer.Replace(text)
	t = spacesRE.ReplaceAllString(t, " ")
	t = punctRunRE.ReplaceAllString(t, "..")
	return strings.TrimSpace(t)
}

// protect swaps abbreviations, "№ ..." references and grouped
// numbers/currency for placeholders so the splitter cannot cut through
// them. unprotect restores the originals.
func protect(text string) (string, map[string]string) {
	mapping := map[string]string{}
	seq := 0
	stash := func(kind, v string) string {
		key := fmt.Sprintf("__%s%d__", kind, seq)
		seq++
		mapping[key] = v
		return key
	}

	for _, re := range abbrPatterns {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			idx := re.FindStringSubmatchIndex(m)
			lead, abbr := m[idx[2]:idx[3]], m[idx[4]:idx[5]]
			return lead + stash("ABBR", abbr)
		})
	}

	text = refRE.ReplaceAllStringFunc(text, func(m string) string {
		return stash("NO", m)
	})

	// "46 197, 97 ₽" -> "46197,97₽" before protecting the whole group.
	text = numGlueRE.ReplaceAllString(text, "$1$2$3")
	text = numberRE.ReplaceAllStringFunc(text, func(m string) string {
		if len(digitsOnly.ReplaceAllString(m, "")) <= 2 {
			return m // leave short numbers alone
		}
		return stash("NUM", m)
	})

	return text, mapping
}

func unprotect(text string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return text
	}
	for i := 0; i <= len(mapping); i++ {
		changed := false
		for k, v := range mapping {
			if strings.Contains(text, k) {
				text = strings.ReplaceAll(text, k, v)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return text
}

// ---- segmentation passes ----

func isFinalPunct(r rune) bool {
	switch r {
	case '.', '!', '?', '…', ';':
		return true
	}
	return false
}

// splitSentences cuts after a run of sentence-final punctuation followed by
// whitespace, and on every newline. Dots inside protected placeholders are
// already gone by this point.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if !isFinalPunct(r) {
			continue
		}
		for i+1 < len(runes) && isFinalPunct(runes[i+1]) {
			i++
			b.WriteRune(runes[i])
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()
	return out
}

// splitByContrast opens a new clause at every contrast marker, keeping the
// marker on the right-hand side so no token is lost.
func (s *Splitter) splitByContrast(sent string) []string {
	ms := s.contrastRE.FindAllStringSubmatchIndex(sent, -1)
	if len(ms) == 0 {
		return []string{sent}
	}
	var parts []string
	prev := 0
	for _, m := range ms {
		start := m[4] // start of the marker itself
		if start <= prev {
			continue
		}
		left := strings.TrimSpace(sent[prev:start])
		if left == "" {
			continue // sentence begins with the marker
		}
		parts = append(parts, left)
		prev = start
	}
	if tail := strings.TrimSpace(sent[prev:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

// splitByCommas soft-splits on commas when a subordinate-clause hint
// appears on either side. Numbers, abbreviations and formulas suppress the
// cut.
func (s *Splitter) splitByCommas(piece string) []string {
	if formulaRE.MatchString(piece) {
		return []string{strings.TrimSpace(piece)}
	}
	chunks := strings.Split(piece, ",")
	if len(chunks) == 1 {
		return []string{piece}
	}

	var out []string
	buf := strings.TrimSpace(chunks[0])
	for _, next := range chunks[1:] {
		next = strings.TrimSpace(next)
		hinted := s.hintRE.MatchString(buf) || s.hintRE.MatchString(next)
		protectedNear := strings.Contains(buf, "__NUM") || strings.Contains(next, "__NUM") ||
			strings.Contains(buf, "__ABBR") || strings.Contains(next, "__ABBR")
		if hinted && !protectedNear && countTokens(buf) > s.cfg.MinTokens {
			out = append(out, buf)
			buf = next
		} else {
			buf = buf + ", " + next
		}
	}
	if buf != "" {
		out = append(out, buf)
	}
	return out
}

// mergeShort folds spans below the minimum token count into the preceding
// clause (or the following one when there is no predecessor).
func (s *Splitter) mergeShort(parts []string) []string {
	var out []string
	carry := ""
	for _, p := range parts {
		if carry != "" {
			p = carry + " " + p
			carry = ""
		}
		if countTokens(p) < s.cfg.MinTokens {
			if len(out) > 0 {
				out[len(out)-1] += " " + p
			} else {
				carry = p
			}
			continue
		}
		out = append(out, p)
	}
	if carry != "" {
		if len(out) > 0 {
			out[len(out)-1] += " " + carry
		} else {
			out = append(out, carry) // the whole review is one short span
		}
	}
	return out
}

func countTokens(s string) int {
	return len(wordRE.FindAllString(s, -1))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
