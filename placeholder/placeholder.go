// Package placeholder protects interpolation tokens across translation
// calls.
//
// Translation services routinely mangle format tokens ("{name}" comes
// back as "{nom}", "%s" disappears). Protect replaces every recognized
// token with a synthetic marker the service has no reason to touch, and
// Restore swaps the originals back into the translated text.
//
// Recognized grammars, in match order:
//
//	{{name}}     double-braced interpolation
//	${name}      template literal
//	{name}       single-braced interpolation
//	%1$s         positional printf
//	%s %d %i %f  printf verbs
//	t(key)       nested translation reference ($t(key) included)
//
// The marker counter is scoped to a single Protect call, so concurrent
// pipelines never share state.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

// grammars lists the recognized placeholder patterns. Order matters:
// double-braced and template-literal forms must be consumed before the
// single-braced form, and positional verbs before plain printf verbs.
var grammars = []*regexp.Regexp{
	regexp.MustCompile(`\{\{\s*[\w.$-]+\s*\}\}`),
	regexp.MustCompile(`\$\{\s*[\w.$-]+\s*\}`),
	regexp.MustCompile(`\{\s*[\w.$-]+\s*\}`),
	regexp.MustCompile(`%\d+\$[sdif]`),
	regexp.MustCompile(`%[sdif]`),
	regexp.MustCompile(`\$?t\(\s*['"]?[\w.:-]+['"]?\s*\)`),
}

// Placeholder records one masked substring.
type Placeholder struct {
	// Token is the synthetic marker inserted into the masked text.
	Token string
	// Original is the source substring the token stands for.
	Original string
}

// ProtectedText is the result of masking one input string.
type ProtectedText struct {
	// Text is the input with every placeholder replaced by its token.
	Text string
	// Placeholders maps tokens back to originals, in insertion order.
	Placeholders []Placeholder
}

// Protect masks every recognized placeholder in text. Matches are
// replaced in grammar order, then left to right, each with a fresh token
// unique within this call and absent from the input text.
func Protect(text string) ProtectedText {
	// Pick a marker prefix that cannot collide with existing content.
	prefix := "__PH"
	for strings.Contains(text, prefix) {
		prefix += "X"
	}

	p := ProtectedText{Text: text}
	counter := 0
	for _, re := range grammars {
		p.Text = re.ReplaceAllStringFunc(p.Text, func(match string) string {
			token := fmt.Sprintf("%s_%d__", prefix, counter)
			counter++
			p.Placeholders = append(p.Placeholders, Placeholder{Token: token, Original: match})
			return token
		})
	}
	return p
}

// Restore replaces every token in translated with its original
// substring. Tokens duplicated by the translator are restored at every
// occurrence. Tokens the translator dropped cannot be restored; their
// originals are returned in missing so the caller can warn. A non-empty
// missing list is a degraded result, not an error.
func Restore(translated string, placeholders []Placeholder) (restored string, missing []string) {
	restored = translated
	for _, ph := range placeholders {
		if !strings.Contains(restored, ph.Token) {
			missing = append(missing, ph.Original)
			continue
		}
		restored = strings.ReplaceAll(restored, ph.Token, ph.Original)
	}
	return restored, missing
}
