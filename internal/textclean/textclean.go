// Package textclean undoes the tokenisation artefacts of the training corpus
// (PTB bracket escapes, detached punctuation, split decimals) before text is
// shown to a reader.
package textclean

import (
	"regexp"
	"strings"
)

type rule struct {
	re   *regexp.Regexp
	repl func(string) string
}

func literal(s string) func(string) string {
	return func(string) string { return s }
}

func stripSpace(m string) string { return strings.TrimSpace(m) }

func dropSpace(m string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			return -1
		}
		return r
	}, m)
}

// Applied in order.
var rules = []rule{
	{regexp.MustCompile(`-lrb-`), literal("(")},
	{regexp.MustCompile(`-rrb-`), literal(")")},
	{regexp.MustCompile(`-lsb-`), literal("[")},
	{regexp.MustCompile(`-rsb-`), literal("]")},
	{regexp.MustCompile(`-lcb-`), literal("{")},
	{regexp.MustCompile(`-rcb-`), literal("}")},
	{regexp.MustCompile(`''`), literal(`"`)},
	{regexp.MustCompile(`\si\s`), literal(" I ")},
	{regexp.MustCompile(`^i\s`), literal("I ")},
	{regexp.MustCompile(`\sna\s`), literal("na ")},
	{regexp.MustCompile(`\$\s`), stripSpace},
	{regexp.MustCompile(`[-#]\s|\s([-.!,':;?]|n't)`), stripSpace},
	{regexp.MustCompile(`\d+. \d+`), dropSpace},
}

// Clean applies the substitutions to text.
func Clean(text string) string {
	for _, r := range rules {
		text = r.re.ReplaceAllStringFunc(text, r.repl)
	}
	return text
}
