// Lexical text similarity: tokenization, weighted term-frequency vectors, and cosine similarity.
//
// Nothing here attempts semantic understanding. Two posts are similar when they use the same (normalized) words with similar relative frequency.
package textsim

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/spaolacci/murmur3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)
	linkish       = regexp.MustCompile(`(?i)\bhttps?://\S+`)
)

// common English function words, which carry no signal for copy-paste detection
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "i": true, "if": true,
	"in": true, "is": true, "it": true, "its": true, "me": true, "my": true,
	"of": true, "on": true, "or": true, "our": true, "she": true, "so": true,
	"that": true, "the": true, "their": true, "them": true, "they": true,
	"this": true, "to": true, "was": true, "we": true, "were": true, "will": true,
	"with": true, "you": true, "your": true,
	"rt": true,
}

// TokenizeText splits free-form text in to lower-case, unicode-normalized tokens with diacritics folded. Links are dropped, since shared links are compared separately.
func TokenizeText(text string) []string {
	// transformers carry state, so the chain is built per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	text = linkish.ReplaceAllString(text, " ")
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	folded, _, err := transform.String(normFunc, bare)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		folded = bare
	}
	return strings.Fields(folded)
}

// ContentTokens is TokenizeText with stopwords removed.
func ContentTokens(text string) []string {
	toks := TokenizeText(text)
	out := toks[:0]
	for _, t := range toks {
		if !stopwords[t] {
			out = append(out, t)
		}
	}
	return out
}

// HashOfString returns a fast, compact hash of a string (murmur3, default seed, hex encoded).
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// TextFingerprint hashes the normalized token sequence of a post body, so that copies differing only in case, punctuation, or links collide. Empty text has an empty fingerprint.
func TextFingerprint(text string) string {
	toks := TokenizeText(text)
	if len(toks) == 0 {
		return ""
	}
	return HashOfString(strings.Join(toks, " "))
}
