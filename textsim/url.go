package textsim

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// query parameters which only identify a campaign or click, never the content
var trackingParams = []string{
	"_ga",
	"campaign_id",
	"fbclid",
	"gclid",
	"igshid",
	"mc_eid",
	"mkt_tok",
	"msclkid",
	"ref_src",
	"s",
	"si",
	"utm_campaign",
	"utm_content",
	"utm_id",
	"utm_medium",
	"utm_source",
	"utm_term",
}

// CanonicalURL aggressively normalizes a shared link so that trivially different copies of the same URL compare equal. The result may not be directly fetchable.
func CanonicalURL(raw string) string {
	clean, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy|purell.FlagRemoveDirectoryIndex|purell.FlagRemoveFragment|purell.FlagRemoveDuplicateSlashes|purell.FlagRemoveWWW|purell.FlagSortQuery)
	if err != nil {
		return raw
	}

	u, err := url.Parse(clean)
	if err != nil || u.RawQuery == "" {
		return clean
	}
	params := u.Query()
	for _, p := range trackingParams {
		params.Del(p)
	}
	u.RawQuery = params.Encode()
	return u.String()
}

// ExtractTextURLs returns the http(s) links in free text, in order, with trailing sentence punctuation trimmed. These are the same spans TokenizeText drops, so a link is never counted as both text and URL.
func ExtractTextURLs(text string) []string {
	var out []string
	for _, m := range linkish.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:!?)]}'\"")
		if u, err := url.Parse(m); err != nil || u.Host == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
