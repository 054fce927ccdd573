package textsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		s   string
		out []string
	}{
		{s: "1 'Two' three!", out: []string{"1", "two", "three"}},
		{s: "  foo1;bar2,baz3...", out: []string{"foo1", "bar2", "baz3"}},
		{s: "Café déjà vu", out: []string{"cafe", "deja", "vu"}},
		{s: "read this https://example.com/x?y=1 now", out: []string{"read", "this", "now"}},
		{s: "", out: nil},
	}
	for _, fix := range fixtures {
		toks := TokenizeText(fix.s)
		if fix.out == nil {
			assert.Empty(toks)
			continue
		}
		assert.Equal(fix.out, toks)
	}

	assert.Equal([]string{"election", "rigged"}, ContentTokens("The election is RIGGED!"))
}

func TestTextFingerprint(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(TextFingerprint("Vote NOW, friends!"), TextFingerprint("vote now friends"))
	assert.NotEqual(TextFingerprint("vote now"), TextFingerprint("vote later"))
	assert.Equal("", TextFingerprint("!!!"))
	assert.Len(HashOfString("dummy-value"), 16)
}

func TestCosine(t *testing.T) {
	assert := assert.New(t)

	docs := [][]string{
		ContentTokens("breaking news the dam has failed"),
		ContentTokens("breaking news the dam has failed"),
		ContentTokens("cute cat pictures"),
		ContentTokens("breaking news about cats"),
	}
	c := NewCorpus(docs)
	v0 := c.Vector(docs[0])
	v1 := c.Vector(docs[1])
	v2 := c.Vector(docs[2])
	v3 := c.Vector(docs[3])

	assert.InDelta(1.0, Cosine(v0, v1), 1e-9)
	assert.Equal(0.0, Cosine(v0, v2))
	sim := Cosine(v0, v3)
	assert.Greater(sim, 0.0)
	assert.Less(sim, 1.0)
	assert.Equal(Cosine(v0, v3), Cosine(v3, v0))

	assert.True(c.Vector(nil).IsZero())
	assert.Equal(0.0, Cosine(c.Vector(nil), v0))
}

func TestCanonicalURL(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		orig  string
		clean string
	}{
		{orig: "", clean: ""},
		{orig: "HTTP://bSky.app:80/index.html", clean: "http://bsky.app"},
		{orig: "https://example.com/thing?c=123&utm_campaign=blah&a=first", clean: "https://example.com/thing?a=first&c=123"},
		{orig: "http://example.com/bar.html#section1", clean: "http://example.com/bar.html"},
		{orig: "http://www.example.com/", clean: "http://example.com"},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.clean, CanonicalURL(fix.orig))
	}
}

func TestExtractTextURLs(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"https://example.com/a?utm_source=x", "http://news.example.org/story"},
		ExtractTextURLs("read https://example.com/a?utm_source=x, then (http://news.example.org/story)."))
	// bare domains are not links
	assert.Empty(ExtractTextURLs("this is a description with example.com mentioned in the middle"))
	assert.Empty(ExtractTextURLs("broken https:// link"))
}
