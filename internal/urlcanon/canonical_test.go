package urlcanon

import "testing"

func TestCanonicalizeStripsTrackingParams(t *testing.T) {
	t.Parallel()

	got, ok := Canonicalize("https://news.com/story?utm_source=google&utm_medium=email&id=5")
	if !ok {
		t.Fatalf("expected canonicalization to succeed")
	}
	if got != "https://news.com/story?id=5" {
		t.Fatalf("unexpected canonical url: %q", got)
	}

	got, ok = Canonicalize("https://news.com/story?fbclid=abc&gclid=def")
	if !ok {
		t.Fatalf("expected canonicalization to succeed")
	}
	if got != "https://news.com/story" {
		t.Fatalf("expected all tracking params removed, got %q", got)
	}
}

func TestCanonicalizeNormalizesHost(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.example.com/article":    "https://example.com/article",
		"https://m.example.com/article":      "https://example.com/article",
		"https://mobile.news.co.uk/story":    "https://news.co.uk/story",
		"https://www2.example.com/article":   "https://example.com/article",
		"https://example.com:443/article":    "https://example.com/article",
		"http://example.com:80/article":      "https://example.com/article",
		"https://example.com:8080/article":   "https://example.com:8080/article",
		"HTTPS://EXAMPLE.COM/Article":        "https://example.com/article",
		"https://news.example.com/a":         "https://news.example.com/a",
	}
	for input, want := range cases {
		got, ok := Canonicalize(input)
		if !ok {
			t.Fatalf("Canonicalize(%q) failed", input)
		}
		if got != want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCanonicalizeNormalizesPath(t *testing.T) {
	t.Parallel()

	got, ok := Canonicalize("https://example.com/article/")
	if !ok || got != "https://example.com/article" {
		t.Fatalf("expected trailing slash stripped, got %q", got)
	}

	got, ok = Canonicalize("https://example.com")
	if !ok || got != "https://example.com/" {
		t.Fatalf("expected root path defaulted, got %q", got)
	}

	got, ok = Canonicalize("https://example.com/my%20article")
	if !ok || got != "https://example.com/my article" {
		t.Fatalf("expected %%20 decoded, got %q", got)
	}
}

func TestCanonicalizeDropsFragmentAndDefaultsScheme(t *testing.T) {
	t.Parallel()

	got, ok := Canonicalize("example.com/article#section-2")
	if !ok {
		t.Fatalf("expected canonicalization to succeed")
	}
	if got != "https://example.com/article" {
		t.Fatalf("unexpected canonical url: %q", got)
	}
}

func TestCanonicalizeSortsQueryParams(t *testing.T) {
	t.Parallel()

	got, ok := Canonicalize("https://example.com/a?b=2&a=1")
	if !ok || got != "https://example.com/a?a=1&b=2" {
		t.Fatalf("expected sorted query params, got %q", got)
	}

	got, ok = Canonicalize("https://example.com/a?empty=&kept=1")
	if !ok || got != "https://example.com/a?kept=1" {
		t.Fatalf("expected blank-valued param dropped, got %q", got)
	}
}

func TestCanonicalizeFailsClosed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "https://", "https://ho st/with space"} {
		if got, ok := Canonicalize(input); ok {
			t.Fatalf("Canonicalize(%q) = %q, expected failure", input, got)
		}
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	if !Match("https://example.com", "http://www.example.com/") {
		t.Fatalf("expected scheme/www/slash variants to match")
	}
	if !Match("https://news.com?utm_source=google", "https://news.com") {
		t.Fatalf("expected tracking param variant to match")
	}
	if Match("https://example.com/article", "https://example.com/different") {
		t.Fatalf("expected different paths not to match")
	}
	if Match("", "https://example.com") {
		t.Fatalf("uncanonicalizable url must never match")
	}
	if Match("", "") {
		t.Fatalf("two uncanonicalizable urls must not match each other")
	}
}

func TestMatchIsReflexiveForValidURLs(t *testing.T) {
	t.Parallel()

	url := "https://www.example.com/Article?utm_campaign=x&id=9"
	if !Match(url, url) {
		t.Fatalf("expected url to match itself")
	}
}

func TestDomain(t *testing.T) {
	t.Parallel()

	if got := Domain("https://www.example.com/a"); got != "example.com" {
		t.Fatalf("unexpected domain: %q", got)
	}
	if got := Domain(""); got != "" {
		t.Fatalf("expected empty domain for invalid url, got %q", got)
	}
}
