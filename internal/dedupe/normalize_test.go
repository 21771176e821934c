package dedupe

import "testing"

func TestNormalizeText(t *testing.T) {
	// WHAT: Case, repeated whitespace, control characters and UI
	// boilerplate all collapse to the same canonical form.
	// WHY: Cosmetic re-renders must not produce false-new dedup entries.
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Spring SALE", "spring sale"},
		{"collapse whitespace", "spring   sale \t now", "spring sale now"},
		{"control chars", "spring\x00sale", "spring sale"},
		{"strip sponsored", "Sponsored\nSpring sale", "spring sale"},
		{"strip library id", "Library ID: 123 Spring sale", "123 spring sale"},
		{"empty", "", ""},
		{"boilerplate only", "Sponsored", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeText(tc.in); got != tc.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	// WHAT: URL variants that differ only in case, fragment, trailing
	// slash or query order normalize identically.
	canonical := NormalizeURL("https://example.com/shop?a=1&b=2")
	variants := []string{
		"HTTPS://Example.COM/shop?a=1&b=2",
		"https://example.com/shop/?a=1&b=2",
		"https://example.com/shop?b=2&a=1",
		"https://example.com/shop?a=1&b=2#frag",
	}
	for _, v := range variants {
		if got := NormalizeURL(v); got != canonical {
			t.Errorf("NormalizeURL(%q) = %q, want %q", v, got, canonical)
		}
	}
}

func TestNormalizeURL_NonHTTPUnchanged(t *testing.T) {
	// WHAT: Non-http schemes and garbage pass through unchanged.
	// WHY: A stable wrong key still dedups consistently.
	for _, raw := range []string{"library_id:123", "ftp://x/y", ""} {
		if got := NormalizeURL(raw); got != raw {
			t.Errorf("NormalizeURL(%q) = %q, want unchanged", raw, got)
		}
	}
}

func TestSignature_StableAcrossCosmeticVariation(t *testing.T) {
	// WHAT: Signatures ignore casing, spacing and media URL order.
	a := signature("Spring  Sale", []string{"https://cdn.example/b.jpg", "https://cdn.example/a.jpg"}, "https://shop.example/x?b=2&a=1")
	b := signature("spring sale", []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"}, "https://shop.example/x?a=1&b=2")
	if a != b {
		t.Error("cosmetic variants produced different signatures")
	}

	c := signature("winter sale", []string{"https://cdn.example/a.jpg"}, "https://shop.example/x")
	if a == c {
		t.Error("different ads produced the same signature")
	}
}
