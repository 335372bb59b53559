package share

import (
	"net/url"
	"testing"
)

func TestRandomSlugIsURLSafe(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		slug, err := RandomSlug()
		if err != nil {
			t.Fatalf("RandomSlug: %v", err)
		}
		if len(slug) != SlugLength {
			t.Fatalf("expected length %d, got %q", SlugLength, slug)
		}
		if !ValidSlug(slug) {
			t.Fatalf("generated slug %q is not valid", slug)
		}
		if escaped := url.QueryEscape(slug); escaped != slug {
			t.Fatalf("slug %q needs escaping (%q)", slug, escaped)
		}
		seen[slug] = struct{}{}
	}
	if len(seen) < 990 {
		t.Fatalf("expected nearly all slugs to be distinct, got %d of 1000", len(seen))
	}
}

func TestValidSlug(t *testing.T) {
	cases := map[string]bool{
		"abc_DEF":   true,
		"a-b-c":     true,
		"":          false,
		"has space": false,
		"slash/no":  false,
		"percent%":  false,
		"dot.no":    false,
	}
	for slug, want := range cases {
		if got := ValidSlug(slug); got != want {
			t.Errorf("ValidSlug(%q) = %v, want %v", slug, got, want)
		}
	}
}
