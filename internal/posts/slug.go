package posts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// fallbackSlug is used when a title has no ASCII letters or digits at all.
const fallbackSlug = "post"

var transliterations = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a", 'ā': "a", 'ă': "a", 'ą': "a",
	'æ': "ae",
	'ç': "c", 'ć': "c", 'č': "c",
	'ď': "d", 'đ': "d", 'ð': "d",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e", 'ē': "e", 'ę': "e", 'ě': "e",
	'ğ': "g",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i", 'ī': "i", 'ı': "i",
	'ł': "l",
	'ñ': "n", 'ń': "n", 'ň': "n",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o", 'ø': "o", 'ō': "o", 'ő': "o",
	'œ': "oe",
	'ř': "r",
	'ś': "s", 'š': "s", 'ş': "s",
	'ß': "ss",
	'ť': "t", 'ţ': "t",
	'þ': "th",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u", 'ū': "u", 'ů': "u", 'ű': "u",
	'ý': "y", 'ÿ': "y",
	'ź': "z", 'ż': "z", 'ž': "z",
	'\u0307': "",
}

// Slugify turns free text into a lowercase, hyphen-delimited ASCII slug. It is total and
// deterministic, and Slugify(Slugify(s)) == Slugify(s). The result may be empty.
func Slugify(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingHyphen := false
	write := func(s string) {
		if s == "" {
			return
		}
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteString(s)
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			write(string(r))
		default:
			if ascii, ok := transliterations[r]; ok {
				write(ascii)
				continue
			}
			pendingHyphen = true
		}
	}
	return b.String()
}

// SlugLookup probes the content store for a slug.
type SlugLookup interface {
	FindIDBySlug(ctx context.Context, slug string) (id string, found bool, err error)
}

// SlugAllocator finds a free slug for a title.
//
// Two concurrent allocations for the same title can both pick the same slug; the unique
// constraint on posts.slug rejects the second insert.
type SlugAllocator struct {
	lookup SlugLookup
}

// NewSlugAllocator constructs a SlugAllocator.
func NewSlugAllocator(lookup SlugLookup) *SlugAllocator {
	return &SlugAllocator{lookup: lookup}
}

// GenerateUniqueSlug returns slugify(title), or the first of base-1, base-2, ... not
// taken by another post. A slug held by excludeID is free: that is the post being edited.
func (a *SlugAllocator) GenerateUniqueSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = fallbackSlug
	}
	candidate := base
	for n := 1; ; n++ {
		id, found, err := a.lookup.FindIDBySlug(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("posts: probe slug %q: %w", candidate, err)
		}
		if !found || (excludeID != "" && id == excludeID) {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}
