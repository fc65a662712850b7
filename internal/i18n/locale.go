// Package i18n resolves the content locale of a request.
package i18n

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
)

// URLParam is the chi route parameter carrying the locale.
const URLParam = "locale"

// Locales is the read-only set of content locales the site serves.
type Locales struct {
	codes   []string
	def     string
	matcher language.Matcher
}

// New validates codes as BCP 47 tags. def must be one of them.
func New(codes []string, def string) (*Locales, error) {
	def = strings.ToLower(strings.TrimSpace(def))
	tags := make([]language.Tag, 0, len(codes))
	normalized := make([]string, 0, len(codes))
	// The default goes first so the matcher falls back to it.
	ordered := append([]string{def}, codes...)
	for _, raw := range ordered {
		code := strings.ToLower(strings.TrimSpace(raw))
		if code == "" || slices.Contains(normalized, code) {
			continue
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse locale %q: %w", code, err)
		}
		tags = append(tags, tag)
		normalized = append(normalized, code)
	}
	if def == "" || !slices.ContainsFunc(codes, func(c string) bool { return strings.EqualFold(strings.TrimSpace(c), def) }) {
		return nil, fmt.Errorf("i18n: default locale %q is not supported", def)
	}
	return &Locales{codes: normalized, def: def, matcher: language.NewMatcher(tags)}, nil
}

// Supported returns the locale codes, default first.
func (l *Locales) Supported() []string { return slices.Clone(l.codes) }

// Default returns the fallback locale.
func (l *Locales) Default() string { return l.def }

// IsSupported reports whether code is served.
func (l *Locales) IsSupported(code string) bool {
	return slices.Contains(l.codes, strings.ToLower(code))
}

// Negotiate picks the best supported locale for an Accept-Language header.
func (l *Locales) Negotiate(acceptLanguage string) string {
	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return l.def
	}
	_, idx, confidence := l.matcher.Match(desired...)
	if confidence == language.No || idx < 0 || idx >= len(l.codes) {
		return l.def
	}
	return l.codes[idx]
}

// Middleware validates the {locale} URL parameter and stores it in the context. Unknown
// locales are 404s.
func (l *Locales) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToLower(chi.URLParam(r, URLParam))
		if !l.IsSupported(code) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), code)))
	})
}

// RedirectRoot sends "/" to the visitor's preferred locale.
func (l *Locales) RedirectRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+l.Negotiate(r.Header.Get("Accept-Language")), http.StatusFound)
}

type localeKey struct{}

// WithLocale stores the request locale.
func WithLocale(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, localeKey{}, code)
}

// FromContext returns the request locale, or "" outside a locale route.
func FromContext(ctx context.Context) string {
	code, _ := ctx.Value(localeKey{}).(string)
	return code
}
