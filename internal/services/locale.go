package services

import "sort"

// DefaultLocale is used when a request carries no locale.
const DefaultLocale = "ru"

// LocaleResolver picks the per-locale value of localized question fields.
type LocaleResolver struct {
	fallback string
}

func NewLocaleResolver(fallback string) *LocaleResolver {
	if fallback == "" {
		fallback = DefaultLocale
	}
	return &LocaleResolver{fallback: fallback}
}

func (r *LocaleResolver) Fallback() string {
	return r.fallback
}

// Normalize maps an empty locale to the fallback.
func (r *LocaleResolver) Normalize(locale string) string {
	if locale == "" {
		return r.fallback
	}
	return locale
}

// Text resolves exact locale, then fallback, then the first locale in key order.
func (r *LocaleResolver) Text(m map[string]string, locale string) (string, string) {
	locale = r.Normalize(locale)
	if v, ok := m[locale]; ok {
		return v, locale
	}
	if v, ok := m[r.fallback]; ok {
		return v, r.fallback
	}
	if k, ok := firstKey(m); ok {
		return m[k], k
	}
	return "", locale
}

// Options resolves like Text.
func (r *LocaleResolver) Options(m map[string][]string, locale string) []string {
	locale = r.Normalize(locale)
	if v, ok := m[locale]; ok {
		return v
	}
	if v, ok := m[r.fallback]; ok {
		return v
	}
	if k, ok := firstKey(m); ok {
		return m[k]
	}
	return []string{}
}

// Correct resolves exact locale, then fallback. There is no further fallback:
// a locale without answers yields an empty set.
func (r *LocaleResolver) Correct(m map[string][]string, locale string) []string {
	locale = r.Normalize(locale)
	if v, ok := m[locale]; ok {
		return v
	}
	if v, ok := m[r.fallback]; ok {
		return v
	}
	return []string{}
}

func firstKey[V any](m map[string]V) (string, bool) {
	if len(m) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0], true
}
