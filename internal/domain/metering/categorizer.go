package metering

import (
	"regexp"
	"strings"
)

// Categorizer classifies hostnames into categories using suffix-anchored
// seed matching. Matching is ordered: categories are tried in declaration
// order and the first match wins.
type Categorizer struct {
	matchers []categoryMatcher
}

type categoryMatcher struct {
	category Category
	pattern  *regexp.Regexp
}

// NewCategorizer builds a categorizer from the given seed lists. Categories
// without seeds are skipped. The seed must sit on a label boundary and be
// followed by at least one more label (the TLD suffix), so "pornhub" matches
// "pornhub.com" and "sub.pornhub.co.uk" but not "notpornhub.com".
func NewCategorizer(seeds map[Category][]string) *Categorizer {
	c := &Categorizer{}
	for _, category := range Categories {
		list := seeds[category]
		if len(list) == 0 {
			continue
		}
		quoted := make([]string, 0, len(list))
		for _, seed := range list {
			seed = strings.ToLower(strings.TrimSpace(seed))
			if seed == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(seed))
		}
		if len(quoted) == 0 {
			continue
		}
		expr := `(^|\.)(` + strings.Join(quoted, "|") + `)(\.[a-z0-9-]+)+$`
		c.matchers = append(c.matchers, categoryMatcher{
			category: category,
			pattern:  regexp.MustCompile(expr),
		})
	}
	return c
}

// NewDefaultCategorizer builds a categorizer from the built-in seed lists
func NewDefaultCategorizer() *Categorizer {
	return NewCategorizer(DefaultSeeds)
}

// Categorize classifies a hostname into a category. It returns ("", false)
// when no category matches; a malformed hostname is not an error. The
// hostname is lowercased and a leading "www." is stripped before matching.
func (c *Categorizer) Categorize(hostname string) (Category, bool) {
	host := NormalizeHost(hostname)
	if host == "" {
		return "", false
	}
	for _, m := range c.matchers {
		if m.pattern.MatchString(host) {
			return m.category, true
		}
	}
	return "", false
}

// NormalizeHost lowercases a hostname, trims whitespace, strips a leading
// "www." and any port suffix.
func NormalizeHost(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")
	return host
}
