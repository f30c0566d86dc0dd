// Package evidence handles the web-source lists that accompany enrichment
// evidence: URL-keyed deduplication when search results are first gathered,
// and trust filtering before anything reaches the extraction oracle.
package evidence

import (
	"github.com/tagus/contactgraph/pkg/interfaces"
)

// DedupeByURL removes sources with a URL already seen earlier in the list,
// keeping the first occurrence. Applied once when search results are first
// gathered, before the caller can choose to ignore individual entries.
func DedupeByURL(sources []interfaces.SourceRef) []interfaces.SourceRef {
	seen := make(map[string]struct{}, len(sources))
	deduped := make([]interfaces.SourceRef, 0, len(sources))

	for _, source := range sources {
		if _, ok := seen[source.URL]; ok {
			continue
		}
		seen[source.URL] = struct{}{}
		deduped = append(deduped, source)
	}
	return deduped
}

// FilterTrusted returns the sources whose URL is not in the ignored set. Pure
// set-difference by URL identity; input order is preserved.
func FilterTrusted(sources []interfaces.SourceRef, ignored map[string]struct{}) []interfaces.SourceRef {
	if len(ignored) == 0 {
		return sources
	}

	trusted := make([]interfaces.SourceRef, 0, len(sources))
	for _, source := range sources {
		if _, ok := ignored[source.URL]; ok {
			continue
		}
		trusted = append(trusted, source)
	}
	return trusted
}
