// Package interfaces defines the canonical types and contracts shared across
// the contact graph engine. Other packages depend on this package rather than
// on each other, keeping the component boundaries explicit.
package interfaces

import (
	"fmt"
	"time"
)

// ContactEntity represents a person or organization node in the contact graph.
type ContactEntity struct {
	// ID is opaque, immutable once assigned, and globally unique in a store.
	ID string `json:"id"`

	// Name is the display key used for identity matching. Matching is
	// case-sensitive exact match everywhere in the engine.
	Name string `json:"name"`

	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Location     string `json:"location,omitempty"`

	// Tags is an order-insensitive set of labels.
	Tags []string `json:"tags,omitempty"`

	Summary string `json:"summary,omitempty"`

	// Notes is free text, append-only across merges.
	Notes string `json:"notes,omitempty"`

	// RelatedPeople holds weak name references; the target entity may not
	// exist. Never two entries with the same Name on one entity.
	RelatedPeople []RelatedPersonRef `json:"relatedPeople,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// RelatedPersonRef is a weak reference to another contact, keyed by display
// name. It is resolved by exact-name lookup at edge-derivation or discovery
// time and may dangle.
type RelatedPersonRef struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
}

// Clone returns a deep copy of the entity.
func (e ContactEntity) Clone() ContactEntity {
	c := e
	if e.Tags != nil {
		c.Tags = make([]string, len(e.Tags))
		copy(c.Tags, e.Tags)
	}
	if e.RelatedPeople != nil {
		c.RelatedPeople = make([]RelatedPersonRef, len(e.RelatedPeople))
		copy(c.RelatedPeople, e.RelatedPeople)
	}
	return c
}

// Validate checks the structural invariants of an entity: a non-empty ID and
// no two related-person entries sharing a name.
func (e ContactEntity) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entity %q: empty id", e.Name)
	}
	seen := make(map[string]struct{}, len(e.RelatedPeople))
	for _, ref := range e.RelatedPeople {
		if _, ok := seen[ref.Name]; ok {
			return fmt.Errorf("entity %s: duplicate related person %q", e.ID, ref.Name)
		}
		seen[ref.Name] = struct{}{}
	}
	return nil
}

// HasTag reports whether the entity carries the given tag (case-sensitive).
func (e ContactEntity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Edge is a derived relationship between two entities. Edges are recomputed
// on demand and never persisted.
type Edge struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Weight   int    `json:"weight"`
	Label    string `json:"label"`
}

// SourceRef identifies one piece of web evidence by URL.
type SourceRef struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// ImageBlob is an inline image passed to the extraction oracle as evidence.
type ImageBlob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// EvidenceBundle carries the heterogeneous evidence for one enrichment call.
// All fields are optional, but at least one must be non-empty.
type EvidenceBundle struct {
	WebSummary     string      `json:"webSummary,omitempty"`
	TrustedSources []SourceRef `json:"trustedSources,omitempty"`
	ManualText     string      `json:"manualText,omitempty"`
	ManualImages   []ImageBlob `json:"manualImages,omitempty"`
}

// Empty reports whether the bundle contains no usable evidence.
func (b EvidenceBundle) Empty() bool {
	return b.WebSummary == "" && b.ManualText == "" && len(b.ManualImages) == 0
}

// ProfilePatch is the parsed oracle output for an enrichment call. Nil
// pointer fields are absent and leave the target's value untouched; the
// patch is applied as a shallow field overwrite.
type ProfilePatch struct {
	Name          *string            `json:"name,omitempty"`
	Title         *string            `json:"title,omitempty"`
	Organization  *string            `json:"organization,omitempty"`
	Email         *string            `json:"email,omitempty"`
	Phone         *string            `json:"phone,omitempty"`
	Location      *string            `json:"location,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	Summary       *string            `json:"summary,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	RelatedPeople []RelatedPersonRef `json:"relatedPeople,omitempty"`
}

// EnrichmentOutcome is the result of one enrichment call. Updated and
// Discovered are applied to the store atomically from the caller's
// perspective.
type EnrichmentOutcome struct {
	Updated    ContactEntity   `json:"updated"`
	Discovered []ContactEntity `json:"discovered,omitempty"`
}

// MergeResult is the outcome of a multi-profile merge. Applied is false when
// the merge failed closed and Entity is the unmodified first input profile;
// callers must check it rather than assume the merge happened.
type MergeResult struct {
	Entity  ContactEntity `json:"entity"`
	Applied bool          `json:"applied"`

	// Reason explains a non-applied result.
	Reason string `json:"reason,omitempty"`
}
