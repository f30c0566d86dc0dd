// Package merge consolidates multiple contact profiles believed to represent
// the same real-world identity into one canonical profile.
//
// Scalar field resolution ("most complete wins") is delegated to the
// extraction oracle, but everything the engine can decide deterministically
// is enforced after the oracle responds, whatever it returned: the survivor
// ID, the tag union, the related-people union, and the note concatenation.
// A failed or unparseable oracle call fails closed: the first input profile
// is returned unchanged with Applied set to false.
package merge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tagus/contactgraph/pkg/interfaces"
	"github.com/tagus/contactgraph/pkg/logging"
	"github.com/tagus/contactgraph/pkg/structuredoutput"
)

// ErrInvalidMergeInput is returned when fewer than one profile is given or
// the survivor ID is not among the inputs.
var ErrInvalidMergeInput = errors.New("invalid merge input")

// Merger applies the profile merge policy.
type Merger struct {
	oracle interfaces.Oracle
	logger logging.Logger
}

// Option represents an option for configuring the Merger.
type Option func(*Merger)

// WithLogger sets the logger for the merger.
func WithLogger(logger logging.Logger) Option {
	return func(m *Merger) {
		m.logger = logger
	}
}

// New creates a Merger backed by the given oracle.
func New(oracle interfaces.Oracle, options ...Option) *Merger {
	merger := &Merger{
		oracle: oracle,
		logger: logging.New(),
	}

	for _, option := range options {
		option(merger)
	}

	return merger
}

// scalarPatch is the response shape requested from the oracle. Pointer fields
// distinguish an omitted field from an empty one; omitted fields fall back to
// the first non-empty input value.
type scalarPatch struct {
	Name         *string `json:"name,omitempty" description:"most complete display name"`
	Title        *string `json:"title,omitempty" description:"most complete job title"`
	Organization *string `json:"organization,omitempty" description:"most complete organization"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Location     *string `json:"location,omitempty"`
	Summary      *string `json:"summary,omitempty" description:"consolidated summary of the person"`
}

// MergeProfiles consolidates profiles into one canonical profile whose ID is
// survivorID. survivorID must be the ID of one of the profiles.
//
// Merging a single profile is the identity function and never invokes the
// oracle. On oracle or parse failure the returned MergeResult has Applied
// false and carries the first input profile unchanged; the error return is
// reserved for invalid input.
func (m *Merger) MergeProfiles(ctx context.Context, profiles []interfaces.ContactEntity, survivorID string) (interfaces.MergeResult, error) {
	if len(profiles) == 0 {
		return interfaces.MergeResult{}, fmt.Errorf("%w: no profiles", ErrInvalidMergeInput)
	}

	survivorIdx := -1
	for i, p := range profiles {
		if p.ID == survivorID {
			survivorIdx = i
			break
		}
	}
	if survivorIdx == -1 {
		return interfaces.MergeResult{}, fmt.Errorf("%w: survivor %s not among inputs", ErrInvalidMergeInput, survivorID)
	}

	if len(profiles) == 1 {
		return interfaces.MergeResult{Entity: profiles[0].Clone(), Applied: true}, nil
	}

	prompt, err := m.buildMergePrompt(profiles)
	if err != nil {
		return m.failClosed(ctx, profiles, fmt.Sprintf("failed to assemble merge prompt: %v", err)), nil
	}

	format := structuredoutput.NewResponseFormat(scalarPatch{})
	response, err := m.oracle.Generate(ctx, prompt, interfaces.WithResponseFormat(*format))
	if err != nil {
		return m.failClosed(ctx, profiles, fmt.Sprintf("oracle call failed: %v", err)), nil
	}

	var patch scalarPatch
	if err := json.Unmarshal([]byte(response), &patch); err != nil {
		return m.failClosed(ctx, profiles, fmt.Sprintf("unparseable oracle response: %v", err)), nil
	}

	merged := finalize(profiles, survivorIdx, patch)
	if err := merged.Validate(); err != nil {
		return m.failClosed(ctx, profiles, fmt.Sprintf("merged profile failed validation: %v", err)), nil
	}

	m.logger.Info(ctx, "Merged profiles", map[string]interface{}{
		"inputCount": len(profiles),
		"survivorId": survivorID,
	})

	return interfaces.MergeResult{Entity: merged, Applied: true}, nil
}

func (m *Merger) failClosed(ctx context.Context, profiles []interfaces.ContactEntity, reason string) interfaces.MergeResult {
	m.logger.Warn(ctx, "Merge not applied", map[string]interface{}{
		"reason": reason,
	})
	return interfaces.MergeResult{
		Entity:  profiles[0].Clone(),
		Applied: false,
		Reason:  reason,
	}
}

// buildMergePrompt asks the oracle to pick the most complete value for each
// scalar field across the serialized input profiles.
func (m *Merger) buildMergePrompt(profiles []interfaces.ContactEntity) (string, error) {
	payload, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("The following contact profiles describe the same real-world person or organization.\n")
	sb.WriteString("Consolidate them into a single profile. For each field, choose the most complete\n")
	sb.WriteString("and most specific value found across the profiles. Omit a field entirely if no\n")
	sb.WriteString("profile has a value for it. Do not invent information.\n\n")
	sb.WriteString("Profiles:\n")
	sb.Write(payload)
	return sb.String(), nil
}

// finalize applies the deterministic part of the merge policy over the oracle
// output.
func finalize(profiles []interfaces.ContactEntity, survivorIdx int, patch scalarPatch) interfaces.ContactEntity {
	survivor := profiles[survivorIdx]

	merged := interfaces.ContactEntity{
		ID:        survivor.ID,
		CreatedAt: survivor.CreatedAt,
		UpdatedAt: survivor.UpdatedAt,
	}

	merged.Name = pick(patch.Name, profiles, func(p interfaces.ContactEntity) string { return p.Name })
	merged.Title = pick(patch.Title, profiles, func(p interfaces.ContactEntity) string { return p.Title })
	merged.Organization = pick(patch.Organization, profiles, func(p interfaces.ContactEntity) string { return p.Organization })
	merged.Email = pick(patch.Email, profiles, func(p interfaces.ContactEntity) string { return p.Email })
	merged.Phone = pick(patch.Phone, profiles, func(p interfaces.ContactEntity) string { return p.Phone })
	merged.Location = pick(patch.Location, profiles, func(p interfaces.ContactEntity) string { return p.Location })
	merged.Summary = pick(patch.Summary, profiles, func(p interfaces.ContactEntity) string { return p.Summary })

	merged.Tags = unionTags(profiles)
	merged.RelatedPeople = unionRelated(profiles)
	merged.Notes = joinNotes(profiles)

	return merged
}

// pick takes the oracle's value when present and non-empty, falling back to
// the first non-empty value across the inputs in input order. A field is
// never left blank when any input had a value.
func pick(fromOracle *string, profiles []interfaces.ContactEntity, get func(interfaces.ContactEntity) string) string {
	if fromOracle != nil && *fromOracle != "" {
		return *fromOracle
	}
	for _, p := range profiles {
		if v := get(p); v != "" {
			return v
		}
	}
	return ""
}

// unionTags returns the set union of all input tags, preserving first-seen
// order. Matching is case-sensitive.
func unionTags(profiles []interfaces.ContactEntity) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, p := range profiles {
		for _, tag := range p.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}

// unionRelated unions the related-people lists deduplicated by name; the
// first occurrence wins the relationship label on a collision.
func unionRelated(profiles []interfaces.ContactEntity) []interfaces.RelatedPersonRef {
	seen := make(map[string]struct{})
	var refs []interfaces.RelatedPersonRef
	for _, p := range profiles {
		for _, ref := range p.RelatedPeople {
			if _, ok := seen[ref.Name]; ok {
				continue
			}
			seen[ref.Name] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

// joinNotes concatenates non-empty notes in input order with a blank-line
// separator. Empty notes contribute nothing.
func joinNotes(profiles []interfaces.ContactEntity) string {
	var parts []string
	for _, p := range profiles {
		if p.Notes != "" {
			parts = append(parts, p.Notes)
		}
	}
	return strings.Join(parts, "\n\n")
}
