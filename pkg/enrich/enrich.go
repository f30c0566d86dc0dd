// Package enrich implements the evidence-driven enrichment pipeline: it
// assembles an evidence description, delegates extraction to the oracle,
// applies the resulting patch to the target profile, and discovers new
// entities mentioned in the patch without creating duplicates.
//
// Any failure before the patch is applied aborts the whole operation with no
// partial result; discovery never fails the operation, malformed
// related-person entries are simply skipped.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tagus/contactgraph/pkg/entitystore"
	"github.com/tagus/contactgraph/pkg/evidence"
	"github.com/tagus/contactgraph/pkg/interfaces"
	"github.com/tagus/contactgraph/pkg/logging"
	"github.com/tagus/contactgraph/pkg/structuredoutput"
)

var (
	// ErrEmptyEvidence is returned when the evidence bundle has nothing to
	// work with; the pipeline never emits a vacuous oracle call.
	ErrEmptyEvidence = errors.New("evidence bundle is empty")

	// ErrOracleCall is returned when the external oracle call itself failed.
	ErrOracleCall = errors.New("oracle call failed")

	// ErrExtractionParse is returned when the oracle output cannot be parsed
	// as a profile patch. The pipeline never fabricates a partial profile.
	ErrExtractionParse = errors.New("unparseable extraction output")

	// ErrNoOracle is returned when the enricher was built without an oracle.
	ErrNoOracle = errors.New("no oracle configured")
)

// DiscoveryTag marks entities auto-created by the discovery step.
const DiscoveryTag = "auto-discovered"

// OriginConnectionLabel labels the back-reference a discovered stub carries
// to the entity whose enrichment surfaced it.
const OriginConnectionLabel = "Origin Connection"

// orgKeywords is the fixed vocabulary used to classify a discovered entity
// as an organization from its relationship label. Matching is
// case-insensitive substring.
var orgKeywords = []string{
	"organization", "organisation", "company", "institution", "agency",
	"组织", "机构", "公司",
}

// Enricher orchestrates enrichment calls against an entity store.
type Enricher struct {
	store   *entitystore.Store
	oracle  interfaces.Oracle
	logger  logging.Logger
	ignored map[string]struct{}
}

// Option represents an option for configuring the Enricher.
type Option func(*Enricher)

// WithLogger sets the logger for the enricher.
func WithLogger(logger logging.Logger) Option {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// WithIgnoredSources sets the URLs the operator has excluded from web
// evidence. Matching sources never reach the oracle.
func WithIgnoredSources(urls map[string]struct{}) Option {
	return func(e *Enricher) {
		e.ignored = urls
	}
}

// New creates an Enricher reading from the given store and delegating
// extraction to the given oracle.
func New(store *entitystore.Store, oracle interfaces.Oracle, options ...Option) *Enricher {
	enricher := &Enricher{
		store:  store,
		oracle: oracle,
		logger: logging.New(),
	}

	for _, option := range options {
		option(enricher)
	}

	return enricher
}

// Enrich runs the pipeline for one target entity. It does not write to the
// store; the returned outcome is applied atomically by the caller (see
// EnrichAndApply). The host must not run two enrichments against the same
// entity concurrently.
func (e *Enricher) Enrich(ctx context.Context, target interfaces.ContactEntity, bundle interfaces.EvidenceBundle) (*interfaces.EnrichmentOutcome, error) {
	if e.oracle == nil {
		return nil, ErrNoOracle
	}
	if bundle.Empty() {
		return nil, ErrEmptyEvidence
	}

	// Source hygiene before any of the evidence reaches the prompt:
	// duplicate URLs collapse to their first occurrence, ignored URLs drop
	// out entirely.
	bundle.TrustedSources = evidence.FilterTrusted(
		evidence.DedupeByURL(bundle.TrustedSources), e.ignored)

	prompt, err := buildEvidencePrompt(target, bundle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	// A URL in the manual text switches the oracle to grounded mode: it may
	// resolve the URL, and its response contract degrades from strict schema
	// to best-effort JSON in free text.
	grounded := containsURL(bundle.ManualText)

	opts := []interfaces.GenerateOption{
		interfaces.WithSystemMessage(extractionSystemMessage),
	}
	if len(bundle.ManualImages) > 0 {
		opts = append(opts, interfaces.WithImages(bundle.ManualImages))
	}
	if grounded {
		opts = append(opts, interfaces.WithWebGrounding(true))
	} else {
		format := structuredoutput.NewResponseFormat(interfaces.ProfilePatch{})
		opts = append(opts, interfaces.WithResponseFormat(*format))
	}

	response, err := e.oracle.Generate(ctx, prompt, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleCall, err)
	}

	patch, err := parsePatch(response, grounded)
	if err != nil {
		return nil, err
	}

	updated := applyPatch(target, patch)
	discovered := e.discover(ctx, updated)

	e.logger.Info(ctx, "Enrichment completed", map[string]interface{}{
		"entityId":   target.ID,
		"grounded":   grounded,
		"discovered": len(discovered),
	})

	return &interfaces.EnrichmentOutcome{
		Updated:    updated,
		Discovered: discovered,
	}, nil
}

// EnrichAndApply enriches the entity with the given ID and applies the
// outcome to the store in one critical section. A failed enrichment leaves
// the store exactly as before the call.
func (e *Enricher) EnrichAndApply(ctx context.Context, id string, bundle interfaces.EvidenceBundle) (*interfaces.EnrichmentOutcome, error) {
	target, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}

	outcome, err := e.Enrich(ctx, target, bundle)
	if err != nil {
		return nil, err
	}

	if err := e.store.ApplyEnrichment(*outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// applyPatch overlays the patch on a clone of the target: present fields
// overwrite, absent fields leave the target's values untouched. This is a
// shallow field overwrite, distinct from the multi-profile union policy of
// the merge package.
func applyPatch(target interfaces.ContactEntity, patch *interfaces.ProfilePatch) interfaces.ContactEntity {
	updated := target.Clone()

	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Organization != nil {
		updated.Organization = *patch.Organization
	}
	if patch.Email != nil {
		updated.Email = *patch.Email
	}
	if patch.Phone != nil {
		updated.Phone = *patch.Phone
	}
	if patch.Location != nil {
		updated.Location = *patch.Location
	}
	if patch.Tags != nil {
		updated.Tags = patch.Tags
	}
	if patch.Summary != nil {
		updated.Summary = *patch.Summary
	}
	if patch.Notes != nil {
		updated.Notes = *patch.Notes
	}
	if patch.RelatedPeople != nil {
		updated.RelatedPeople = dedupeRefs(patch.RelatedPeople)
	}

	return updated
}

// dedupeRefs drops related-person entries whose name was already seen,
// keeping the first occurrence. Oracle output is untrusted; the no-duplicate
// invariant is enforced here regardless.
func dedupeRefs(refs []interfaces.RelatedPersonRef) []interfaces.RelatedPersonRef {
	seen := make(map[string]struct{}, len(refs))
	deduped := make([]interfaces.RelatedPersonRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.Name]; ok {
			continue
		}
		seen[ref.Name] = struct{}{}
		deduped = append(deduped, ref)
	}
	return deduped
}

// discover synthesizes stub entities for related people mentioned in the
// patched profile that match neither the profile's own name nor any existing
// entity name. The name set is seeded from the store and extended as stubs
// are created, so one enrichment never creates two stubs for the same name.
func (e *Enricher) discover(ctx context.Context, updated interfaces.ContactEntity) []interfaces.ContactEntity {
	known := e.store.Names()
	known[updated.Name] = struct{}{}

	var stubs []interfaces.ContactEntity
	for _, ref := range updated.RelatedPeople {
		if ref.Name == "" {
			continue // malformed entry, never fatal
		}
		if _, ok := known[ref.Name]; ok {
			continue
		}

		stub := newStub(ref, updated.Name)
		known[ref.Name] = struct{}{}
		stubs = append(stubs, stub)

		e.logger.Debug(ctx, "Discovered new entity", map[string]interface{}{
			"name":         ref.Name,
			"relationship": ref.Relationship,
			"organization": stub.Organization != "",
		})
	}
	return stubs
}

// newStub builds the auto-created entity for a newly mentioned related
// person or organization.
func newStub(ref interfaces.RelatedPersonRef, originName string) interfaces.ContactEntity {
	stub := interfaces.ContactEntity{
		ID:   uuid.New().String(),
		Name: ref.Name,
		Tags: []string{DiscoveryTag},
		RelatedPeople: []interfaces.RelatedPersonRef{
			{Name: originName, Relationship: OriginConnectionLabel},
		},
	}

	if isOrganizationLabel(ref.Relationship) {
		stub.Organization = ref.Name
		stub.Title = "Organization"
	}
	return stub
}
