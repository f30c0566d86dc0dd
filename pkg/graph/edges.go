// Package graph derives the relationship graph from the current entity set.
// Edges are computed fresh on every call and never persisted; consumers treat
// the returned sequence as a set.
package graph

import (
	"github.com/tagus/contactgraph/pkg/interfaces"
)

const (
	// WeightExplicit is the weight of an edge declared through a related
	// person reference.
	WeightExplicit = 2

	// WeightInferred is the weight of an edge inferred from a shared
	// organization.
	WeightInferred = 1

	// LabelColleague labels inferred same-organization edges.
	LabelColleague = "Colleague"
)

// DeriveEdges computes the relationship graph for the given entities. It is
// pure and deterministic.
//
// Explicit edges come from related-person references resolved by exact-name
// lookup; dangling references produce no edge and no error. Inferred edges
// connect every unordered pair sharing a non-empty organization, emitted once
// per pair. An explicit and an inferred edge between the same pair may
// coexist: they encode different relationship semantics.
func DeriveEdges(entities []interfaces.ContactEntity) []interfaces.Edge {
	edges := []interfaces.Edge{}

	// Name index built once per invocation; related-person refs are weak
	// name references resolved at read time.
	byName := make(map[string]string, len(entities))
	for _, entity := range entities {
		if entity.Name != "" {
			byName[entity.Name] = entity.ID
		}
	}

	for _, entity := range entities {
		for _, ref := range entity.RelatedPeople {
			targetID, ok := byName[ref.Name]
			if !ok {
				continue // dangling reference
			}
			edges = append(edges, interfaces.Edge{
				SourceID: entity.ID,
				TargetID: targetID,
				Weight:   WeightExplicit,
				Label:    ref.Relationship,
			})
		}
	}

	for i := range entities {
		a := &entities[i]
		if a.Organization == "" {
			continue
		}
		for j := range entities {
			b := &entities[j]
			// Emit each unordered pair once, under the lexicographic
			// order of IDs.
			if a.ID >= b.ID {
				continue
			}
			if a.Organization != b.Organization {
				continue
			}
			edges = append(edges, interfaces.Edge{
				SourceID: a.ID,
				TargetID: b.ID,
				Weight:   WeightInferred,
				Label:    LabelColleague,
			})
		}
	}

	return edges
}
