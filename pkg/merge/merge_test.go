package merge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tagus/contactgraph/pkg/interfaces"
	"github.com/tagus/contactgraph/pkg/logging"
)

// MockOracle is a mock implementation of the Oracle interface.
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	args := m.Called(ctx, prompt, options)
	return args.String(0), args.Error(1)
}

func (m *MockOracle) Name() string {
	return "mock"
}

func newTestMerger(oracle interfaces.Oracle) *Merger {
	return New(oracle, WithLogger(logging.Noop()))
}

func TestMergeProfiles(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty input", func(t *testing.T) {
		merger := newTestMerger(&MockOracle{})

		_, err := merger.MergeProfiles(ctx, nil, "a")

		assert.ErrorIs(t, err, ErrInvalidMergeInput)
	})

	t.Run("rejects survivor not among inputs", func(t *testing.T) {
		merger := newTestMerger(&MockOracle{})
		profiles := []interfaces.ContactEntity{{ID: "a", Name: "Li"}}

		_, err := merger.MergeProfiles(ctx, profiles, "zzz")

		assert.ErrorIs(t, err, ErrInvalidMergeInput)
	})

	t.Run("single profile short-circuits without oracle call", func(t *testing.T) {
		oracle := &MockOracle{}
		merger := newTestMerger(oracle)
		profiles := []interfaces.ContactEntity{{ID: "a", Name: "Li", Tags: []string{"x"}}}

		result, err := merger.MergeProfiles(ctx, profiles, "a")

		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, profiles[0], result.Entity)
		oracle.AssertNotCalled(t, "Generate")
	})

	t.Run("tags are the set union and id is the survivor", func(t *testing.T) {
		oracle := &MockOracle{}
		oracle.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(`{"name":"Li"}`, nil)
		merger := newTestMerger(oracle)

		profiles := []interfaces.ContactEntity{
			{ID: "a", Name: "Li", Tags: []string{"x"}},
			{ID: "b", Name: "Li", Tags: []string{"x", "y"}},
		}

		result, err := merger.MergeProfiles(ctx, profiles, "a")

		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, "a", result.Entity.ID)
		assert.ElementsMatch(t, []string{"x", "y"}, result.Entity.Tags)
	})

	t.Run("omitted scalar falls back to first non-empty input", func(t *testing.T) {
		oracle := &MockOracle{}
		oracle.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(`{"name":"Li Ming"}`, nil)
		merger := newTestMerger(oracle)

		profiles := []interfaces.ContactEntity{
			{ID: "a", Name: "Li", Email: ""},
			{ID: "b", Name: "Li", Email: "li@acme.example", Title: "CTO"},
		}

		result, err := merger.MergeProfiles(ctx, profiles, "a")

		require.NoError(t, err)
		assert.Equal(t, "Li Ming", result.Entity.Name) // oracle judgment kept
		assert.Equal(t, "li@acme.example", result.Entity.Email)
		assert.Equal(t, "CTO", result.Entity.Title)
	})

	t.Run("survivor timestamps are carried", func(t *testing.T) {
		oracle := &MockOracle{}
		oracle.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(`{}`, nil)
		merger := newTestMerger(oracle)

		created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		updated := time.Date(2025, 8, 15, 9, 30, 0, 0, time.UTC)
		profiles := []interfaces.ContactEntity{
			{ID: "a", Name: "Li", CreatedAt: created, UpdatedAt: updated},
			{ID: "b", Name: "Li", CreatedAt: created.AddDate(1, 0, 0), UpdatedAt: updated.AddDate(0, 1, 0)},
		}

		result, err := merger.MergeProfiles(ctx, profiles, "a")

		require.NoError(t, err)
		assert.Equal(t, created, result.Entity.CreatedAt)
		assert.Equal(t, updated, result.Entity.UpdatedAt)
	})

	t.Run("related people union dedupes by name, first occurrence wins", func(t *testing.T) {
		oracle := &MockOracle{}
		oracle.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(`{}`, nil)
		merger := newTestMerger(oracle)

		profiles := []interfaces.ContactEntity{
			{ID: "a", Name: "Li", RelatedPeople: []interfaces.RelatedPersonRef{
				{Name: "Wang", Relationship: "Mentor"},
			}},
			{ID: "b", Name: "Li", RelatedPeople: []interfaces.RelatedPersonRef{
				{Name: "Wang", Relationship: "Manager"},
				{Name: "Zhao", Relationship: "Friend"},
			}},
		}

		result, err := merger.MergeProfiles(ctx, profiles, "a")

		require.NoError(t, err)
		require.Len(t, result.Entity.RelatedPeople, 2)
		assert.Equal(t, "Mentor", result.Entity.RelatedPeople[0].Relationship)
		require.NoError(t, result.Entity.Validate())
	})

	t.Run("notes concatenate in input order, empties skipped", func(t *testing.T) {
		oracle := &MockOracle{}
		oracle.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(`{}`, nil)
		merger := newTestMerger(oracle)

		profiles := []interfaces.ContactEntity{
			{ID: "a", Name: "Li", Notes: "first"},
			{ID: "b", Name: "Li", Notes: ""},
			{ID: "c", Name: "Li", Notes: "third"},
		}

		result, err := merger.MergeProfiles(ctx, profiles, "a")

		require.NoError(t, err)
		assert.Equal(t, "first\n\nthird", result.Entity.Notes)
	})

	t.Run("fails closed when the oracle call errors", func(t *testing.T) {
		oracle := &MockOracle{}
		oracle.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))
		merger := newTestMerger(oracle)

		profiles := []interfaces.ContactEntity{
			{ID: "a", Name: "Li", Tags: []string{"x"}},
			{ID: "b", Name: "Wang"},
		}

		result, err := merger.MergeProfiles(ctx, profiles, "a")

		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Contains(t, result.Reason, "oracle call failed")
		assert.Equal(t, profiles[0], result.Entity)
	})

	t.Run("fails closed on unparseable oracle output", func(t *testing.T) {
		oracle := &MockOracle{}
		oracle.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("not json at all", nil)
		merger := newTestMerger(oracle)

		profiles := []interfaces.ContactEntity{
			{ID: "a", Name: "Li"},
			{ID: "b", Name: "Wang"},
		}

		result, err := merger.MergeProfiles(ctx, profiles, "a")

		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, profiles[0], result.Entity)
	})

	t.Run("merge then re-merge of the result is the identity", func(t *testing.T) {
		oracle := &MockOracle{}
		oracle.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(`{}`, nil)
		merger := newTestMerger(oracle)

		profiles := []interfaces.ContactEntity{
			{ID: "a", Name: "Li", Tags: []string{"x"}, Notes: "n"},
			{ID: "b", Name: "Li", Tags: []string{"y"}},
		}

		first, err := merger.MergeProfiles(ctx, profiles, "a")
		require.NoError(t, err)
		require.True(t, first.Applied)

		second, err := merger.MergeProfiles(ctx, []interfaces.ContactEntity{first.Entity}, "a")
		require.NoError(t, err)
		assert.True(t, second.Applied)
		assert.Equal(t, first.Entity, second.Entity)
	})
}
