package service

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insightflow/hub/internal/tokenizer"
)

func TestTagAggregator_RecordTokens(t *testing.T) {
	t.Run("counts each token of a submission once", func(t *testing.T) {
		repo := newMemoryTagsRepo()
		agg := NewTagAggregator(repo, 2, nil)

		result := agg.RecordTokens(context.Background(), "t1", tokenizer.Tokens("Great staff, terrible prices!"))

		assert.Equal(t, TagResult{Recorded: 4}, result)

		for _, token := range []string{"great", "staff", "terrible", "prices"} {
			assert.Equal(t, int64(1), repo.total("t1", token), token)
		}
	})

	t.Run("repeated token increments by its occurrences", func(t *testing.T) {
		repo := newMemoryTagsRepo()
		agg := NewTagAggregator(repo, 0, nil)

		agg.RecordTokens(context.Background(), "t1", slices.Values([]string{"slow", "checkout", "slow"}))

		assert.Equal(t, int64(2), repo.total("t1", "slow"))
		assert.Equal(t, int64(1), repo.total("t1", "checkout"))
	})

	t.Run("failed token is skipped and siblings still recorded", func(t *testing.T) {
		repo := newMemoryTagsRepo()
		repo.failOn["staff"] = true
		agg := NewTagAggregator(repo, 4, nil)

		result := agg.RecordTokens(context.Background(), "t1", tokenizer.Tokens("Great staff, terrible prices!"))

		assert.Equal(t, TagResult{Recorded: 3, Failed: 1}, result)
		assert.Equal(t, int64(0), repo.total("t1", "staff"))
		assert.Equal(t, int64(1), repo.total("t1", "prices"))
	})

	t.Run("only stopwords records nothing", func(t *testing.T) {
		repo := newMemoryTagsRepo()

		result := NewTagAggregator(repo, 1, nil).RecordTokens(context.Background(), "t1", tokenizer.Tokens("it was the"))

		assert.Equal(t, TagResult{}, result)
	})

	t.Run("concurrent submissions sum exactly", func(t *testing.T) {
		const submissions = 50

		repo := newMemoryTagsRepo()
		agg := NewTagAggregator(repo, 3, nil)

		var wg sync.WaitGroup
		for range submissions {
			wg.Go(func() {
				agg.RecordTokens(context.Background(), "t1", tokenizer.Tokens("Checkout was slow"))
			})
		}

		wg.Wait()

		assert.Equal(t, int64(submissions), repo.total("t1", "checkout"))
		assert.Equal(t, int64(submissions), repo.total("t1", "slow"))
		assert.Equal(t, int64(0), repo.total("t2", "slow"))
	})
}
