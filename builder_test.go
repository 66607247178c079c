package seekly_test

import (
	"testing"

	"github.com/samber/lo"
	seekly "github.com/seekly/seekly-go"
	"github.com/seekly/seekly-go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	t.Run("two search variants rejected before compilation", func(t *testing.T) {
		_, err := seekly.Collection("Article").
			About("climate change").
			Match("warming").
			Query()
		require.Error(t, err)
		assert.Equal(t, errors.Config, errors.Extract(err).Code)
	})
	t.Run("rerank without search rejected", func(t *testing.T) {
		_, err := seekly.Collection("Article").
			Rerank("most relevant", "title").
			Query()
		require.Error(t, err)
		assert.Equal(t, errors.Config, errors.Extract(err).Code)
	})
	t.Run("spellCheck without search rejected", func(t *testing.T) {
		_, err := seekly.Collection("Article").SpellCheck().Query()
		require.Error(t, err)
		assert.Equal(t, errors.Config, errors.Extract(err).Code)
	})
	t.Run("spellCheck with vector search rejected", func(t *testing.T) {
		_, err := seekly.Collection("Article").
			Similar("rec-1").
			SpellCheck().
			Query()
		require.Error(t, err)
		assert.Equal(t, errors.Config, errors.Extract(err).Code)
	})
	t.Run("rerank with groupBy rejected", func(t *testing.T) {
		_, err := seekly.Collection("Article").
			About("climate change").
			GroupBy("author", 10).
			Rerank("most relevant", "title").
			Query()
		require.Error(t, err)
		assert.Equal(t, errors.Config, errors.Extract(err).Code)
	})
	t.Run("negative limit rejected", func(t *testing.T) {
		_, err := seekly.Collection("Article").Limit(-1).Query()
		require.Error(t, err)
	})
	t.Run("negative offset rejected", func(t *testing.T) {
		_, err := seekly.Collection("Article").Offset(-5).Query()
		require.Error(t, err)
	})
	t.Run("offset without limit is legal", func(t *testing.T) {
		q, err := seekly.Collection("Article").Offset(40).Query()
		require.NoError(t, err)
		assert.Nil(t, q.Limit)
		assert.Equal(t, 40, *q.Offset)
	})
	t.Run("empty collection rejected", func(t *testing.T) {
		_, err := seekly.Collection("").Select("id").Query()
		require.Error(t, err)
		assert.Equal(t, errors.Config, errors.Extract(err).Code)
	})
	t.Run("malformed select path rejected", func(t *testing.T) {
		_, err := seekly.Collection("Article").Select("a..b").Query()
		require.Error(t, err)
	})
	t.Run("first error sticks through the chain", func(t *testing.T) {
		_, err := seekly.Collection("Article").
			Limit(-1).
			About("x").
			Match("y").
			Query()
		require.Error(t, err)
		assert.Contains(t, errors.Extract(err).Messages[0], "limit")
	})
	t.Run("chaining never mutates the receiver", func(t *testing.T) {
		base := seekly.Collection("Article").Select("id", "title").About("climate change", 0.7)
		_ = base.Limit(10).GroupBy("author", 5)
		q, err := base.Query()
		require.NoError(t, err)
		assert.Nil(t, q.Limit)
		assert.Nil(t, q.GroupBy)
		assert.Len(t, q.Select, 2)
	})
	t.Run("template reuse overriding only limit leaves every other clause identical", func(t *testing.T) {
		base := seekly.Collection("Article").
			Select("id", "title", "details.word_count").
			Where(seekly.Equal("author", "smith")).
			About("climate change", 0.7).
			OrderBy("title", seekly.ASC).
			Limit(10)
		specialized := base.Limit(25)

		qa, err := base.Query()
		require.NoError(t, err)
		qb, err := specialized.Query()
		require.NoError(t, err)
		assert.Equal(t, 10, *qa.Limit)
		assert.Equal(t, 25, *qb.Limit)

		qb.Limit = lo.ToPtr(*qa.Limit)
		reqA, err := seekly.Compile(qa)
		require.NoError(t, err)
		reqB, err := seekly.Compile(qb)
		require.NoError(t, err)
		assert.Equal(t, reqA.Bytes(), reqB.Bytes())
	})
	t.Run("repeated where clauses join with and", func(t *testing.T) {
		q, err := seekly.Collection("Article").
			Where(seekly.Equal("author", "smith")).
			Where(seekly.GreaterThan("views", 10)).
			Query()
		require.NoError(t, err)
		assert.Equal(t, seekly.ConnectorAnd, q.Filter.Connector)
		assert.Len(t, q.Filter.Clauses, 2)
	})
	t.Run("generate directives are mutually exclusive", func(t *testing.T) {
		_, err := seekly.Collection("Article").
			About("climate change").
			GenerateFromOne("Summarize {{ .title }}").
			Ask("what changed").
			Query()
		require.Error(t, err)
	})
	t.Run("fromOne requires prompt or messages", func(t *testing.T) {
		_, err := seekly.Collection("Article").
			About("climate change").
			GenerateFromOne("").
			Query()
		require.Error(t, err)
	})
	t.Run("aggregation with generate rejected", func(t *testing.T) {
		_, err := seekly.Collection("Article").
			About("climate change").
			GenerateFromMany("summarize", []string{"title"}).
			AggregateBy(seekly.Aggregate{Function: seekly.AggregateCount, Field: "id"}).
			Query()
		require.Error(t, err)
	})
	t.Run("unbound builder cannot execute", func(t *testing.T) {
		_, err := seekly.Collection("Article").Select("id").Execute(nil)
		require.Error(t, err)
		assert.Equal(t, errors.Config, errors.Extract(err).Code)
	})
}
