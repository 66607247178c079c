package seekly_test

import (
	"testing"

	seekly "github.com/seekly/seekly-go"
	"github.com/seekly/seekly-go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("nested paths expand into a selection tree", func(t *testing.T) {
		q, err := seekly.Collection("Product").
			Select("details.dimensions.width", "details.dimensions.height", "id").
			Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)

		require.Len(t, req.Selection, 2)
		details := req.Selection[0]
		assert.Equal(t, "details", details.Field)
		require.Len(t, details.Children, 1)
		dimensions := details.Children[0]
		assert.Equal(t, "dimensions", dimensions.Field)
		require.Len(t, dimensions.Children, 2)
		assert.Equal(t, "width", dimensions.Children[0].Field)
		assert.Equal(t, "height", dimensions.Children[1].Field)
		assert.Equal(t, "id", req.Selection[1].Field)
	})
	t.Run("numeric segments compile to index nodes", func(t *testing.T) {
		q, err := seekly.Collection("Product").Select("a.b.0.c").Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)

		node := req.Selection[0]
		assert.Equal(t, "a", node.Field)
		node = node.Children[0]
		assert.Equal(t, "b", node.Field)
		node = node.Children[0]
		require.NotNil(t, node.Index)
		assert.Equal(t, 0, *node.Index)
		assert.Empty(t, node.Field)
		assert.Equal(t, "c", node.Children[0].Field)
	})
	t.Run("filter with search encodes pre-search filtering explicitly", func(t *testing.T) {
		q, err := seekly.Collection("Article").
			Where(seekly.Equal("author", "smith")).
			About("climate change").
			Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)
		assert.Equal(t, seekly.FilterStagePre, req.FilterStage)
	})
	t.Run("filter without search carries no stage marker", func(t *testing.T) {
		q, err := seekly.Collection("Article").Where(seekly.Equal("author", "smith")).Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)
		assert.Empty(t, req.FilterStage)
		require.NotNil(t, req.Filter)
	})
	t.Run("two search variants on a hand-built query rejected as internal invariant violation", func(t *testing.T) {
		q := seekly.Query{
			Collection: "Article",
			Search: &seekly.Search{
				Kind:  seekly.KindAbout,
				About: &seekly.AboutSearch{Concept: "x"},
				Match: &seekly.MatchSearch{Text: "y"},
			},
		}
		_, err := seekly.Compile(q)
		require.Error(t, err)
		assert.Equal(t, errors.Internal, errors.Extract(err).Code)
	})
	t.Run("compiling the same clause model twice is byte-identical", func(t *testing.T) {
		q, err := seekly.Collection("Article").
			Select("id", "title").
			Where(seekly.And(seekly.Equal("author", "smith"), seekly.GreaterThan("views", 10))).
			Find("warming", 0.6, seekly.WithFusion(seekly.FusionRanked), seekly.WithPropertyWeights(map[string]float64{"title": 2, "text": 1})).
			OrderBy("title", seekly.ASC).
			Limit(5).
			Query()
		require.NoError(t, err)
		first, err := seekly.Compile(q)
		require.NoError(t, err)
		second, err := seekly.Compile(q)
		require.NoError(t, err)
		assert.Equal(t, first.Bytes(), second.Bytes())
	})
	t.Run("fromOne template shape marks server-side substitution", func(t *testing.T) {
		q, err := seekly.Collection("Article").
			About("climate change").
			GenerateFromOne("Summarize {{ .title }}").
			Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)
		require.NotNil(t, req.Generate)
		assert.Equal(t, seekly.KindFromOne, req.Generate.Kind)
		assert.Equal(t, seekly.SubstitutionServer, req.Generate.Substitution)
		assert.Equal(t, "Summarize {{ .title }}", req.Generate.Prompt)
	})
	t.Run("fromOne messages shape passes through verbatim for the client", func(t *testing.T) {
		messages := []seekly.Message{
			{Role: "system", Content: "you summarize documents"},
			{Role: "user", Content: "summarize this record"},
		}
		q, err := seekly.Collection("Article").
			About("climate change").
			GenerateFromOneMessages(messages).
			Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)
		assert.Equal(t, seekly.SubstitutionClient, req.Generate.Substitution)
		assert.Equal(t, messages, req.Generate.Messages)
		assert.Empty(t, req.Generate.Prompt)
	})
	t.Run("fromMany compiles to a single synthesis instruction with property restriction", func(t *testing.T) {
		q, err := seekly.Collection("Article").
			About("climate change").
			GenerateFromMany("summarize the findings", []string{"title", "text"}).
			Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)
		assert.Equal(t, seekly.KindFromMany, req.Generate.Kind)
		assert.Equal(t, "summarize the findings", req.Generate.Task)
		assert.Equal(t, []string{"title", "text"}, req.Generate.Properties)
	})
	t.Run("aggregation compiles to an aggregate request", func(t *testing.T) {
		q, err := seekly.Collection("Article").
			GroupBy("author", 20).
			AggregateBy(
				seekly.Aggregate{Function: seekly.AggregateCount, Field: "id"},
				seekly.Aggregate{Function: seekly.AggregateAvg, Field: "details.word_count"},
			).
			Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)
		assert.Equal(t, seekly.RequestAggregate, req.Kind)
		assert.Len(t, req.Aggregates, 2)
	})
	t.Run("collection name is canonicalized", func(t *testing.T) {
		q, err := seekly.Collection("article").Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)
		assert.Equal(t, "Article", req.Collection)
	})
	t.Run("batch compiles to the strategy the transport supports", func(t *testing.T) {
		qa, err := seekly.Collection("Article").Select("id").Query()
		require.NoError(t, err)
		qb, err := seekly.Collection("Product").Select("id").Query()
		require.NoError(t, err)

		multiplexed, err := seekly.CompileBatch([]seekly.Query{qa, qb}, true)
		require.NoError(t, err)
		assert.Equal(t, seekly.BatchMultiplexed, multiplexed.Strategy)
		assert.Len(t, multiplexed.Requests, 2)

		independent, err := seekly.CompileBatch([]seekly.Query{qa, qb}, false)
		require.NoError(t, err)
		assert.Equal(t, seekly.BatchIndependent, independent.Strategy)
	})
	t.Run("concrete scenario compiles as expected", func(t *testing.T) {
		q, err := seekly.Collection("TextDocument").
			About("climate change", 0.7).
			Select("id", "title", "text").
			Limit(5).
			Query()
		require.NoError(t, err)
		req, err := seekly.Compile(q)
		require.NoError(t, err)

		require.NotNil(t, req.Search)
		assert.Equal(t, seekly.KindAbout, req.Search.Kind)
		require.NotNil(t, req.Search.About.Certainty)
		assert.Equal(t, 0.7, *req.Search.About.Certainty)
		require.Len(t, req.Selection, 3)
		for _, node := range req.Selection {
			assert.Empty(t, node.Children)
		}
		require.NotNil(t, req.Limit)
		assert.Equal(t, 5, *req.Limit)
	})
}
