package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain/search/filter"
)

func expression(t *testing.T, must, should, mustNot [][2]string) filter.Expression {
	t.Helper()
	conds := func(pairs [][2]string) []filter.Condition {
		var out []filter.Condition
		for _, p := range pairs {
			c, err := filter.NewMatch(p[0], p[1])
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out = append(out, c)
		}
		return out
	}
	expr, err := filter.NewExpression(conds(must), conds(should), conds(mustNot))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return expr
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name                  string
		must, should, mustNot [][2]string
		want                  string
	}{
		{"empty", nil, nil, nil, ""},
		{"section", [][2]string{{"section", "Economía"}}, nil, nil, `@section:{Economía}`},
		{"date is escaped", [][2]string{{"published_at", "2024-11-18"}}, nil, nil, `@published_at:{2024\-11\-18}`},
		{"keywords any", nil, [][2]string{{"keywords", "inflacion"}, {"keywords", "banco central"}}, nil,
			`(@keywords:{inflacion} | @keywords:{banco\ central})`},
		{"exclude newspaper", nil, nil, [][2]string{{"newspaper", "El País"}}, `-@newspaper:{El\ País}`},
		{"combined",
			[][2]string{{"section", "Economía"}, {"published_at", "2024-11-18"}},
			[][2]string{{"keywords", "bce"}},
			[][2]string{{"newspaper", "ABC"}},
			`@section:{Economía} @published_at:{2024\-11\-18} (@keywords:{bce}) -@newspaper:{ABC}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildFilter(expression(t, tt.must, tt.should, tt.mustNot)); got != tt.want {
				t.Errorf("buildFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearchKNN(t *testing.T) {
	s, c := newMockStore(t, FlavorValkey)
	var got []string
	c.EXPECT().Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
		got = cmd
		return cmd[0] == "FT.SEARCH"
	})).Return(mock.Result(mock.RedisArray(
		mock.RedisInt64(2),
		mock.RedisString(tfidfPrefix+"a1"),
		mock.RedisArray(
			mock.RedisString("__vector_score"), mock.RedisString("0.1"),
			mock.RedisString("section"), mock.RedisString("Economía"),
		),
		mock.RedisString(tfidfPrefix+"a2"),
		mock.RedisArray(
			mock.RedisString("__vector_score"), mock.RedisString("0.6"),
			mock.RedisString("section"), mock.RedisString("Economía"),
		),
	)))

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    tfidfIndex,
		Filters:      expression(t, [][2]string{{"section", "Economía"}}, nil, nil),
		Vector:       []float32{0.6, 0.8},
		K:            5,
		ReturnFields: []string{"section"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[2] != "(@section:{Economía})=>[KNN 5 @vector $BLOB]" {
		t.Errorf("unexpected query: %q", got[2])
	}
	joined := strings.Join(got, " ")
	for _, want := range []string{"RETURN 2 section __vector_score", "LIMIT 0 5", "DIALECT 2"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in %v", want, got)
		}
	}

	if res.Total != 2 || len(res.Entries) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if math.Abs(res.Entries[0].Score-0.9) > 1e-9 || math.Abs(res.Entries[1].Score-0.4) > 1e-9 {
		t.Errorf("expected similarities 0.9, 0.4, got %f, %f", res.Entries[0].Score, res.Entries[1].Score)
	}
	if _, ok := res.Entries[0].Fields["__vector_score"]; ok {
		t.Error("distance field should be stripped from the payload")
	}
}

func TestSearchKNN_UnfilteredAndEmpty(t *testing.T) {
	s, c := newMockStore(t, FlavorRedis)
	c.EXPECT().Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
		return cmd[0] == "FT.SEARCH" && cmd[2] == "*=>[KNN 3 @vector $BLOB]"
	})).Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: tfidfIndex, Vector: []float32{1}, K: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(res.Entries))
	}
}

func TestSearchKNN_Errors(t *testing.T) {
	tests := []struct {
		name   string
		result rueidis.RedisResult
		check  func(error) bool
	}{
		{"missing index", mock.Result(mock.RedisError("news_dpr:idx: no such index")),
			func(err error) bool { return errors.Is(err, db.ErrIndexNotFound) }},
		{"transport", mock.ErrorResult(context.DeadlineExceeded),
			func(err error) bool { return isDBError(err, db.OpSearch) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t, FlavorRedis)
			c.EXPECT().Do(gomock.Any(), command("FT.SEARCH")).Return(tt.result)
			_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: tfidfIndex, Vector: []float32{1}, K: 1})
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()
	for name, q := range map[string]*db.KNNQuery{
		"no index":  {Vector: []float32{0.1}, K: 10},
		"no vector": {IndexName: tfidfIndex, K: 10},
		"zero k":    {IndexName: tfidfIndex, Vector: []float32{0.1}},
	} {
		if _, err := s.SearchKNN(ctx, q); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSearchFilter_Redis(t *testing.T) {
	s, c := newMockStore(t, FlavorRedis)
	var got []string
	c.EXPECT().Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
		got = cmd
		return cmd[0] == "FT.SEARCH"
	})).Return(mock.Result(mock.RedisArray(
		mock.RedisInt64(1),
		mock.RedisString(tfidfPrefix+"a1"),
		mock.RedisArray(mock.RedisString("section"), mock.RedisString("Economía")),
	)))

	res, err := s.SearchFilter(context.Background(), &db.FilterQuery{
		IndexName: tfidfIndex,
		Filters:   expression(t, [][2]string{{"section", "Economía"}}, nil, nil),
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Fields["section"] != "Economía" {
		t.Fatalf("unexpected entries: %+v", res.Entries)
	}
	if got[2] != "@section:{Economía}" || !hasArg(got, "50") {
		t.Errorf("unexpected command: %v", got)
	}
}

func TestSearchFilter_RedisWildcard(t *testing.T) {
	s, c := newMockStore(t, FlavorRedis)
	c.EXPECT().Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
		return cmd[0] == "FT.SEARCH" && cmd[2] == "*"
	})).Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	res, err := s.SearchFilter(context.Background(), &db.FilterQuery{IndexName: tfidfIndex, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(res.Entries))
	}
}

func TestSearchFilter_RedisPagesUnlimited(t *testing.T) {
	s, c := newMockStore(t, FlavorRedis)

	first := []rueidis.RedisMessage{mock.RedisInt64(ftPage + 1)}
	for i := range ftPage {
		first = append(first,
			mock.RedisString(fmt.Sprintf("%sa%04d", tfidfPrefix, i)),
			mock.RedisArray(mock.RedisString("section"), mock.RedisString("Economía")),
		)
	}
	page := func(offset string) gomock.Matcher {
		return mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[3] == "LIMIT" && cmd[4] == offset && cmd[5] == strconv.Itoa(ftPage)
		})
	}
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), page("0")).Return(mock.Result(mock.RedisArray(first...))),
		c.EXPECT().Do(gomock.Any(), page(strconv.Itoa(ftPage))).Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(ftPage+1),
			mock.RedisString(tfidfPrefix+"z"),
			mock.RedisArray(mock.RedisString("section"), mock.RedisString("Economía")),
		))),
	)

	res, err := s.SearchFilter(context.Background(), &db.FilterQuery{IndexName: tfidfIndex})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != ftPage+1 || res.Total != ftPage+1 {
		t.Fatalf("entries = %d total = %d, want %d", len(res.Entries), res.Total, ftPage+1)
	}
	if res.Entries[ftPage].Key != tfidfPrefix+"z" {
		t.Errorf("last entry = %s", res.Entries[ftPage].Key)
	}
}

func TestSearchFilter_ValkeyScansAndFilters(t *testing.T) {
	s, c := newMockStore(t, FlavorValkey)
	const bm25 = "newsdex:news_bm25:"
	c.EXPECT().Do(gomock.Any(), command("SCAN")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString("0"),
			mock.RedisArray(
				mock.RedisString(bm25+"b"),
				mock.RedisString(bm25+"a"),
				mock.RedisString(bm25+"c"),
			),
		)))

	hashes := map[string][]rueidis.RedisMessage{
		bm25 + "a": {mock.RedisString("keywords"), mock.RedisString("inflacion|precios")},
		bm25 + "b": {mock.RedisString("keywords"), mock.RedisString("elecciones")},
		bm25 + "c": {mock.RedisString("keywords"), mock.RedisString("precios")},
	}
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			out := make([]rueidis.RedisResult, len(cmds))
			for i, cmd := range cmds {
				out[i] = mock.Result(mock.RedisMap(pairsToMap(hashes[cmd.Commands()[1]])))
			}
			return out
		})

	res, err := s.SearchFilter(context.Background(), &db.FilterQuery{
		KeyPrefix: bm25,
		Filters:   expression(t, nil, [][2]string{{"keywords", "precios"}}, nil),
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Key != bm25+"a" || res.Entries[1].Key != bm25+"c" {
		t.Errorf("expected sorted keys a, c, got %s, %s", res.Entries[0].Key, res.Entries[1].Key)
	}
}

func TestSearchFilter_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := (&Store{flavor: FlavorRedis}).SearchFilter(ctx, &db.FilterQuery{IndexName: tfidfIndex, Limit: -1}); err == nil {
		t.Error("expected error for negative limit")
	}
	if _, err := (&Store{flavor: FlavorRedis}).SearchFilter(ctx, &db.FilterQuery{Limit: 1}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := (&Store{flavor: FlavorValkey}).SearchFilter(ctx, &db.FilterQuery{Limit: 1}); err == nil {
		t.Error("expected error for empty key prefix")
	}
}
