package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/newsdex/internal/db"
)

func newsIndex(t *testing.T) *db.IndexDefinition {
	t.Helper()
	def, err := db.NewIndex(tfidfIndex).
		Prefix(tfidfPrefix).
		Tag("section").
		MultiTag("keywords").
		Vector("vector", 384, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return def
}

func TestCreateArgs(t *testing.T) {
	got := strings.Join(createArgs(newsIndex(t)), " ")
	want := tfidfIndex + " ON HASH PREFIX 1 " + tfidfPrefix + " SCHEMA" +
		" section TAG keywords TAG SEPARATOR |" +
		" __vector AS vector VECTOR HNSW 10 TYPE FLOAT32 DIM 384 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200"
	if got != want {
		t.Errorf("createArgs:\n got %s\nwant %s", got, want)
	}
}

func TestCreateIndex(t *testing.T) {
	tests := []struct {
		name   string
		result rueidis.RedisResult
		check  func(error) bool
	}{
		{"created", mock.Result(mock.RedisString("OK")),
			func(err error) bool { return err == nil }},
		{"already exists", mock.Result(mock.RedisError("Index already exists")),
			func(err error) bool { return errors.Is(err, db.ErrIndexExists) }},
		{"transport failure", mock.ErrorResult(context.DeadlineExceeded),
			func(err error) bool { return isDBError(err, db.OpCreateIndex) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t, FlavorValkey)
			c.EXPECT().Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "FT.CREATE" && cmd[1] == tfidfIndex
			})).Return(tt.result)

			if err := s.CreateIndex(context.Background(), newsIndex(t)); !tt.check(err) {
				t.Errorf("unexpected result: %v", err)
			}
		})
	}
}

func TestCreateIndex_InvalidDefinitionNeverReachesServer(t *testing.T) {
	s, _ := newMockStore(t, FlavorRedis)
	err := s.CreateIndex(context.Background(), &db.IndexDefinition{Name: tfidfIndex})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDropIndex(t *testing.T) {
	s, c := newMockStore(t, FlavorRedis)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", tfidfIndex)).
			Return(mock.Result(mock.RedisString("OK"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", tfidfIndex)).
			Return(mock.Result(mock.RedisError("Unknown Index name"))),
	)
	ctx := context.Background()

	if err := s.DropIndex(ctx, tfidfIndex); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.DropIndex(ctx, tfidfIndex); !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	s, c := newMockStore(t, FlavorRedis)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", tfidfIndex)).
			Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString(tfidfIndex)))),
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", tfidfIndex)).
			Return(mock.Result(mock.RedisError("Unknown Index name"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", tfidfIndex)).
			Return(mock.ErrorResult(context.Canceled)),
	)
	ctx := context.Background()

	if ok, err := s.IndexExists(ctx, tfidfIndex); err != nil || !ok {
		t.Errorf("expected true, nil; got %v, %v", ok, err)
	}
	if ok, err := s.IndexExists(ctx, tfidfIndex); err != nil || ok {
		t.Errorf("expected false, nil; got %v, %v", ok, err)
	}
	if _, err := s.IndexExists(ctx, tfidfIndex); !isDBError(err, db.OpIndexInfo) {
		t.Errorf("expected db.Error{FT.INFO}, got %v", err)
	}
}
