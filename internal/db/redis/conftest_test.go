package redis

import (
	"errors"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/newsdex/internal/db"
)

const (
	tfidfPrefix = "newsdex:news_tfidf:"
	tfidfIndex  = "newsdex:news_tfidf:idx"
)

func newMockStore(t *testing.T, flavor Flavor) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return &Store{client: c, flavor: flavor}, c
}

// command matches on the command name only.
func command(name string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool { return len(cmd) > 0 && cmd[0] == name })
}

func hasArg(cmd []string, want string) bool {
	for _, a := range cmd {
		if a == want {
			return true
		}
	}
	return false
}

func pairsToMap(pairs []rueidis.RedisMessage) map[string]rueidis.RedisMessage {
	m := make(map[string]rueidis.RedisMessage, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		k, _ := pairs[i].ToString()
		m[k] = pairs[i+1]
	}
	return m
}

func isDBError(err error, op string) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr) && dbErr.Op == op
}
