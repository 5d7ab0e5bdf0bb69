package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain/search/filter"
)

// vectorScoreField is the synthetic distance field FT.SEARCH adds to KNN hits.
const vectorScoreField = "__vector_score"

// SearchKNN runs a KNN query, pre-filtered by q.Filters. Entry scores are
// cosine similarities (1 - distance).
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("vector is required")
	case q.K <= 0:
		return nil, errors.New("k must be positive")
	}

	pre := "*"
	if f := buildFilter(q.Filters); f != "" {
		pre = "(" + f + ")"
	}
	args := []string{q.IndexName, fmt.Sprintf("%s=>[KNN %d @vector $BLOB]", pre, q.K)}
	if len(q.ReturnFields) > 0 {
		args = appendReturn(args, append(q.ReturnFields[:len(q.ReturnFields):len(q.ReturnFields)], vectorScoreField))
	}
	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.VectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	res, err := s.ftSearch(ctx, args)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if d, err := strconv.ParseFloat(e.Fields[vectorScoreField], 64); err == nil {
			e.Score = 1 - d
		}
		delete(e.Fields, vectorScoreField)
	}
	return res, nil
}

// ftPage is the LIMIT of one FT.SEARCH page. Servers cap a single reply
// (MAXSEARCHRESULTS), so larger listings are paged.
const ftPage = 1000

// SearchFilter lists documents matching q.Filters, up to q.Limit when it is
// positive. Redis answers with paged FT.SEARCH. valkey-search only serves KNN
// queries, so the Valkey flavor walks q.KeyPrefix and filters in process, in
// key order.
func (s *Store) SearchFilter(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
	if q.Limit < 0 {
		return nil, errors.New("limit must not be negative")
	}
	if s.flavor == FlavorValkey {
		if q.KeyPrefix == "" {
			return nil, errors.New("key prefix is required")
		}
		return s.scanFilter(ctx, q)
	}
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}

	query := buildFilter(q.Filters)
	if query == "" {
		query = "*"
	}

	res := &db.SearchResult{}
	for offset := 0; ; {
		size := ftPage
		if q.Limit > 0 {
			size = min(size, q.Limit-len(res.Entries))
		}
		args := []string{q.IndexName, query, "LIMIT", strconv.Itoa(offset), strconv.Itoa(size)}
		if len(q.ReturnFields) > 0 {
			args = appendReturn(args, q.ReturnFields)
		}
		page, err := s.ftSearch(ctx, append(args, "DIALECT", "2"))
		if err != nil {
			return nil, err
		}
		res.Total = page.Total
		res.Entries = append(res.Entries, page.Entries...)
		offset += len(page.Entries)

		full := q.Limit > 0 && len(res.Entries) >= q.Limit
		if full || len(page.Entries) < size || offset >= page.Total {
			return res, nil
		}
	}
}

func appendReturn(args, fields []string) []string {
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	return append(args, fields...)
}

// ftSearch runs FT.SEARCH; args[0] is the index name.
func (s *Store) ftSearch(ctx context.Context, args []string) (*db.SearchResult, error) {
	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Key: args[0], Err: err}
	}
	return parseReply(raw)
}

func (s *Store) scanFilter(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
	keys, err := s.Scan(ctx, q.KeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan for filter: %w", err)
	}
	sort.Strings(keys)

	res := &db.SearchResult{}
	for len(keys) > 0 && (q.Limit <= 0 || len(res.Entries) < q.Limit) {
		chunk := keys[:min(scanCount, len(keys))]
		keys = keys[len(chunk):]

		hashes, err := s.HGetAllMulti(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for i, fields := range hashes {
			// deleted between SCAN and HGETALL
			if len(fields) == 0 || !q.Filters.Matches(tagValues(fields)) {
				continue
			}
			res.Entries = append(res.Entries, db.SearchEntry{Key: chunk[i], Fields: pick(fields, q.ReturnFields)})
			if len(res.Entries) == q.Limit {
				break
			}
		}
	}
	res.Total = len(res.Entries)
	return res, nil
}

func tagValues(fields map[string]string) func(string) []string {
	return func(key string) []string {
		if v := fields[key]; v != "" {
			return strings.Split(v, db.TagSeparator)
		}
		return nil
	}
}

func pick(fields map[string]string, names []string) map[string]string {
	if len(names) == 0 {
		return fields
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := fields[n]; ok {
			out[n] = v
		}
	}
	return out
}

// parseReply decodes [total, key1, [f, v, ...], key2, [...], ...].
// Malformed pairs are skipped.
func parseReply(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := make(map[string]string, len(pairs)/2)
		for j := 0; j+1 < len(pairs); j += 2 {
			name, nerr := pairs[j].ToString()
			value, verr := pairs[j+1].ToString()
			if nerr == nil && verr == nil {
				fields[name] = value
			}
		}
		res.Entries = append(res.Entries, db.SearchEntry{Key: key, Fields: fields})
	}
	return res, nil
}

// buildFilter renders an expression as an FT.SEARCH query:
// must clauses ANDed, should clauses in one OR group, must_not negated.
func buildFilter(expr filter.Expression) string {
	var parts []string
	for _, c := range expr.Must() {
		parts = append(parts, tagClause(c))
	}
	if should := expr.Should(); len(should) > 0 {
		alts := make([]string, len(should))
		for i, c := range should {
			alts[i] = tagClause(c)
		}
		parts = append(parts, "("+strings.Join(alts, " | ")+")")
	}
	for _, c := range expr.MustNot() {
		parts = append(parts, "-"+tagClause(c))
	}
	return strings.Join(parts, " ")
}

func tagClause(c filter.Condition) string {
	return "@" + c.Key() + ":{" + escapeTag(c.Match()) + "}"
}

// tagSpecial are the characters that must be backslash-escaped inside a TAG value.
const tagSpecial = ",.<>{}\"':;!@#$%^&*()-+=~| "

func escapeTag(v string) string {
	if !strings.ContainsAny(v, tagSpecial) {
		return v
	}
	var b strings.Builder
	for _, r := range v {
		if strings.ContainsRune(tagSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
