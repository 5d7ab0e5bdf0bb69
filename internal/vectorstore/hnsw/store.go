// Package hnsw is an embedded vector store backed by an in-process HNSW graph
// per collection. Graphs are exported to disk next to a JSON payload sidecar.
package hnsw

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

const (
	graphExt   = ".graph"
	sidecarExt = ".json"
)

// Config holds graph parameters and the data directory.
type Config struct {
	Dir      string `yaml:"dir"`
	M        int    `yaml:"m"`
	EfSearch int    `yaml:"ef_search"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.M == 0 {
		c.M = 16
	}
	if c.EfSearch == 0 {
		c.EfSearch = 64
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("hnsw: dir is required")
	}
	if c.M < 2 {
		return fmt.Errorf("hnsw: m must be >= 2, got %d", c.M)
	}
	if c.EfSearch <= 0 {
		return fmt.Errorf("hnsw: ef_search must be positive, got %d", c.EfSearch)
	}
	return nil
}

type collection struct {
	dim       int
	createdAt time.Time
	graph     *hnsw.Graph[uint64]
	// ids maps article IDs to their live graph key. Overwritten keys stay in
	// the graph as orphans and are skipped on search until the graph is
	// rebuilt, once orphans outnumber live nodes.
	ids     map[string]uint64
	keys    map[uint64]string
	next    uint64
	records map[string]record.Record
}

func (c *collection) orphans() int {
	return c.graph.Len() - len(c.keys)
}

// Store implements vectorstore.Store on top of coder/hnsw.
type Store struct {
	cfg    Config
	logger *zap.Logger

	mu          sync.RWMutex
	collections map[string]*collection
	closed      bool
}

// Open loads every collection found in cfg.Dir, creating the directory if needed.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{cfg: cfg, logger: logger, collections: make(map[string]*collection)}

	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), sidecarExt)
		if e.IsDir() || !ok {
			continue
		}
		c, err := s.load(name)
		if err != nil {
			return nil, fmt.Errorf("load collection %s: %w", name, err)
		}
		s.collections[name] = c
	}

	logger.Info("hnsw store opened",
		zap.String("dir", cfg.Dir),
		zap.Int("collections", len(s.collections)),
	)
	return s, nil
}

func (s *Store) newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = s.cfg.M
	g.EfSearch = s.cfg.EfSearch
	g.Ml = 0.25
	return g
}

// EnsureCollection creates and persists an empty collection if missing.
func (s *Store) EnsureCollection(_ context.Context, name string, dim int) error {
	if err := vectorstore.ValidateName(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStoreClosed
	}
	if c, ok := s.collections[name]; ok {
		if c.dim != dim {
			return domain.NewDimensionMismatch(name, c.dim, dim)
		}
		return nil
	}

	c := &collection{
		dim:       dim,
		createdAt: time.Now().UTC(),
		graph:     s.newGraph(),
		ids:       make(map[string]uint64),
		keys:      make(map[uint64]string),
		records:   make(map[string]record.Record),
	}
	if err := s.save(name, c); err != nil {
		return err
	}
	s.collections[name] = c
	return nil
}

// Upsert adds the batch to the graph and persists the collection.
func (s *Store) Upsert(_ context.Context, name string, records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(name)
	if err != nil {
		return err
	}
	if err := vectorstore.CheckRecords(name, c.dim, records); err != nil {
		return err
	}

	for _, r := range records {
		r.Vector = slices.Clone(r.Vector)
		c.add(r)
	}
	if orphans := c.orphans(); orphans > len(c.keys) {
		s.logger.Debug("compacting hnsw graph",
			zap.String("collection", name),
			zap.Int("orphans", orphans),
			zap.Int("live", len(c.keys)),
		)
		c.rebuild(s.newGraph())
	}
	return s.save(name, c)
}

func (c *collection) add(r record.Record) {
	if old, ok := c.ids[r.ID]; ok {
		// coder/hnsw breaks when the last node is deleted, so the old node is orphaned instead
		delete(c.keys, old)
		delete(c.ids, r.ID)
	}
	c.records[r.ID] = r
	if isZero(r.Vector) {
		// cosine distance is undefined for a zero vector; reachable through filtered search only
		return
	}
	key := c.next
	c.next++
	c.graph.Add(hnsw.MakeNode(key, r.Vector))
	c.ids[r.ID] = key
	c.keys[key] = r.ID
}

// Search walks the graph for unfiltered queries and scans exactly when a payload filter is set.
func (s *Store) Search(_ context.Context, q vectorstore.SearchQuery) ([]vectorstore.Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(q.Collection)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != c.dim {
		return nil, domain.NewDimensionMismatch(q.Collection, c.dim, len(q.Vector))
	}

	var hits []vectorstore.Hit
	if q.Filters.IsEmpty() {
		hits = c.approximate(q.Vector, q.TopK)
	} else {
		hits = c.exact(q)
	}
	vectorstore.SortHits(hits)
	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}
	return hits, nil
}

func (c *collection) approximate(vec []float32, topK int) []vectorstore.Hit {
	if c.graph.Len() == 0 || isZero(vec) {
		return nil
	}
	k := min(topK+c.orphans(), c.graph.Len())
	nodes := c.graph.Search(vec, k)

	hits := make([]vectorstore.Hit, 0, len(nodes))
	for _, n := range nodes {
		id, ok := c.keys[n.Key]
		if !ok {
			continue
		}
		r := c.records[id]
		hits = append(hits, vectorstore.Hit{ID: id, Score: vectorstore.Cosine(vec, r.Vector), Payload: r.Payload})
	}
	return hits
}

func (c *collection) exact(q vectorstore.SearchQuery) []vectorstore.Hit {
	var hits []vectorstore.Hit
	for id, r := range c.records {
		if !q.Filters.Matches(r.Payload.Values) {
			continue
		}
		hits = append(hits, vectorstore.Hit{ID: id, Score: vectorstore.Cosine(q.Vector, r.Vector), Payload: r.Payload})
	}
	return hits
}

// Scan returns matching payloads ordered by ID.
func (s *Store) Scan(_ context.Context, q vectorstore.ScanQuery) ([]vectorstore.Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(q.Collection)
	if err != nil {
		return nil, err
	}

	var hits []vectorstore.Hit
	for _, id := range c.sortedIDs() {
		r := c.records[id]
		if !q.Filters.Matches(r.Payload.Values) {
			continue
		}
		hits = append(hits, vectorstore.Hit{ID: id, Payload: r.Payload})
		if q.Limit > 0 && len(hits) == q.Limit {
			break
		}
	}
	return hits, nil
}

// Get returns a copy of a stored record.
func (s *Store) Get(_ context.Context, name, id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(name)
	if err != nil {
		return record.Record{}, err
	}
	r, ok := c.records[id]
	if !ok {
		return record.Record{}, fmt.Errorf("record %s in %s: %w", id, name, domain.ErrNotFound)
	}
	r.Vector = slices.Clone(r.Vector)
	return r, nil
}

// CollectionInfo reports dimension and live record count.
func (s *Store) CollectionInfo(_ context.Context, name string) (vectorstore.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(name)
	if err != nil {
		return vectorstore.CollectionInfo{}, err
	}
	return vectorstore.NewCollectionInfo(name, c.dim, len(c.records)), nil
}

// ListCollections returns names sorted by creation time, then name.
func (s *Store) ListCollections(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed
	}
	names := make([]string, 0, len(s.collections))
	for n := range s.collections {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.collections[names[i]].createdAt, s.collections[names[j]].createdAt
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return names[i] < names[j]
	})
	return names, nil
}

// DeleteCollection removes the collection and its files.
func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(name); err != nil {
		return err
	}
	// sidecar first: a collection without a sidecar is not loaded on the next Open
	var errs []error
	for _, p := range []string{s.sidecarPath(name), s.graphPath(name)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	delete(s.collections, name)
	return nil
}

// Ping checks the data directory is still reachable.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errStoreClosed
	}
	if _, err := os.Stat(s.cfg.Dir); err != nil {
		return fmt.Errorf("hnsw data dir: %w", err)
	}
	return nil
}

// Close releases the in-memory graphs. Data is already on disk after every write.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.collections = nil
	return nil
}

var errStoreClosed = errors.New("hnsw store is closed")

// get must be called with s.mu held.
func (s *Store) get(name string) (*collection, error) {
	if s.closed {
		return nil, errStoreClosed
	}
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	return c, nil
}

func (c *collection) sortedIDs() []string {
	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func (s *Store) graphPath(name string) string {
	return filepath.Join(s.cfg.Dir, name+graphExt)
}

func (s *Store) sidecarPath(name string) string {
	return filepath.Join(s.cfg.Dir, name+sidecarExt)
}

// sidecar is the JSON document persisted next to the exported graph.
type sidecar struct {
	Name      string            `json:"name"`
	Dimension int               `json:"dimension"`
	CreatedAt time.Time         `json:"created_at"`
	NextKey   uint64            `json:"next_key"`
	Keys      map[string]uint64 `json:"keys"`
	Records   []storedRecord    `json:"records"`
}

type storedRecord struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// save writes the graph, then the sidecar. Both go through a temp file and rename.
func (s *Store) save(name string, c *collection) error {
	if c.graph.Len() > 0 {
		if err := writeAtomic(s.graphPath(name), func(f *os.File) error {
			return c.graph.Export(f)
		}); err != nil {
			return fmt.Errorf("export graph %s: %w", name, err)
		}
	}

	sc := sidecar{
		Name:      name,
		Dimension: c.dim,
		CreatedAt: c.createdAt,
		NextKey:   c.next,
		Keys:      c.ids,
		Records:   make([]storedRecord, 0, len(c.records)),
	}
	for _, id := range c.sortedIDs() {
		r := c.records[id]
		sc.Records = append(sc.Records, storedRecord{ID: id, Vector: r.Vector, Payload: r.Payload.Fields()})
	}
	if err := writeAtomic(s.sidecarPath(name), func(f *os.File) error {
		return json.NewEncoder(f).Encode(sc)
	}); err != nil {
		return fmt.Errorf("write sidecar %s: %w", name, err)
	}
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path built from a validated collection name
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *Store) load(name string) (*collection, error) {
	raw, err := os.ReadFile(s.sidecarPath(name))
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}

	c := &collection{
		dim:       sc.Dimension,
		createdAt: sc.CreatedAt,
		graph:     s.newGraph(),
		ids:       make(map[string]uint64, len(sc.Keys)),
		keys:      make(map[uint64]string, len(sc.Keys)),
		next:      sc.NextKey,
		records:   make(map[string]record.Record, len(sc.Records)),
	}
	for _, sr := range sc.Records {
		p, err := record.FromFields(sr.Payload)
		if err != nil {
			return nil, err
		}
		c.records[sr.ID] = record.Record{ID: sr.ID, Vector: sr.Vector, Payload: p}
	}
	for id, key := range sc.Keys {
		c.ids[id] = key
		c.keys[key] = id
	}

	if len(c.ids) == 0 {
		return c, nil
	}
	if err := s.importGraph(name, c.graph); err != nil {
		s.logger.Warn("graph import failed, rebuilding from sidecar",
			zap.String("collection", name),
			zap.Error(err),
		)
		c.rebuild(s.newGraph())
	}
	return c, nil
}

func (s *Store) importGraph(name string, g *hnsw.Graph[uint64]) error {
	f, err := os.Open(s.graphPath(name))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	// Import reads through an io.ByteReader
	return g.Import(bufio.NewReader(f))
}

// rebuild re-adds live records to a fresh graph, dropping orphans.
func (c *collection) rebuild(g *hnsw.Graph[uint64]) {
	c.graph = g
	c.ids = make(map[string]uint64, len(c.records))
	c.keys = make(map[uint64]string, len(c.records))
	c.next = 0
	for _, id := range c.sortedIDs() {
		c.add(c.records[id])
	}
}
