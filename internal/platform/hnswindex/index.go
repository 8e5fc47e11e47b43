// Package hnswindex is an in-process vectorindex.VectorStore backed by a
// coder/hnsw graph per namespace. It is used for local runs and tests when no
// hosted index is configured.
package hnswindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/vecmath"
	"github.com/yungbote/neurobridge-assistant/internal/platform/vectorindex"
)

type Config struct {
	Dimensions int
	M          int
	EfSearch   int
	// ExactScanBelow is the namespace size under which queries skip the
	// graph and scan every record. Negative always uses the graph.
	ExactScanBelow int
}

type record struct {
	key      uint64
	values   []float32
	metadata map[string]any
}

type namespace struct {
	graph   *hnsw.Graph[uint64]
	records map[string]*record
	keys    map[uint64]string
	nextKey uint64
}

type Index struct {
	mu  sync.RWMutex
	cfg Config
	ns  map[string]*namespace
}

var _ vectorindex.VectorStore = (*Index)(nil)

func New(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("hnswindex: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}
	if cfg.ExactScanBelow == 0 {
		cfg.ExactScanBelow = 2048
	}
	return &Index{cfg: cfg, ns: map[string]*namespace{}}, nil
}

func (x *Index) namespace(name string, create bool) *namespace {
	name = strings.TrimSpace(name)
	if n, ok := x.ns[name]; ok || !create {
		return n
	}
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = x.cfg.M
	g.EfSearch = x.cfg.EfSearch
	g.Ml = 0.25
	n := &namespace{graph: g, records: map[string]*record{}, keys: map[uint64]string{}}
	x.ns[name] = n
	return n
}

// Upsert replaces existing ids. Replaced and deleted graph nodes are
// orphaned rather than removed; the key maps hide them from results.
func (x *Index) Upsert(ctx context.Context, ns string, vectors []vectorindex.Vector) error {
	for _, v := range vectors {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("hnswindex: vector id is required")
		}
		if len(v.Values) != x.cfg.Dimensions {
			return fmt.Errorf("hnswindex: vector %q dimension mismatch: expected=%d got=%d", v.ID, x.cfg.Dimensions, len(v.Values))
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	n := x.namespace(ns, true)
	for _, v := range vectors {
		if old, ok := n.records[v.ID]; ok {
			delete(n.keys, old.key)
		}
		key := n.nextKey
		n.nextKey++
		vec := vecmath.Normalize(v.Values)
		n.graph.Add(hnsw.MakeNode(key, vec))
		meta := make(map[string]any, len(v.Metadata))
		for k, val := range v.Metadata {
			meta[k] = val
		}
		n.records[v.ID] = &record{key: key, values: vec, metadata: meta}
		n.keys[key] = v.ID
	}
	return nil
}

func (x *Index) QueryMatches(ctx context.Context, ns string, q []float32, topK int, filter map[string]any) ([]vectorindex.VectorMatch, error) {
	if topK <= 0 {
		return []vectorindex.VectorMatch{}, nil
	}
	if len(q) != x.cfg.Dimensions {
		return nil, fmt.Errorf("hnswindex: query dimension mismatch: expected=%d got=%d", x.cfg.Dimensions, len(q))
	}
	pred, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := x.namespace(ns, false)
	if n == nil || len(n.records) == 0 {
		return []vectorindex.VectorMatch{}, nil
	}
	query := vecmath.Normalize(q)

	var cands []candidate
	switch {
	case pred != nil:
		// Filtered queries are scoped to one document, a small set.
		cands = x.scan(n, query, pred)
	case len(n.records) < x.cfg.ExactScanBelow:
		cands = x.scan(n, query, nil)
	default:
		// Orphaned nodes still occupy graph slots, so ask for enough to cover them.
		k := topK + n.graph.Len() - len(n.records)
		for _, node := range n.graph.Search(query, k) {
			id, ok := n.keys[node.Key]
			if !ok {
				continue
			}
			cands = append(cands, x.candidate(id, n.records[id], query))
		}
		sortCandidates(cands)
		// The graph returns an arbitrary subset of records tied at the
		// cut-off, and may come back short; rank those exactly.
		short := len(cands) < topK && len(cands) < len(n.records)
		if short || tiedAtBoundary(cands, topK) {
			cands = x.scan(n, query, nil)
		}
	}
	sortCandidates(cands)
	if len(cands) > topK {
		cands = cands[:topK]
	}
	out := make([]vectorindex.VectorMatch, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.match)
	}
	return out, nil
}

type candidate struct {
	match vectorindex.VectorMatch
	key   uint64
}

func (x *Index) scan(n *namespace, query []float32, pred func(map[string]any) bool) []candidate {
	out := make([]candidate, 0, len(n.records))
	for id, r := range n.records {
		if pred == nil || pred(r.metadata) {
			out = append(out, x.candidate(id, r, query))
		}
	}
	return out
}

func (x *Index) candidate(id string, r *record, query []float32) candidate {
	return candidate{match: x.match(id, r, query), key: r.key}
}

// sortCandidates orders by score desc, then by insertion key.
func sortCandidates(c []candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].match.Score != c[j].match.Score {
			return c[i].match.Score > c[j].match.Score
		}
		return c[i].key < c[j].key
	})
}

// tiedAtBoundary reports whether the topK-th candidate shares its score with
// a neighbour, so records the graph did not surface may belong in the cut.
func tiedAtBoundary(c []candidate, topK int) bool {
	if len(c) < topK || topK == 0 {
		return false
	}
	edge := c[topK-1].match.Score
	if topK >= 2 && c[topK-2].match.Score == edge {
		return true
	}
	return len(c) > topK && c[topK].match.Score == edge
}

func (x *Index) match(id string, r *record, query []float32) vectorindex.VectorMatch {
	meta := make(map[string]any, len(r.metadata))
	for k, v := range r.metadata {
		meta[k] = v
	}
	return vectorindex.VectorMatch{ID: id, Score: vecmath.Cosine(query, r.values), Metadata: meta}
}

func (x *Index) DeleteIDs(ctx context.Context, ns string, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := x.namespace(ns, false)
	if n == nil {
		return nil
	}
	for _, id := range ids {
		if r, ok := n.records[id]; ok {
			delete(n.keys, r.key)
			delete(n.records, id)
		}
	}
	return nil
}

func (x *Index) DeleteByDocument(ctx context.Context, ns string, documentID string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := x.namespace(ns, false)
	if n == nil {
		return 0, nil
	}
	prefix := vectorindex.DocumentPrefix(documentID)
	removed := 0
	for id, r := range n.records {
		if strings.HasPrefix(id, prefix) || r.metadata[vectorindex.MetaDocumentID] == documentID {
			delete(n.keys, r.key)
			delete(n.records, id)
			removed++
		}
	}
	return removed, nil
}

// Count reports live vectors in a namespace.
func (x *Index) Count(ns string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if n := x.namespace(ns, false); n != nil {
		return len(n.records)
	}
	return 0
}

// compileFilter supports the equality subset the assistant issues:
// {"field": value} and {"field": {"$eq": value}} / {"$in": [...]}.
func compileFilter(filter map[string]any) (func(map[string]any) bool, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	type clause struct {
		field string
		any   []any
	}
	var clauses []clause
	for field, raw := range filter {
		ops, ok := raw.(map[string]any)
		if !ok {
			clauses = append(clauses, clause{field: field, any: []any{raw}})
			continue
		}
		for op, val := range ops {
			switch op {
			case "$eq":
				clauses = append(clauses, clause{field: field, any: []any{val}})
			case "$in":
				switch vs := val.(type) {
				case []any:
					clauses = append(clauses, clause{field: field, any: vs})
				case []string:
					c := clause{field: field}
					for _, s := range vs {
						c.any = append(c.any, s)
					}
					clauses = append(clauses, c)
				default:
					return nil, fmt.Errorf("hnswindex: $in for %q expects an array", field)
				}
			default:
				return nil, fmt.Errorf("hnswindex: unsupported filter operator %q", op)
			}
		}
	}
	return func(meta map[string]any) bool {
		for _, c := range clauses {
			got, ok := meta[c.field]
			if !ok {
				return false
			}
			hit := false
			for _, want := range c.any {
				if fmt.Sprint(got) == fmt.Sprint(want) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
		return true
	}, nil
}
