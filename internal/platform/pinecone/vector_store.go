package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/platform/vectorindex"
)

const (
	upsertBatchSize = 100
	listPageSize    = 100
	deleteBatchSize = 1000
)

type StoreConfig struct {
	IndexName       string
	IndexHost       string
	NamespacePrefix string
}

func StoreConfigFromEnv() StoreConfig {
	return StoreConfig{
		IndexName:       envutil.String("PINECONE_INDEX_NAME", ""),
		IndexHost:       envutil.String("PINECONE_INDEX_HOST", ""),
		NamespacePrefix: envutil.String("PINECONE_NAMESPACE_PREFIX", "nba"),
	}
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexHost string
	nsPrefix  string
}

func NewVectorStore(ctx context.Context, log *logger.Logger, pc Client, cfg StoreConfig) (vectorindex.VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	host := strings.TrimSpace(cfg.IndexHost)
	if host == "" {
		indexName := strings.TrimSpace(cfg.IndexName)
		if indexName == "" {
			return nil, fmt.Errorf("missing PINECONE_INDEX_NAME or PINECONE_INDEX_HOST")
		}
		// Resolving the host per boot costs a control-plane call; set PINECONE_INDEX_HOST in production.
		desc, err := pc.DescribeIndex(ctx, indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index",
			"index_name", indexName,
			"index_host", host,
		)
	}
	nsPrefix := strings.TrimSpace(cfg.NamespacePrefix)
	if nsPrefix == "" {
		nsPrefix = "nba"
	}
	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexHost: host,
		nsPrefix:  nsPrefix,
	}, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []vectorindex.Vector) error {
	ns := s.qualifyNamespace(namespace)
	for start := 0; start < len(vectors); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		if _, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{Namespace: ns, Vectors: vectors[start:end]}); err != nil {
			return fmt.Errorf("pinecone upsert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *vectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]vectorindex.VectorMatch, error) {
	if topK <= 0 {
		return []vectorindex.VectorMatch{}, nil
	}
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       s.qualifyNamespace(namespace),
		Vector:          q,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]vectorindex.VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, vectorindex.VectorMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	vectorindex.SortMatches(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *vectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	ns := s.qualifyNamespace(namespace)
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{Namespace: ns, IDs: ids[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByDocument lists the document's ids by prefix, then deletes them.
// Serverless indexes do not support delete-by-metadata, which is why ids
// carry the document prefix.
func (s *vectorStore) DeleteByDocument(ctx context.Context, namespace string, documentID string) (int, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return 0, fmt.Errorf("documentID required")
	}
	ns := s.qualifyNamespace(namespace)
	var ids []string
	token := ""
	for {
		page, err := s.pc.ListVectorIDs(ctx, s.indexHost, ListRequest{
			Namespace:       ns,
			Prefix:          vectorindex.DocumentPrefix(documentID),
			Limit:           listPageSize,
			PaginationToken: token,
		})
		if err != nil {
			return 0, fmt.Errorf("pinecone list ids: %w", err)
		}
		for _, v := range page.Vectors {
			if v.ID != "" {
				ids = append(ids, v.ID)
			}
		}
		if page.Pagination == nil || page.Pagination.Next == "" {
			break
		}
		token = page.Pagination.Next
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.DeleteIDs(ctx, namespace, ids); err != nil {
		return 0, err
	}
	s.log.Debug("deleted document vectors", "document_id", documentID, "count", len(ids))
	return len(ids), nil
}

func (s *vectorStore) qualifyNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + ns
}
