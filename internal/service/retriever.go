// Package service 实现了问答编排的核心业务逻辑。
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"rehber-go/internal/config"
	"rehber-go/pkg/embedding"
	"rehber-go/pkg/es"
	"rehber-go/pkg/log"
)

const (
	retrieveK             = 6
	retrieveNumCandidates = 30
)

// Retriever 按租户画像作用域从向量索引召回相关片段，
// 返回拼接后的上下文文本；没有命中时返回空字符串。
type Retriever interface {
	Retrieve(ctx context.Context, tenantID, profileKey, collection, query string) (string, error)
}

type scopedHandle struct {
	tenantID   string
	profileKey string
	collection string
}

type retrieverService struct {
	embedder  embedding.Client
	indexName string

	mu      sync.RWMutex
	handles map[string]*scopedHandle
}

// NewRetriever 创建一个基于 Elasticsearch kNN 检索的 Retriever。
func NewRetriever(embedder embedding.Client) Retriever {
	return &retrieverService{
		embedder:  embedder,
		indexName: config.Conf.Elasticsearch.IndexName,
		handles:   make(map[string]*scopedHandle),
	}
}

// handle 返回作用域对应的检索句柄，双重检查避免重复构建。
func (s *retrieverService) handle(tenantID, profileKey, collection string) *scopedHandle {
	key := tenantID + "|" + profileKey
	s.mu.RLock()
	h, ok := s.handles[key]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[key]; ok {
		return h
	}
	h = &scopedHandle{tenantID: tenantID, profileKey: profileKey, collection: collection}
	s.handles[key] = h
	log.Infof("初始化检索句柄: tenant=%s profile=%s collection=%s", tenantID, profileKey, collection)
	return h
}

func (s *retrieverService) Retrieve(ctx context.Context, tenantID, profileKey, collection, query string) (string, error) {
	h := s.handle(tenantID, profileKey, collection)

	vector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	searchBody := map[string]interface{}{
		"size": retrieveK,
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              retrieveK,
			"num_candidates": retrieveNumCandidates,
			"filter": map[string]interface{}{
				"bool": map[string]interface{}{
					"must": []map[string]interface{}{
						{"term": map[string]interface{}{"tenant_id": h.tenantID}},
						{"term": map[string]interface{}{"profile_key": h.profileKey}},
						{"term": map[string]interface{}{"collection": h.collection}},
					},
				},
			},
		},
		"_source": []string{"text_content", "source"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchBody); err != nil {
		return "", fmt.Errorf("encode search body: %w", err)
	}

	res, err := es.ESClient.Search(
		es.ESClient.Search.WithContext(ctx),
		es.ESClient.Search.WithIndex(s.indexName),
		es.ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return "", fmt.Errorf("search index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("search index: %s: %s", res.Status(), string(body))
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source struct {
					TextContent string `json:"text_content"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	var parts []string
	for _, hit := range result.Hits.Hits {
		text := strings.TrimSpace(hit.Source.TextContent)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
