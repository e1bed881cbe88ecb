package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campuskit/discovery/core"
)

// HTTPService 是通过 HTTP 对接外部向量索引的 core.VectorService 实现。
//
// 对接的是简单 JSON 协议的 ANN 服务（Milvus HTTP 代理、自建 ANN 服务等）：
//
//	POST {endpoint}/v1/vector/search
//	{"collection": "...", "vector": [...], "top_k": 50, "metric": "cosine"}
//	→ {"results": [{"id": "...", "score": 0.92}, ...]}
//
// 生产环境使用；测试与原型用 store.MemoryVectorService 平替。
type HTTPService struct {
	// Endpoint 服务端点，例如 "http://ann.internal:19530"
	Endpoint string

	// Timeout 请求超时
	Timeout time.Duration

	// Token 认证令牌，空值不加认证头
	Token string

	httpClient *http.Client
}

// NewHTTPService 创建 HTTP 向量服务客户端。
func NewHTTPService(endpoint string, opts ...Option) *HTTPService {
	s := &HTTPService{
		Endpoint: endpoint,
		Timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpClient = &http.Client{Timeout: s.Timeout}
	return s
}

// Option 是 HTTPService 的配置选项。
type Option func(*HTTPService)

// WithTimeout 设置请求超时。
func WithTimeout(timeout time.Duration) Option {
	return func(s *HTTPService) { s.Timeout = timeout }
}

// WithToken 设置 Bearer 认证令牌。
func WithToken(token string) Option {
	return func(s *HTTPService) { s.Token = token }
}

var _ core.VectorService = (*HTTPService)(nil)

// Search 实现 core.VectorService 接口。
func (s *HTTPService) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil || len(req.Vector) == 0 {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector: empty search request")
	}

	metric := req.Metric
	if metric == "" {
		metric = "cosine"
	}
	if !core.ValidateVectorMetric(metric) {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector: unknown metric "+metric)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	body := map[string]any{
		"collection": req.Collection,
		"vector":     req.Vector,
		"top_k":      topK,
		"metric":     metric,
	}
	if len(req.Filter) > 0 {
		body["filter"] = req.Filter
	}

	var result struct {
		Results []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"results"`
	}
	if err := s.post(ctx, "/v1/vector/search", body, &result); err != nil {
		return nil, err
	}

	items := make([]core.VectorSearchItem, 0, len(result.Results))
	for _, r := range result.Results {
		items = append(items, core.VectorSearchItem{ID: r.ID, Score: r.Score})
	}
	return &core.VectorSearchResult{Items: items}, nil
}

// Insert 写入单个向量，索引构建作业使用。
func (s *HTTPService) Insert(ctx context.Context, collection, id string, vector []float64) error {
	body := map[string]any{
		"collection": collection,
		"id":         id,
		"vector":     vector,
	}
	return s.post(ctx, "/v1/vector/insert", body, nil)
}

func (s *HTTPService) Close() error { return nil }

func (s *HTTPService) post(ctx context.Context, path string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := s.Endpoint
	if len(url) > 0 && url[len(url)-1] == '/' {
		url = url[:len(url)-1]
	}
	url += path

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("vector service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vector service error: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
