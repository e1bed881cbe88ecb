package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/campuskit/discovery/core"
)

// DefaultEmbedTimeout 是嵌入调用的默认超时。嵌入在检索的关键路径上，
// 必须短超时快速失败，失败由调用方降级为标签相似度。
const DefaultEmbedTimeout = 100 * time.Millisecond

// EmbeddingClient 是外部嵌入服务的 HTTP 客户端，实现 core.EmbeddingService。
//
// 协议：
//
//	POST {endpoint}/v1/embed  {"text": "..."}
//	→ {"vector": [768 个 float]}
//
// 不可用是一等返回值：任何错误（超时、非 200、解析失败）都返回
// available=false，绝不向上抛异常。
type EmbeddingClient struct {
	// Endpoint 服务端点
	Endpoint string

	// Timeout 请求超时，0 表示 DefaultEmbedTimeout
	Timeout time.Duration

	// Token 认证令牌，空值不加认证头
	Token string

	httpClient *http.Client
}

// NewEmbeddingClient 创建嵌入服务客户端。
func NewEmbeddingClient(endpoint string, opts ...EmbeddingOption) *EmbeddingClient {
	c := &EmbeddingClient{
		Endpoint: endpoint,
		Timeout:  DefaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = &http.Client{Timeout: c.Timeout}
	return c
}

// EmbeddingOption 是 EmbeddingClient 的配置选项。
type EmbeddingOption func(*EmbeddingClient)

// WithEmbedTimeout 设置请求超时。
func WithEmbedTimeout(timeout time.Duration) EmbeddingOption {
	return func(c *EmbeddingClient) { c.Timeout = timeout }
}

// WithEmbedToken 设置 Bearer 认证令牌。
func WithEmbedToken(token string) EmbeddingOption {
	return func(c *EmbeddingClient) { c.Token = token }
}

var _ core.EmbeddingService = (*EmbeddingClient)(nil)

// Embed 实现 core.EmbeddingService 接口。
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, bool) {
	if text == "" || c.Endpoint == "" {
		return nil, false
	}

	jsonData, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, false
	}

	url := c.Endpoint
	if url[len(url)-1] == '/' {
		url = url[:len(url)-1]
	}
	url += "/v1/embed"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, false
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var result struct {
		Vector []float64 `json:"vector"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false
	}
	if len(result.Vector) == 0 {
		return nil, false
	}
	return result.Vector, true
}
