package core

import "context"

// VectorService 是向量检索服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层实现
//   - 语义检索场景专用：根据查询向量检索相近内容
//
// 实现：
//   - store.MemoryVectorService 实现此接口（测试/开发）
//   - 生产环境接入外部向量索引（由部署方提供实现）
type VectorService interface {
	// Search 向量搜索
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Close 关闭连接
	Close() error
}

// VectorSearchRequest 向量搜索请求
type VectorSearchRequest struct {
	// Collection 集合名称（按校区分集合是实现方的约定，不是隔离保证）
	Collection string

	// Vector 查询向量
	Vector []float64

	// TopK 返回 TopK 个最相似的结果
	TopK int

	// Metric 距离度量方式：cosine / euclidean / inner_product
	Metric string

	// Filter 过滤条件（可选）
	Filter map[string]any
}

// VectorSearchItem 单个向量搜索结果项
type VectorSearchItem struct {
	ID    string
	Score float64
}

// VectorSearchResult 向量搜索结果（按相似度降序）
type VectorSearchResult struct {
	Items []VectorSearchItem
}

// ValidateVectorMetric 校验距离度量类型。
func ValidateVectorMetric(metric string) bool {
	switch metric {
	case "cosine", "euclidean", "inner_product":
		return true
	default:
		return false
	}
}
