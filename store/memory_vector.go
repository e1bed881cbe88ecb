package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/campuskit/discovery/core"
)

// MemoryVectorService 是内存实现的向量服务，用于测试/开发/原型。
// 平替外部向量索引，支持余弦相似度、欧氏距离、内积。
type MemoryVectorService struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	name      string
	dimension int
	metric    string
	vectors   map[string][]float64
}

// NewMemoryVectorService 创建内存向量服务实例。
func NewMemoryVectorService() *MemoryVectorService {
	return &MemoryVectorService{
		collections: make(map[string]*collection),
	}
}

var _ core.VectorService = (*MemoryVectorService)(nil)

// Insert 向集合写入一个向量；集合不存在时按首个向量的维度创建。
func (m *MemoryVectorService) Insert(collectionName, id string, vector []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collectionName]
	if !ok {
		col = &collection{
			name:      collectionName,
			dimension: len(vector),
			metric:    "cosine",
			vectors:   make(map[string][]float64),
		}
		m.collections[collectionName] = col
	}
	if len(vector) != col.dimension {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector dimension mismatch")
	}
	col.vectors[id] = vector
	return nil
}

// Search 实现 core.VectorService 接口。
func (m *MemoryVectorService) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector search request is nil")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[req.Collection]
	if !ok {
		return &core.VectorSearchResult{Items: []core.VectorSearchItem{}}, nil
	}
	if len(req.Vector) != col.dimension {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector dimension mismatch")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	metric := req.Metric
	if metric == "" {
		metric = col.metric
	}

	scored := make([]core.VectorSearchItem, 0, len(col.vectors))
	for id, vec := range col.vectors {
		var score float64
		switch metric {
		case "euclidean":
			// 距离越小越相似，取负作为分数
			score = -euclideanDistance(req.Vector, vec)
		case "inner_product":
			score = innerProduct(req.Vector, vec)
		default:
			score = CosineSimilarity(req.Vector, vec)
		}
		scored = append(scored, core.VectorSearchItem{ID: id, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	return &core.VectorSearchResult{Items: scored}, nil
}

// Vector 读取集合内单个向量，供热阶段打分时做逐条相似度计算。
func (m *MemoryVectorService) Vector(collectionName, id string) ([]float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[collectionName]
	if !ok {
		return nil, false
	}
	vec, ok := col.vectors[id]
	return vec, ok
}

func (m *MemoryVectorService) Close() error { return nil }

// CosineSimilarity 计算两个向量的余弦相似度。导出供打分因子复用。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func innerProduct(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
