package fusion

import "sync"

// QualityMonitor 是排序链路的数据质量计数器。
// 跨校区丢弃、检索源超时/出错、向量降级都不对用户可见，
// 这里是它们唯一的观测出口。生产环境可定期导出到外部监控系统。
type QualityMonitor struct {
	mu sync.RWMutex

	crossCampus     map[string]int64 // retriever name -> 丢弃次数
	sourceTimeouts  map[string]int64
	sourceErrors    map[string]int64
	embeddingFallen int64
}

func NewQualityMonitor() *QualityMonitor {
	return &QualityMonitor{
		crossCampus:    make(map[string]int64),
		sourceTimeouts: make(map[string]int64),
		sourceErrors:   make(map[string]int64),
	}
}

// RecordCrossCampus 记录一次跨校区候选丢弃。
func (m *QualityMonitor) RecordCrossCampus(retriever string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crossCampus[retriever]++
}

// RecordSourceTimeout 记录一次检索源超时。
func (m *QualityMonitor) RecordSourceTimeout(retriever string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceTimeouts[retriever]++
}

// RecordSourceError 记录一次检索源错误。
func (m *QualityMonitor) RecordSourceError(retriever string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceErrors[retriever]++
}

// RecordEmbeddingFallback 记录一次向量服务不可用导致的标签相似度降级。
func (m *QualityMonitor) RecordEmbeddingFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddingFallen++
}

// Stats 是质量计数的只读快照。
type Stats struct {
	CrossCampusDrops  map[string]int64
	SourceTimeouts    map[string]int64
	SourceErrors      map[string]int64
	EmbeddingFallback int64
}

// Snapshot 返回当前计数的副本。
func (m *QualityMonitor) Snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		CrossCampusDrops:  make(map[string]int64, len(m.crossCampus)),
		SourceTimeouts:    make(map[string]int64, len(m.sourceTimeouts)),
		SourceErrors:      make(map[string]int64, len(m.sourceErrors)),
		EmbeddingFallback: m.embeddingFallen,
	}
	for k, v := range m.crossCampus {
		s.CrossCampusDrops[k] = v
	}
	for k, v := range m.sourceTimeouts {
		s.SourceTimeouts[k] = v
	}
	for k, v := range m.sourceErrors {
		s.SourceErrors[k] = v
	}
	return s
}
