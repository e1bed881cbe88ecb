package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误策略（排序链路）：
//   - 检索源超时/出错：就地恢复为空贡献，绝不向上冒泡
//   - 向量服务不可用：降级为显式标签相似度，请求必须有结果
//   - 跨校区候选：融合层静默丢弃并记入质量监控
//   - 缺失 campusId/userId：唯一对调用方可见的失败
//   - 结果为空：合法的终态，不是错误
type DomainError struct {
	Code    string // 错误代码（如 "TIMEOUT", "CROSS_CAMPUS"）
	Message string // 错误消息
	Module  string // 模块名称（如 "retrieve", "fusion"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeTimeout       = "TIMEOUT"        // 检索源超时
	ErrorCodeCrossCampus   = "CROSS_CAMPUS"   // 候选越过校区边界
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore    = "store"
	ModuleSignal   = "signal"
	ModuleRetrieve = "retrieve"
	ModuleFusion   = "fusion"
	ModuleVector   = "vector"
	ModuleNotify   = "notify"
	ModuleEngine   = "engine"
)

// 预定义领域错误

var (
	// ErrMalformedRequest 表示请求缺失 campusId 或 userId，
	// 在触达任何检索源之前立即返回。
	ErrMalformedRequest = NewDomainError(ModuleEngine, ErrorCodeInvalidInput, "ranking: missing campusId or userId")

	// ErrEmbeddingUnavailable 表示向量服务不可用；调用方应降级为标签相似度。
	ErrEmbeddingUnavailable = NewDomainError(ModuleVector, ErrorCodeUnavailable, "embedding: service unavailable")

	// ErrCrossCampusCandidate 表示检索源返回了越界候选（数据质量信号）。
	ErrCrossCampusCandidate = NewDomainError(ModuleFusion, ErrorCodeCrossCampus, "fusion: candidate outside request campus")
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsTimeout 检查错误是否为 TIMEOUT
func IsTimeout(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeTimeout
	}
	return false
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidInput
	}
	return false
}

// IsCrossCampus 检查错误是否为 CROSS_CAMPUS
func IsCrossCampus(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeCrossCampus
	}
	return false
}
