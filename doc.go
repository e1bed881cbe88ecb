// Package discovery 是校园平台的查询与排序引擎（Query & Ranking Engine）。
//
// 设计要点：
// - Pipeline-first: 各业务面（搜索 / Feed / 推荐）的排序逻辑通过 Node 串联
//   （Retrieve → Filter → Score → ReRank → PostProcess）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - 归因强制: 推荐与 Feed 输出的每个条目必须携带至少一个 reasonCode
// - 校区隔离: campusId 是硬边界，在融合层统一校验，不信任任何检索源
package discovery

import "github.com/campuskit/discovery/pipeline"

// 轻量 facade：便于用户直接 import "discovery" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRetrieve    = pipeline.KindRetrieve
	KindFilter      = pipeline.KindFilter
	KindScore       = pipeline.KindScore
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
