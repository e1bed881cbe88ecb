package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/campuskit/discovery/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是规则 DSL 解释器，使用 CEL (Common Expression Language) 实现。
// 运营侧用它声明候选的准入/排除规则，随 Pipeline 配置下发。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：item.kind == "event" / item.category != "music"
//   - 数值：item.score > 0.7
//   - 逻辑：item.kind == "post" && item.score > 0.8
//   - 标签：label.retriever == "keyword"（取 Label 的 Value）
//   - 上下文：rctx.surface == "feed"
//
// 示例：
//   - `item.kind == "person"` → 命中人卡片
//   - `label.retriever == "vector" && item.score < 0.2` → 低分语义召回
type Eval struct {
	item *core.Item
	rctx *core.RankingContext
	env  *cel.Env
}

// NewEval 创建一个新的规则解释器。
func NewEval(item *core.Item, rctx *core.RankingContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行 DSL 表达式，返回布尔结果。
// 空表达式恒为 true。表达式必须返回布尔值。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		// 访问不存在的 key 时 CEL 会报错；规则应使用 label.key != null 判存在性
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]any {
	labels := make(map[string]any)
	if e.item != nil {
		for k, v := range e.item.Labels {
			labels[k] = v.Value
		}
	}

	item := map[string]any{}
	if e.item != nil {
		item = map[string]any{
			"id":       e.item.ID,
			"kind":     string(e.item.Kind),
			"campus":   e.item.CampusID,
			"category": e.item.Category,
			"source":   e.item.SourceID,
			"score":    e.item.Score,
			"features": e.item.Features,
		}
	}

	rctx := map[string]any{}
	if e.rctx != nil {
		rctx = map[string]any{
			"user_id":   e.rctx.UserID,
			"campus_id": e.rctx.CampusID,
			"surface":   string(e.rctx.Surface),
			"hint":      e.rctx.StrategyHint,
			"params":    e.rctx.Params,
		}
	}

	return map[string]any{
		"item":  item,
		"label": labels,
		"rctx":  rctx,
	}
}
