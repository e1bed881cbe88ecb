package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"

	"github.com/campuskit/discovery/core"
)

// FeastReader 是 Feast 在线特征库实现的 core.SignalProfileReader。
//
// 部署方式：离线摄入作业把行为聚合物化到 Feast 在线存储，
// 排序引擎按用户实体读取聚合，不回放原始事件日志。
// 与 signal.Store 二选一：两者提供同一只读接口，聚合语义一致。
//
// 特征视图约定（entity: user_id）：
//   - explicit_interests  JSON map[string]float64
//   - category_counts     JSON map[string]float64（30 天窗口）
//   - kind_counts         JSON map[string]float64
//   - source_counts       JSON map[string]float64
//   - event_count         int64
//   - hour_histogram      JSON [24]int
//   - last_visit          RFC3339 字符串
//   - campus_id / cohort / muted_sources / interest_vector / personalization
type FeastReader struct {
	client  *feastsdk.GrpcClient
	project string
	view    string
}

// NewFeastReader 连接 Feast Feature Server。
func NewFeastReader(host string, port int, project, featureView string) (*FeastReader, error) {
	if port == 0 {
		port = 6565
	}
	if featureView == "" {
		featureView = "user_signals"
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("connect feast: %w", err)
	}
	return &FeastReader{client: client, project: project, view: featureView}, nil
}

var _ core.SignalProfileReader = (*FeastReader)(nil)

var feastFeatures = []string{
	"explicit_interests",
	"category_counts",
	"kind_counts",
	"source_counts",
	"event_count",
	"hour_histogram",
	"last_visit",
	"campus_id",
	"cohort",
	"muted_sources",
	"interest_vector",
	"personalization",
}

// Profile 实现 core.SignalProfileReader。特征全部缺失时返回 (nil, nil)。
func (r *FeastReader) Profile(ctx context.Context, userID string) (*core.UserSignalProfile, error) {
	features := make([]string, 0, len(feastFeatures))
	for _, f := range feastFeatures {
		features = append(features, r.view+":"+f)
	}

	resp, err := r.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: features,
		Entities: []feastsdk.Row{{"user_id": feastsdk.StrVal(userID)}},
		Project:  r.project,
	})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleSignal, core.ErrorCodeUnavailable,
			fmt.Sprintf("feast online features: %v", err))
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]

	values := make(map[string]any, len(feastFeatures))
	for _, f := range feastFeatures {
		if v, ok := row[r.view+":"+f]; ok && v != nil {
			values[f] = fromFeastValue(v)
		} else if v, ok := row[f]; ok && v != nil {
			// 部分 Feast 版本在响应里省略视图前缀
			values[f] = fromFeastValue(v)
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	p := core.NewUserSignalProfile(userID, asString(values["campus_id"]))
	unmarshalInto(values["explicit_interests"], &p.ExplicitInterests)
	unmarshalInto(values["cohort"], &p.Cohort)
	unmarshalInto(values["interest_vector"], &p.InterestVector)
	if level := asString(values["personalization"]); level != "" {
		p.Personalization = core.PersonalizationLevel(level)
	}
	var muted []string
	unmarshalInto(values["muted_sources"], &muted)
	for _, src := range muted {
		p.MutedSources[src] = true
	}

	b := &core.BehaviorSummary{
		CategoryCounts: make(map[string]float64),
		KindCounts:     make(map[core.ContentKind]float64),
		SourceCounts:   make(map[string]float64),
	}
	unmarshalInto(values["category_counts"], &b.CategoryCounts)
	unmarshalInto(values["source_counts"], &b.SourceCounts)
	var kindCounts map[string]float64
	unmarshalInto(values["kind_counts"], &kindCounts)
	for k, v := range kindCounts {
		b.KindCounts[core.ContentKind(k)] = v
	}
	if f, ok := values["event_count"].(float64); ok {
		b.EventCount = int(f)
	}
	var hist []int
	unmarshalInto(values["hour_histogram"], &hist)
	for i := 0; i < len(hist) && i < 24; i++ {
		b.HourHistogram[i] = hist[i]
	}
	if raw := asString(values["last_visit"]); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			b.LastVisit = t
		}
	}
	if b.EventCount > 0 {
		p.Behavior = b
	}
	return p, nil
}

// Close 释放 Feast 连接。
func (r *FeastReader) Close() error {
	r.client = nil
	return nil
}

// fromFeastValue 将 SDK 返回的特征值转为 Go 原生类型。
// SDK 的 Row 值是 protobuf Value；沿用字符串化降级，避免依赖其内部类型。
func fromFeastValue(val any) any {
	switch v := val.(type) {
	case string:
		return v
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int:
		return float64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case bool:
		if v {
			return float64(1)
		}
		return float64(0)
	case []byte:
		return string(v)
	default:
		s := fmt.Sprintf("%v", val)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
}

// unmarshalInto 将字符串化的 JSON 特征解析到目标；非字符串或解析失败时忽略。
func unmarshalInto(v any, target any) {
	s, ok := v.(string)
	if !ok || s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), target)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
