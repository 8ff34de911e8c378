package models

// SourceStrategy 引用的发现来源策略
type SourceStrategy string

const (
	StrategyDirectLink        SourceStrategy = "direct_link"        // 静态HTML超链接扫描
	StrategyEmbeddedData      SourceStrategy = "embedded_data"      // 内联脚本JSON数据解析
	StrategyEmbeddedID        SourceStrategy = "embedded_id"        // 脚本原文ID正则兜底
	StrategyRenderedHeuristic SourceStrategy = "rendered_heuristic" // 渲染后DOM启发式扫描
)

// PageReference 从页面发现的论文候选引用
// 身份键为归一化后的绝对URL,提取器保证输出集合中URL不重复
type PageReference struct {
	URL      string         `json:"url"`      // 归一化后的绝对URL
	Title    string         `json:"title"`    // 展示标题(可能为占位符 "Paper {id}")
	Strategy SourceStrategy `json:"strategy"` // 发现策略
}

// RawRecordKind 嵌入数据记录的变体标签
type RawRecordKind int

const (
	RecordUntagged   RawRecordKind = iota // 记录缺少id字段
	RecordIdentified                      // 记录携带论文ID
)

// RawRecord 嵌入脚本数据中的单条记录
// 形状在解析时决定一次,下游不再做键存在性探测
type RawRecord struct {
	Kind RawRecordKind `json:"kind"`
	ID   string        `json:"id,omitempty"` // Kind==RecordIdentified时有效
}

// ClassifyRecord 将解析出的JSON对象归类为带标签的记录
func ClassifyRecord(obj map[string]interface{}) RawRecord {
	if v, ok := obj["id"]; ok {
		if id, ok := v.(string); ok && id != "" {
			return RawRecord{Kind: RecordIdentified, ID: id}
		}
	}
	return RawRecord{Kind: RecordUntagged}
}
