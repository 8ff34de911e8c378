package models

import (
	"encoding/json"
	"time"
)

// RunStats 运行统计
type RunStats struct {
	Found     int     `json:"found"`     // 发现的引用数
	Succeeded int     `json:"succeeded"` // 下载成功数
	Skipped   int     `json:"skipped"`   // 跳过数(已存在)
	Failed    int     `json:"failed"`    // 失败数
	Duration  float64 `json:"duration"`  // 总耗时(秒)
}

// RunReport 单次运行报告
type RunReport struct {
	// 任务信息
	RunID     string `json:"run_id"`
	TargetURL string `json:"target_url"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// 统计与结果
	Stats    RunStats          `json:"stats"`
	Outcomes []DownloadOutcome `json:"outcomes"`

	// 配置快照
	Config ScrapeConfig `json:"config"`
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}

// Tally 根据结果序列重算统计计数
func (r *RunReport) Tally() {
	stats := RunStats{Found: r.Stats.Found, Duration: r.Stats.Duration}
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSuccess:
			stats.Succeeded++
		case StatusSkipped:
			stats.Skipped++
		case StatusFailed:
			stats.Failed++
		}
	}
	r.Stats = stats
}
