package models

import (
	"encoding/json"
	"time"
)

// ResolvedArtifact 解析确认后的制品位置
type ResolvedArtifact struct {
	RequestedURL string `json:"requested_url"` // 请求解析的原始URL
	ArtifactURL  string `json:"artifact_url"`  // 确认可下载的制品URL(重定向后)
	Confirmed    bool   `json:"confirmed"`     // 是否已通过Content-Type或页内链接确认
}

// DownloadStatus 下载结果状态
type DownloadStatus string

const (
	StatusSuccess DownloadStatus = "success" // 下载成功
	StatusSkipped DownloadStatus = "skipped" // 同名文件已存在,跳过
	StatusFailed  DownloadStatus = "failed"  // 解析或传输失败
)

// DownloadOutcome 单个引用的下载结果
// 每个被尝试的引用恰好追加一条,创建后不再修改
type DownloadOutcome struct {
	ID          string         `json:"id"`                     // 结果唯一ID
	SourceURL   string         `json:"source_url"`             // 引用的原始URL
	ArtifactURL string         `json:"artifact_url,omitempty"` // 确认的制品URL(失败时可能为空)
	Title       string         `json:"title,omitempty"`        // 引用标题
	Filename    string         `json:"filename,omitempty"`     // 本地文件名
	Status      DownloadStatus `json:"status"`                 // 结果状态
	ErrorDetail string         `json:"error_detail,omitempty"` // 失败原因
	Timestamp   time.Time      `json:"timestamp"`              // 记录时间
}

// ToJSON 序列化为JSON
func (o *DownloadOutcome) ToJSON() ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}
