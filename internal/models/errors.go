package models

import (
	"errors"
	"fmt"
)

// ErrNoArtifact 所有候选URL均未确认为制品
var ErrNoArtifact = errors.New("未找到可下载的制品")

// FetchError 页面获取失败(传输或超时)
type FetchError struct {
	URL string // 目标URL
	Op  string // 操作: static / rendered / probe
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("页面获取失败 [%s] (%s): %v", e.URL, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError 嵌入数据解析失败(可通过兜底策略恢复)
type ParseError struct {
	Strategy SourceStrategy // 失败的策略
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("解析失败 [策略=%s]: %v", e.Strategy, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResolutionError 引用解析失败(无候选URL被确认)
type ResolutionError struct {
	URL string // 请求解析的URL
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("解析制品位置失败 [%s]: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// DownloadError 制品传输失败
type DownloadError struct {
	URL string // 制品URL
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("下载失败 [%s]: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ValidationError 解析到的URL未提供预期的内容类型或结构
type ValidationError struct {
	URL    string // 被验证的URL
	Reason string // 不通过的原因
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("制品验证失败 [%s]: %s", e.URL, e.Reason)
}
