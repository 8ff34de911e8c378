package fetcher

import (
	"context"
	"time"

	"github.com/scholarfetch/scholarfetch/internal/models"
)

// UserAgent 所有出站请求使用的固定UA
const UserAgent = "scholarfetch/1.0 (research purposes)"

// PageFetcher 页面获取边界
// FetchStatic为快速路径,不执行页面脚本
// FetchRendered执行页面脚本并等待settle时间后返回序列化DOM
type PageFetcher interface {
	FetchStatic(ctx context.Context, pageURL string) (string, error)
	FetchRendered(ctx context.Context, pageURL string, settle time.Duration) (string, error)
}

// Fetcher 组合获取器,同时提供静态与渲染两种能力
type Fetcher struct {
	*StaticFetcher
	*RenderedFetcher
}

// New 创建组合获取器
func New(config models.ScrapeConfig) *Fetcher {
	return &Fetcher{
		StaticFetcher:   NewStaticFetcher(config),
		RenderedFetcher: NewRenderedFetcher(config),
	}
}
