package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scholarfetch/scholarfetch/internal/downloader"
	"github.com/scholarfetch/scholarfetch/internal/extractor"
	"github.com/scholarfetch/scholarfetch/internal/fetcher"
	"github.com/scholarfetch/scholarfetch/internal/models"
	"github.com/scholarfetch/scholarfetch/internal/resolver"
	"github.com/scholarfetch/scholarfetch/internal/utils"
)

// Pipeline 主流程协调器
// 顺序执行 获取 → 提取 → 解析 → 下载 → 汇总
// 单个引用的失败只记录结果,不中断整个运行
type Pipeline struct {
	config       models.ScrapeConfig
	fetcher      fetcher.PageFetcher
	extractor    *extractor.Extractor
	resolver     *resolver.Resolver
	downloader   *downloader.Downloader
	showProgress bool
}

// NewPipeline 创建流程协调器
func NewPipeline(
	config models.ScrapeConfig,
	pageFetcher fetcher.PageFetcher,
	ext *extractor.Extractor,
	res *resolver.Resolver,
	dl *downloader.Downloader,
	showProgress bool,
) *Pipeline {
	return &Pipeline{
		config:       config,
		fetcher:      pageFetcher,
		extractor:    ext,
		resolver:     res,
		downloader:   dl,
		showProgress: showProgress,
	}
}

// Run 执行完整抓取流程
// 运行总是正常结束并返回报告,不因部分失败向调用方抛错;
// 仅当两条页面获取路径都失败时得到空引用集(可报告的非致命状态)
func (p *Pipeline) Run(ctx context.Context, targetURL string) (*models.RunReport, error) {
	startTime := time.Now()

	report := &models.RunReport{
		RunID:     uuid.New().String(),
		TargetURL: targetURL,
		StartTime: startTime,
		Config:    p.config,
	}

	utils.Infof("🚀 开始抓取任务")
	utils.Infof("目标URL: %s", targetURL)
	utils.Infof("获取模式: %s", p.config.Mode)

	// robots.txt建议性预检: 站点crawl-delay作为配置间隔的下限
	configuredDelay := time.Duration(p.config.Delay * float64(time.Second))
	delay := AdvisoryDelay(targetURL, configuredDelay, fetcher.UserAgent)

	// 获取页面并提取引用
	refs := p.discover(ctx, targetURL)
	report.Stats.Found = len(refs)

	if len(refs) == 0 {
		utils.Warn("页面上没有发现论文引用")
		p.finalize(report, startTime)
		return report, nil
	}

	utils.Infof("发现 %d 个论文引用,开始下载...", len(refs))

	var bar interface{ Add(int) error }
	if p.showProgress {
		bar = utils.NewProgressBar(len(refs), "下载论文")
	}

	// 严格顺序处理: 解析探测和下载共用同一个出站限速预算
	var lastDownloadStart time.Time
	for _, ref := range refs {
		// 取消检查: 引用之间可中断,已记录的结果保留
		if ctx.Err() != nil {
			utils.Warnf("收到取消信号,中断于第 %d/%d 个引用", len(report.Outcomes)+1, len(refs))
			break
		}

		resolved, err := p.resolveReference(ctx, ref)
		if err != nil {
			report.Outcomes = append(report.Outcomes, failedOutcome(ref, err))
			if bar != nil {
				bar.Add(1)
			}
			continue
		}

		// 速率下限: 相邻两次下载的开始时间间隔不低于delay(墙钟时间)
		if !lastDownloadStart.IsZero() {
			if wait := delay - time.Since(lastDownloadStart); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
				}
			}
		}
		if ctx.Err() != nil {
			break
		}
		lastDownloadStart = time.Now()

		outcome := p.downloader.Download(ctx, resolved, ref.Title)
		report.Outcomes = append(report.Outcomes, outcome)
		if bar != nil {
			bar.Add(1)
		}
	}

	p.finalize(report, startTime)

	utils.Infof("✅ 抓取任务完成")
	utils.Infof("发现: %d, 成功: %d, 跳过: %d, 失败: %d",
		report.Stats.Found, report.Stats.Succeeded, report.Stats.Skipped, report.Stats.Failed)
	utils.Infof("总耗时: %.2f秒", report.Stats.Duration)

	return report, nil
}

// discover 获取页面并提取引用
// auto模式先走静态快速路径,获取失败或提取为空时回退到渲染获取
func (p *Pipeline) discover(ctx context.Context, targetURL string) []models.PageReference {
	settle := time.Duration(p.config.SettleSeconds) * time.Second

	switch p.config.Mode {
	case models.ModeStatic:
		return p.discoverStatic(ctx, targetURL)

	case models.ModeRendered:
		return p.discoverRendered(ctx, targetURL, settle)

	default: // auto
		refs := p.discoverStatic(ctx, targetURL)
		if len(refs) > 0 {
			utils.Infof("静态获取发现 %d 个引用", len(refs))
			return refs
		}

		utils.Warn("静态路径未发现引用,回退到浏览器渲染")
		return p.discoverRendered(ctx, targetURL, settle)
	}
}

// discoverStatic 静态获取路径
func (p *Pipeline) discoverStatic(ctx context.Context, targetURL string) []models.PageReference {
	pageHTML, err := p.fetcher.FetchStatic(ctx, targetURL)
	if err != nil {
		utils.Warnf("静态获取失败: %v", err)
		return nil
	}
	return p.extractor.Extract(pageHTML, targetURL)
}

// discoverRendered 渲染获取路径
func (p *Pipeline) discoverRendered(ctx context.Context, targetURL string, settle time.Duration) []models.PageReference {
	pageHTML, err := p.fetcher.FetchRendered(ctx, targetURL, settle)
	if err != nil {
		utils.Errorf("渲染获取失败: %v", err)
		return nil
	}
	return p.extractor.Extract(pageHTML, targetURL)
}

// resolveReference 解析单个引用
// 嵌入策略合成的URL未确认时,还原论文ID改走候选模板探测
func (p *Pipeline) resolveReference(ctx context.Context, ref models.PageReference) (*models.ResolvedArtifact, error) {
	resolved, err := p.resolver.Resolve(ctx, ref.URL)
	if err == nil {
		return resolved, nil
	}

	if ref.Strategy == models.StrategyEmbeddedData || ref.Strategy == models.StrategyEmbeddedID {
		if id, ok := resolver.IdentifierFromURL(ref.URL); ok {
			utils.Debugf("主URL未确认,按ID探测候选模板: %s", id)
			if byID, idErr := p.resolver.ResolveIdentifier(ctx, id); idErr == nil {
				return byID, nil
			}
		}
	}

	return nil, err
}

// finalize 结束报告
func (p *Pipeline) finalize(report *models.RunReport, startTime time.Time) {
	report.EndTime = time.Now()
	report.Stats.Duration = report.EndTime.Sub(startTime).Seconds()
	report.Tally()
}

// failedOutcome 为解析失败的引用构造结果记录
func failedOutcome(ref models.PageReference, err error) models.DownloadOutcome {
	detail := err.Error()
	// 结果记录保留单行摘要
	if idx := strings.IndexByte(detail, '\n'); idx >= 0 {
		detail = detail[:idx]
	}

	return models.DownloadOutcome{
		ID:          uuid.New().String(),
		SourceURL:   ref.URL,
		Title:       ref.Title,
		Status:      models.StatusFailed,
		ErrorDetail: detail,
		Timestamp:   time.Now(),
	}
}
