package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/scholarfetch/scholarfetch/internal/models"
	"github.com/scholarfetch/scholarfetch/internal/utils"
	"github.com/shirou/gopsutil/v3/mem"
)

// RenderedFetcher 渲染获取器(使用Rod)
// 执行页面脚本,等待settle时间后返回渲染后的DOM序列化结果
type RenderedFetcher struct {
	headless      bool
	minFreeMemory uint64 // 启动浏览器前要求的最小可用内存(字节)
}

// NewRenderedFetcher 创建渲染获取器
func NewRenderedFetcher(config models.ScrapeConfig) *RenderedFetcher {
	return &RenderedFetcher{
		headless:      config.Headless,
		minFreeMemory: uint64(config.MinFreeMemoryMB) * 1024 * 1024,
	}
}

// FetchRendered 获取页面渲染后的HTML
// 处理流程:
//  1. 检查可用内存是否足够启动浏览器,不够则降级失败(调用方继续静态结果)
//  2. 启动无头浏览器并导航
//  3. WaitLoad后额外等待settle时间,让客户端渲染完成
//  4. 返回序列化DOM
func (rf *RenderedFetcher) FetchRendered(ctx context.Context, pageURL string, settle time.Duration) (html string, err error) {
	// Rod在协议错误时会panic,统一转换为FetchError
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("浏览器操作panic [%s]: %v", pageURL, r)
			err = &models.FetchError{URL: pageURL, Op: "rendered", Err: fmt.Errorf("浏览器崩溃: %v", r)}
		}
	}()

	if err := rf.checkMemory(); err != nil {
		return "", &models.FetchError{URL: pageURL, Op: "rendered", Err: err}
	}

	utils.Infof("🌐 渲染获取模式启动: %s (等待%.0f秒)", pageURL, settle.Seconds())

	// 配置launcher
	l := launcher.New().
		Headless(rf.headless).
		Set("ignore-certificate-errors")

	controlURL, err := l.Launch()
	if err != nil {
		return "", &models.FetchError{URL: pageURL, Op: "rendered", Err: fmt.Errorf("启动浏览器失败: %w", err)}
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", &models.FetchError{URL: pageURL, Op: "rendered", Err: fmt.Errorf("连接浏览器失败: %w", err)}
	}
	defer func() {
		browser.MustClose()
		utils.Debugf("浏览器已关闭")
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", &models.FetchError{URL: pageURL, Op: "rendered", Err: fmt.Errorf("创建标签页失败: %w", err)}
	}

	if err := page.Navigate(pageURL); err != nil {
		return "", &models.FetchError{URL: pageURL, Op: "rendered", Err: fmt.Errorf("导航失败: %w", err)}
	}

	if err := page.WaitLoad(); err != nil {
		return "", &models.FetchError{URL: pageURL, Op: "rendered", Err: fmt.Errorf("等待页面加载失败: %w", err)}
	}

	// 额外等待时间(等待客户端脚本渲染)
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return "", &models.FetchError{URL: pageURL, Op: "rendered", Err: ctx.Err()}
	}

	rendered, err := page.HTML()
	if err != nil {
		return "", &models.FetchError{URL: pageURL, Op: "rendered", Err: fmt.Errorf("序列化DOM失败: %w", err)}
	}

	utils.Debugf("渲染获取完成 [%s]: %d bytes", pageURL, len(rendered))
	return rendered, nil
}

// checkMemory 检查可用内存是否达到启动浏览器的下限
// 内存不足的主机降级为仅静态获取,而不是让浏览器进程被OOM杀掉
func (rf *RenderedFetcher) checkMemory() error {
	if rf.minFreeMemory == 0 {
		return nil
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		// 读不到内存信息时不阻止启动
		utils.Warnf("读取内存信息失败: %v", err)
		return nil
	}

	if vm.Available < rf.minFreeMemory {
		return fmt.Errorf("可用内存不足: %d MB < %d MB,跳过浏览器渲染",
			vm.Available/(1024*1024), rf.minFreeMemory/(1024*1024))
	}

	return nil
}
