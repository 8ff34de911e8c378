package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scholarfetch/scholarfetch/internal/downloader"
	"github.com/scholarfetch/scholarfetch/internal/extractor"
	"github.com/scholarfetch/scholarfetch/internal/models"
	"github.com/scholarfetch/scholarfetch/internal/resolver"
)

// stubFetcher 测试替身, 返回预置的页面内容
type stubFetcher struct {
	staticHTML    string
	staticErr     error
	renderedHTML  string
	renderedErr   error
	staticCalls   int
	renderedCalls int
}

func (s *stubFetcher) FetchStatic(ctx context.Context, pageURL string) (string, error) {
	s.staticCalls++
	return s.staticHTML, s.staticErr
}

func (s *stubFetcher) FetchRendered(ctx context.Context, pageURL string, settle time.Duration) (string, error) {
	s.renderedCalls++
	return s.renderedHTML, s.renderedErr
}

func testConfig(delay float64) models.ScrapeConfig {
	return models.ScrapeConfig{
		Mode:            models.ModeStatic,
		Delay:           delay,
		SettleSeconds:   0,
		ProbeTimeout:    5,
		DownloadTimeout: 10,
	}
}

// newPDFServer 对任意.pdf路径返回PDF响应的测试服务器
func newPDFServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Ext(r.URL.Path) == ".pdf" {
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "%PDF-1.4 test")
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestPipeline(config models.ScrapeConfig, f *stubFetcher, outputDir string) *Pipeline {
	return NewPipeline(
		config,
		f,
		extractor.New(),
		resolver.New(config),
		downloader.New(config, outputDir, false),
		false,
	)
}

func pageWithLinks(serverURL string, names ...string) string {
	page := "<html><body>"
	for i, name := range names {
		page += fmt.Sprintf(`<a href="%s/conf_papers/%s.pdf">Paper Number %d Full Title</a>`, serverURL, name, i+1)
	}
	return page + "</body></html>"
}

func TestPipeline_Run(t *testing.T) {
	server := newPDFServer(t)
	outputDir := t.TempDir()

	f := &stubFetcher{staticHTML: pageWithLinks(server.URL, "p1", "p2")}
	p := newTestPipeline(testConfig(0), f, outputDir)

	report, err := p.Run(context.Background(), server.URL+"/agenda")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Stats.Found != 2 {
		t.Errorf("Found = %d, want 2", report.Stats.Found)
	}
	if report.Stats.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2 (outcomes: %+v)", report.Stats.Succeeded, report.Outcomes)
	}
	if report.RunID == "" {
		t.Error("报告应携带运行ID")
	}

	// 下载文件已落盘
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("落盘文件数 = %d, want 2", len(entries))
	}
}

func TestPipeline_RateFloor(t *testing.T) {
	server := newPDFServer(t)

	const delay = 0.3
	f := &stubFetcher{staticHTML: pageWithLinks(server.URL, "r1", "r2", "r3")}
	p := newTestPipeline(testConfig(delay), f, t.TempDir())

	start := time.Now()
	report, err := p.Run(context.Background(), server.URL+"/agenda")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Stats.Succeeded != 3 {
		t.Fatalf("Succeeded = %d, want 3", report.Stats.Succeeded)
	}

	// N次下载至少间隔(N-1)个delay
	floor := time.Duration((3 - 1) * delay * float64(time.Second))
	if elapsed < floor {
		t.Errorf("总耗时 %v 低于速率下限 %v", elapsed, floor)
	}
}

func TestPipeline_AutoFallsBackToRendered(t *testing.T) {
	server := newPDFServer(t)

	f := &stubFetcher{
		staticHTML:   "<html><body><p>脚本渲染前的空壳页面</p></body></html>",
		renderedHTML: pageWithLinks(server.URL, "d1"),
	}

	config := testConfig(0)
	config.Mode = models.ModeAuto
	p := newTestPipeline(config, f, t.TempDir())

	report, err := p.Run(context.Background(), server.URL+"/agenda")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if f.staticCalls != 1 {
		t.Errorf("staticCalls = %d, auto模式应先走静态路径", f.staticCalls)
	}
	if f.renderedCalls != 1 {
		t.Errorf("renderedCalls = %d, 静态无结果时应回退渲染", f.renderedCalls)
	}
	if report.Stats.Found != 1 {
		t.Errorf("Found = %d, want 1", report.Stats.Found)
	}
}

func TestPipeline_AutoSkipsRenderedWhenStaticSufficient(t *testing.T) {
	server := newPDFServer(t)

	f := &stubFetcher{staticHTML: pageWithLinks(server.URL, "s1")}

	config := testConfig(0)
	config.Mode = models.ModeAuto
	p := newTestPipeline(config, f, t.TempDir())

	if _, err := p.Run(context.Background(), server.URL+"/agenda"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if f.renderedCalls != 0 {
		t.Errorf("renderedCalls = %d, 静态已有结果时不应启动渲染", f.renderedCalls)
	}
}

func TestPipeline_FailedResolutionRecorded(t *testing.T) {
	server := newPDFServer(t)

	// 第二个链接路径命中制品约定但服务器返回404
	page := fmt.Sprintf(`<html><body>
		<a href="%s/conf_papers/good.pdf">A Perfectly Good Paper</a>
		<a href="%s/papers/broken-target">A Broken Reference Here</a>
	</body></html>`, server.URL, server.URL)

	f := &stubFetcher{staticHTML: page}
	p := newTestPipeline(testConfig(0), f, t.TempDir())

	report, err := p.Run(context.Background(), server.URL+"/agenda")
	if err != nil {
		t.Fatalf("单个引用失败不应使整个运行报错: %v", err)
	}

	if report.Stats.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", report.Stats.Succeeded)
	}
	if report.Stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Stats.Failed)
	}
	if len(report.Outcomes) != 2 {
		t.Errorf("Outcomes = %d, 失败的引用也应记录结果", len(report.Outcomes))
	}

	for _, o := range report.Outcomes {
		if o.Status == models.StatusFailed && o.ErrorDetail == "" {
			t.Error("失败结果应携带错误详情")
		}
	}
}

func TestPipeline_CancelledBeforeDownloads(t *testing.T) {
	server := newPDFServer(t)

	f := &stubFetcher{staticHTML: pageWithLinks(server.URL, "c1", "c2")}
	p := newTestPipeline(testConfig(0), f, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx, server.URL+"/agenda")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 取消发生在引用处理之前, 发现数保留但没有下载结果
	if report.Stats.Found != 2 {
		t.Errorf("Found = %d, want 2", report.Stats.Found)
	}
	if len(report.Outcomes) != 0 {
		t.Errorf("取消后不应继续处理引用, Outcomes = %d", len(report.Outcomes))
	}
}

func TestPipeline_EmptyPage(t *testing.T) {
	f := &stubFetcher{staticHTML: "<html><body><p>没有任何论文</p></body></html>"}
	p := newTestPipeline(testConfig(0), f, t.TempDir())

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	report, err := p.Run(context.Background(), server.URL+"/agenda")
	if err != nil {
		t.Fatalf("空引用集是可报告的状态, 不应报错: %v", err)
	}
	if report.Stats.Found != 0 || len(report.Outcomes) != 0 {
		t.Errorf("report = %+v", report.Stats)
	}
}
