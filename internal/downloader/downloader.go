package downloader

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scholarfetch/scholarfetch/internal/models"
	"github.com/scholarfetch/scholarfetch/internal/utils"
)

const (
	// MaxFilenameLength 标题派生文件名的最大长度(不含扩展名)
	MaxFilenameLength = 100
)

// whitespaceRunPattern 空白与连字符串,压缩为单个下划线
var whitespaceRunPattern = regexp.MustCompile(`[-\s]+`)

// Downloader 下载管理器
// 把确认的制品URL流式落盘,按文件名保证至多一次下载
type Downloader struct {
	client       *http.Client
	outputDir    string
	userAgent    string
	showProgress bool

	// 会话内文件名归属表: filename -> 来源URL
	// 不同来源URL净化出同名文件时,后来者追加URL哈希后缀,避免两篇论文合并成一个文件
	nameOwners map[string]string
}

// New 创建下载管理器
func New(config models.ScrapeConfig, outputDir string, showProgress bool) *Downloader {
	return &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
			},
			Timeout: time.Duration(config.DownloadTimeout) * time.Second,
		},
		outputDir:    outputDir,
		userAgent:    "scholarfetch/1.0 (research purposes)",
		showProgress: showProgress,
		nameOwners:   make(map[string]string),
	}
}

// Download 下载已确认的制品
// 处理流程:
//  1. 派生本地文件名(标题净化或URL兜底)
//  2. 同名文件已存在则跳过(跨运行幂等,不重新下载)
//  3. 流式分块写盘,不在内存中缓冲整个文件
//  4. 传输失败时删除残留的半截文件,避免下次运行被幂等检查误判为成功
func (d *Downloader) Download(ctx context.Context, resolved *models.ResolvedArtifact, title string) models.DownloadOutcome {
	outcome := models.DownloadOutcome{
		ID:          uuid.New().String(),
		SourceURL:   resolved.RequestedURL,
		ArtifactURL: resolved.ArtifactURL,
		Title:       title,
		Timestamp:   time.Now(),
	}

	filename := d.deriveFilename(title, resolved.ArtifactURL, resolved.RequestedURL)
	outcome.Filename = filename
	destPath := filepath.Join(d.outputDir, filename)

	// 幂等检查: 同名文件已存在视为成功,跳过下载
	if _, err := os.Stat(destPath); err == nil {
		utils.Infof("文件已存在,跳过: %s", filename)
		outcome.Status = models.StatusSkipped
		return outcome
	}

	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		return d.failed(outcome, resolved.ArtifactURL, err)
	}

	utils.Infof("📥 开始下载: %s", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved.ArtifactURL, nil)
	if err != nil {
		return d.failed(outcome, resolved.ArtifactURL, err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return d.failed(outcome, resolved.ArtifactURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return d.failed(outcome, resolved.ArtifactURL, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	written, err := d.streamToFile(destPath, resp.Body, resp.ContentLength, filename)
	if err != nil {
		// 删除半截文件
		if rmErr := os.Remove(destPath); rmErr != nil && !os.IsNotExist(rmErr) {
			utils.Warnf("删除残留文件失败 [%s]: %v", destPath, rmErr)
		}
		return d.failed(outcome, resolved.ArtifactURL, err)
	}

	utils.Infof("✅ 下载成功: %s (%d bytes)", filename, written)
	outcome.Status = models.StatusSuccess
	return outcome
}

// streamToFile 流式分块写盘
func (d *Downloader) streamToFile(destPath string, body io.Reader, contentLength int64, filename string) (int64, error) {
	f, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("创建文件失败: %w", err)
	}
	defer f.Close()

	var dst io.Writer = f
	if d.showProgress && contentLength > 0 {
		bar := utils.NewByteProgressBar(contentLength, filename)
		dst = io.MultiWriter(f, bar)
	}

	written, err := io.Copy(dst, body)
	if err != nil {
		return written, fmt.Errorf("写入文件失败: %w", err)
	}
	return written, nil
}

// failed 构造失败结果
func (d *Downloader) failed(outcome models.DownloadOutcome, artifactURL string, err error) models.DownloadOutcome {
	dlErr := &models.DownloadError{URL: artifactURL, Err: err}
	utils.Errorf("%v", dlErr)
	outcome.Status = models.StatusFailed
	outcome.ErrorDetail = err.Error()
	return outcome
}

// deriveFilename 派生本地文件名
// 有标题走净化路径;无标题取URL末段,末段无.pdf扩展名时用URL哈希合成;
// 同名但来源不同的引用追加来源URL哈希后缀
func (d *Downloader) deriveFilename(title, artifactURL, sourceURL string) string {
	filename := DeriveFilename(title, artifactURL)

	if owner, exists := d.nameOwners[filename]; exists && owner != sourceURL {
		stem := strings.TrimSuffix(filename, ".pdf")
		qualified := fmt.Sprintf("%s_%s.pdf", stem, urlHash(sourceURL))
		utils.Warnf("文件名冲突: %s 已被 %s 占用,改用 %s", filename, owner, qualified)
		filename = qualified
	}

	d.nameOwners[filename] = sourceURL
	return filename
}

// DeriveFilename 从标题或制品URL派生文件名
func DeriveFilename(title, artifactURL string) string {
	if title != "" {
		if sanitized := SanitizeTitle(title); sanitized != "" {
			return sanitized + ".pdf"
		}
	}

	// 无标题: 用URL路径末段
	if parsed, err := url.Parse(artifactURL); err == nil {
		base := path.Base(parsed.Path)
		if strings.HasSuffix(strings.ToLower(base), ".pdf") {
			return base
		}
	}

	// 末段没有预期扩展名,用URL哈希合成
	return fmt.Sprintf("paper_%s.pdf", urlHash(artifactURL))
}

// SanitizeTitle 净化标题为文件名主干
// 剔除字母数字/空白/连字符之外的字符,把空白和连字符串压缩为单个下划线,
// 截断到上限长度
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '-':
			b.WriteRune(r)
		}
	}

	collapsed := whitespaceRunPattern.ReplaceAllString(b.String(), "_")
	collapsed = strings.Trim(collapsed, "_")

	runes := []rune(collapsed)
	if len(runes) > MaxFilenameLength {
		collapsed = string(runes[:MaxFilenameLength])
	}
	return collapsed
}

// urlHash URL的短哈希(12位hex),用于合成文件名
func urlHash(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("%x", sum)[:12]
}
