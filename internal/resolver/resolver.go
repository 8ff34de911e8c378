package resolver

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/scholarfetch/scholarfetch/internal/models"
	"github.com/scholarfetch/scholarfetch/internal/utils"
)

// downloadLabelPattern 页内下载链接的锚文本模式
var downloadLabelPattern = regexp.MustCompile(`(?i)pdf|download`)

// letterPrefixPattern 论文ID的字母前缀(如f227503的f)
var letterPrefixPattern = regexp.MustCompile(`^[a-zA-Z]+`)

// Resolver URL解析器
// 把候选引用(URL或裸ID)解析为已确认可下载的制品位置
type Resolver struct {
	probeClient *http.Client // 轻量探测,短超时,跟随重定向
	userAgent   string

	// 候选URL模板的站点参数
	conferenceHost   string
	workingPaperHost string
}

// New 创建解析器
func New(config models.ScrapeConfig) *Resolver {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	return &Resolver{
		probeClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(config.ProbeTimeout) * time.Second,
		},
		userAgent:        "scholarfetch/1.0 (research purposes)",
		conferenceHost:   config.ConferenceHost,
		workingPaperHost: config.WorkingPaperHost,
	}
}

// Resolve 解析候选URL到确认的制品位置
// 算法:
//  1. HEAD探测(跟随重定向),Content-Type为PDF则直接确认
//  2. 非错误状态时取回页面body,扫描锚文本匹配下载标签的链接,
//     第一个指向.pdf后缀的链接确认为制品URL
//  3. 否则返回ResolutionError
//
// 探测中的网络错误对单个候选非致命,调用方继续下一个候选
func (r *Resolver) Resolve(ctx context.Context, candidateURL string) (*models.ResolvedArtifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidateURL, nil)
	if err != nil {
		return nil, &models.ResolutionError{URL: candidateURL, Err: err}
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.probeClient.Do(req)
	if err != nil {
		return nil, &models.ResolutionError{URL: candidateURL, Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	// Content-Type直接指示PDF,取重定向后的最终URL
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "application/pdf") {
		finalURL := resp.Request.URL.String()
		utils.Debugf("探测确认PDF [%s] -> %s", candidateURL, finalURL)
		return &models.ResolvedArtifact{
			RequestedURL: candidateURL,
			ArtifactURL:  finalURL,
			Confirmed:    true,
		}, nil
	}

	// 可达但不是PDF,可能是论文落地页,扫描页内下载链接
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		artifactURL, found := r.scanLandingPage(ctx, candidateURL)
		if found {
			utils.Debugf("落地页确认PDF [%s] -> %s", candidateURL, artifactURL)
			return &models.ResolvedArtifact{
				RequestedURL: candidateURL,
				ArtifactURL:  artifactURL,
				Confirmed:    true,
			}, nil
		}
		return nil, &models.ResolutionError{URL: candidateURL, Err: &models.ValidationError{
			URL:    candidateURL,
			Reason: "页面可达但未找到PDF下载链接",
		}}
	}

	return nil, &models.ResolutionError{URL: candidateURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
}

// ResolveIdentifier 解析裸论文ID
// 按固定路径模板生成候选URL并逐个探测,第一个确认的结果胜出,
// 其后的候选不再探测(短路)
func (r *Resolver) ResolveIdentifier(ctx context.Context, id string) (*models.ResolvedArtifact, error) {
	candidates := r.CandidateURLs(id)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return nil, &models.ResolutionError{URL: candidate, Err: ctx.Err()}
		}

		resolved, err := r.Resolve(ctx, candidate)
		if err != nil {
			utils.Debugf("候选未确认 [%s]: %v", candidate, err)
			continue // 单个候选失败非致命
		}
		if resolved.Confirmed {
			return resolved, nil
		}
	}

	return nil, &models.ResolutionError{URL: id, Err: models.ErrNoArtifact}
}

// CandidateURLs 为论文ID生成候选制品URL(按置信度排序)
// 覆盖会议论文路径、工作论文路径,以及剥离字母前缀的纯数字变体
func (r *Resolver) CandidateURLs(id string) []string {
	numericID := letterPrefixPattern.ReplaceAllString(id, "")

	candidates := []string{
		// 会议论文路径
		fmt.Sprintf("https://%s/conf_papers/%s.pdf", r.conferenceHost, id),
		fmt.Sprintf("https://%s/confer/%s.pdf", r.conferenceHost, id),
		fmt.Sprintf("https://%s/conf_papers/%s.pdf", r.workingPaperHost, id),
	}

	// 工作论文路径(需要数字部分)
	if numericID != "" {
		candidates = append(candidates,
			fmt.Sprintf("https://%s/papers/w%s", r.workingPaperHost, numericID),
			fmt.Sprintf("https://%s/system/files/working_papers/w%s/w%s.pdf", r.workingPaperHost, numericID, numericID),
		)
	}

	candidates = append(candidates,
		fmt.Sprintf("https://%s/papers/%s", r.workingPaperHost, id),
	)

	return candidates
}

// IdentifierFromURL 从合成的制品URL还原论文ID
// 用于嵌入策略引用的兜底解析: 主URL未确认时改走候选模板探测
func IdentifierFromURL(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 {
		return "", false
	}

	last := segments[len(segments)-1]
	id := strings.TrimSuffix(last, ".pdf")
	if id == "" {
		return "", false
	}
	return id, true
}

// scanLandingPage 取回落地页并扫描PDF下载链接
func (r *Resolver) scanLandingPage(ctx context.Context, pageURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.probeClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		// goquery解析失败时退回tokenizer逐token扫描
		return scanAnchorsLenient(body, base)
	}

	var artifactURL string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if !downloadLabelPattern.MatchString(text) {
			return true
		}

		href, _ := s.Attr("href")
		resolved, err := base.Parse(href)
		if err != nil {
			return true
		}

		if strings.Contains(strings.ToLower(resolved.String()), ".pdf") {
			artifactURL = resolved.String()
			return false // 第一个命中即停止
		}
		return true
	})

	return artifactURL, artifactURL != ""
}
