package extractor

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/scholarfetch/scholarfetch/internal/models"
	"github.com/scholarfetch/scholarfetch/internal/utils"
)

const (
	// MinTitleLength 启发式扫描接受的最短标题长度(排除标签、编号等)
	MinTitleLength = 10
)

// artifactPathPatterns 直链扫描识别的制品路径约定
var artifactPathPatterns = []string{"/papers/", "/conf_papers/", ".pdf"}

// sessionClassPattern 渲染后DOM中论文容器的class命名模式
var sessionClassPattern = regexp.MustCompile(`(?i)session|paper|presentation`)

// Extractor 引用提取器
// 对页面内容运行多个独立策略并合并去重,纯函数,自身不做网络I/O
type Extractor struct {
	confPaperPath string // 嵌入ID合成URL的路径模板,含%s占位符
}

// New 创建提取器
func New() *Extractor {
	return &Extractor{
		confPaperPath: "/conf_papers/%s.pdf",
	}
}

// Extract 从页面内容提取论文引用
// 策略独立运行,单个策略失败不影响其他策略;输出按发现顺序去重,
// 先运行的策略置信度更高,URL冲突时保留先到的标题
func (e *Extractor) Extract(pageContent string, baseURL string) []models.PageReference {
	base, err := url.Parse(baseURL)
	if err != nil {
		utils.Warnf("解析基准URL失败 [%s]: %v", baseURL, err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageContent))
	if err != nil {
		utils.Warnf("解析页面HTML失败: %v", err)
		return nil
	}

	var found []models.PageReference
	found = append(found, e.scanDirectLinks(doc, base)...)
	found = append(found, e.scanEmbeddedData(doc, base)...)
	found = append(found, e.scanRenderedHeuristic(doc, base)...)

	refs := dedupReferences(found)

	utils.Debugf("提取完成: 候选%d个, 去重后%d个", len(found), len(refs))
	return refs
}

// scanDirectLinks 策略1: 直链扫描
// 命中已知制品路径约定的超链接,以链接可见文本为标题
func (e *Extractor) scanDirectLinks(doc *goquery.Document, base *url.URL) []models.PageReference {
	var refs []models.PageReference

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !matchesArtifactPath(href) {
			return
		}

		absolute, ok := normalizeURL(base, href)
		if !ok {
			return
		}

		refs = append(refs, models.PageReference{
			URL:      absolute,
			Title:    strings.TrimSpace(s.Text()),
			Strategy: models.StrategyDirectLink,
		})
	})

	return refs
}

// scanRenderedHeuristic 策略3: 渲染后DOM启发式扫描
// 在class匹配session/paper/presentation的容器中查找足够长的标题元素,
// 再到标题的父容器中找到同级超链接
func (e *Extractor) scanRenderedHeuristic(doc *goquery.Document, base *url.URL) []models.PageReference {
	var refs []models.PageReference

	doc.Find("div, section").Each(func(_ int, container *goquery.Selection) {
		class, _ := container.Attr("class")
		if !sessionClassPattern.MatchString(class) {
			return
		}

		container.Find("h3, h4, strong").Each(func(_ int, heading *goquery.Selection) {
			title := strings.TrimSpace(heading.Text())
			if utf8.RuneCountInString(title) <= MinTitleLength {
				return // 太短,可能是标签或编号
			}

			parent := heading.Parent()
			if parent.Length() == 0 {
				return
			}

			link := parent.Find("a[href]").First()
			if link.Length() == 0 {
				return
			}

			href, _ := link.Attr("href")
			absolute, ok := normalizeURL(base, href)
			if !ok {
				return
			}

			refs = append(refs, models.PageReference{
				URL:      absolute,
				Title:    title,
				Strategy: models.StrategyRenderedHeuristic,
			})
		})
	})

	return refs
}

// matchesArtifactPath 判断链接是否命中制品路径约定
func matchesArtifactPath(href string) bool {
	lower := strings.ToLower(href)
	for _, pattern := range artifactPathPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// normalizeURL 相对于基准URL归一化为绝对形式
func normalizeURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	resolved, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}

	return resolved.String(), true
}

// dedupReferences 按归一化URL去重,保留首次出现(先到策略的标题优先)
func dedupReferences(refs []models.PageReference) []models.PageReference {
	seen := make(map[string]bool, len(refs))
	result := make([]models.PageReference, 0, len(refs))

	for _, ref := range refs {
		if seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		result = append(result, ref)
	}

	return result
}
