package core

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/scholarfetch/scholarfetch/internal/utils"
	"github.com/temoto/robotstxt"
)

// robotsFetchTimeout robots.txt获取超时
const robotsFetchTimeout = 5 * time.Second

// AdvisoryDelay 查询站点robots.txt,返回生效的下载间隔
// 这是一个建议性预检: 站点禁止抓取时告警但继续(保持限速),
// 站点声明的crawl-delay只会抬高配置间隔,绝不降低
func AdvisoryDelay(targetURL string, configured time.Duration, userAgent string) time.Duration {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return configured
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsed.Scheme, parsed.Host)

	client := &http.Client{Timeout: robotsFetchTimeout}
	req, err := http.NewRequest(http.MethodGet, robotsURL, nil)
	if err != nil {
		return configured
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		utils.Debugf("获取robots.txt失败 [%s]: %v", robotsURL, err)
		return configured
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		utils.Debugf("解析robots.txt失败 [%s]: %v", robotsURL, err)
		return configured
	}

	group := data.FindGroup(userAgent)
	if group == nil {
		return configured
	}

	if !group.Test(parsed.Path) {
		utils.Warnf("robots.txt不允许抓取 %s,继续执行但保持限速", targetURL)
	}

	if group.CrawlDelay > configured {
		utils.Infof("采用robots.txt声明的crawl-delay: %.1f秒", group.CrawlDelay.Seconds())
		return group.CrawlDelay
	}

	return configured
}
