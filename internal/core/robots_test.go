package core

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testUserAgent = "scholarfetch/1.0 (research purposes)"

func robotsServer(t *testing.T, robotsBody string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, robotsBody)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAdvisoryDelay_CrawlDelayRaisesFloor(t *testing.T) {
	server := robotsServer(t, "User-agent: *\nCrawl-delay: 3\n")

	got := AdvisoryDelay(server.URL+"/conf/2024", 1*time.Second, testUserAgent)
	if got != 3*time.Second {
		t.Errorf("AdvisoryDelay() = %v, 站点声明更大间隔时应抬高到3s", got)
	}
}

func TestAdvisoryDelay_NeverLowersConfigured(t *testing.T) {
	server := robotsServer(t, "User-agent: *\nCrawl-delay: 1\n")

	got := AdvisoryDelay(server.URL+"/conf/2024", 5*time.Second, testUserAgent)
	if got != 5*time.Second {
		t.Errorf("AdvisoryDelay() = %v, 站点间隔更小时应保持配置值5s", got)
	}
}

func TestAdvisoryDelay_MissingRobots(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	got := AdvisoryDelay(server.URL+"/conf/2024", 2*time.Second, testUserAgent)
	if got != 2*time.Second {
		t.Errorf("AdvisoryDelay() = %v, 无robots.txt时应保持配置值", got)
	}
}

func TestAdvisoryDelay_DisallowedPathStillReturnsDelay(t *testing.T) {
	// 不允许的路径只告警, 间隔照常生效
	server := robotsServer(t, "User-agent: *\nDisallow: /conf/\nCrawl-delay: 4\n")

	got := AdvisoryDelay(server.URL+"/conf/2024", 1*time.Second, testUserAgent)
	if got != 4*time.Second {
		t.Errorf("AdvisoryDelay() = %v, want 4s", got)
	}
}

func TestAdvisoryDelay_UnreachableHost(t *testing.T) {
	got := AdvisoryDelay("http://127.0.0.1:1/conf", 2*time.Second, testUserAgent)
	if got != 2*time.Second {
		t.Errorf("AdvisoryDelay() = %v, 主机不可达时应保持配置值", got)
	}
}
