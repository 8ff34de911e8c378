package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"github.com/scholarfetch/scholarfetch/internal/models"
	"github.com/scholarfetch/scholarfetch/internal/utils"
)

// StaticFetcher 静态获取器(使用Colly)
// 不执行页面脚本,适用于服务端渲染充分的页面
type StaticFetcher struct {
	timeout time.Duration
}

// NewStaticFetcher 创建静态获取器
func NewStaticFetcher(config models.ScrapeConfig) *StaticFetcher {
	return &StaticFetcher{
		timeout: time.Duration(config.ProbeTimeout) * time.Second,
	}
}

// FetchStatic 获取页面原始HTML
// 处理流程:
//  1. 创建一次性collector(每次请求独立,无共享会话状态)
//  2. 发起请求并捕获响应体
//  3. 按Content-Encoding解压(gzip/deflate/br)
func (sf *StaticFetcher) FetchStatic(ctx context.Context, pageURL string) (string, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // 允许访问自签名或过期证书的站点
			},
		},
		Timeout: sf.timeout,
	}

	c := colly.NewCollector(
		colly.UserAgent(UserAgent),
	)
	c.SetClient(httpClient)
	c.SetRequestTimeout(sf.timeout)

	var pageHTML string
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		// 取消检查: 请求前响应context取消
		if ctx.Err() != nil {
			r.Abort()
			fetchErr = ctx.Err()
			return
		}
		utils.Debugf("静态获取: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		body := r.Body

		// 解压响应体(如果有压缩)
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, r.Body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", pageURL, encoding, err)
			} else {
				body = decompressed
			}
		}

		pageHTML = string(body)
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return "", &models.FetchError{URL: pageURL, Op: "static", Err: err}
	}
	c.Wait()

	if fetchErr != nil {
		return "", &models.FetchError{URL: pageURL, Op: "static", Err: fetchErr}
	}
	if pageHTML == "" {
		return "", &models.FetchError{URL: pageURL, Op: "static", Err: fmt.Errorf("响应体为空")}
	}

	utils.Debugf("静态获取完成 [%s]: %d bytes", pageURL, len(pageHTML))
	return pageHTML, nil
}

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "":
		return body, nil

	default:
		// 未知编码,返回警告但仍然返回原始内容
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
