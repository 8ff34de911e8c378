package resolver

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// scanAnchorsLenient 用tokenizer逐token扫描锚元素
// goquery无法构树的残缺markup走这条路径,逻辑与scanLandingPage的DOM扫描一致:
// 锚文本命中下载标签且目标带.pdf后缀即确认
func scanAnchorsLenient(body []byte, base *url.URL) (string, bool) {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))

	var currentHref string
	var textBuf strings.Builder
	inAnchor := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return "", false

		case html.StartTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "href" {
					currentHref = attr.Val
					inAnchor = true
					textBuf.Reset()
					break
				}
			}

		case html.TextToken:
			if inAnchor {
				textBuf.Write(tokenizer.Text())
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			if token.Data != "a" || !inAnchor {
				continue
			}
			inAnchor = false

			text := strings.TrimSpace(textBuf.String())
			if !downloadLabelPattern.MatchString(text) {
				continue
			}

			resolved, err := base.Parse(currentHref)
			if err != nil {
				continue
			}
			if strings.Contains(strings.ToLower(resolved.String()), ".pdf") {
				return resolved.String(), true
			}
		}
	}
}
