package extractor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/scholarfetch/scholarfetch/internal/models"
	"github.com/scholarfetch/scholarfetch/internal/utils"
)

const (
	// MaxFallbackIDs 正则兜底扫描的最大ID数,防止无关脚本内容造成误报爆炸
	MaxFallbackIDs = 50
)

var (
	// papersAssignPattern 匹配脚本中的序列化数组赋值 Papers = JSON.parse('...')
	papersAssignPattern = regexp.MustCompile(`Papers\s*=\s*JSON\.parse\('(.*?)'\)`)

	// idFieldPattern 兜底: 直接从脚本原文提取带引号的id字段
	idFieldPattern = regexp.MustCompile(`"id":"([a-zA-Z0-9]+)"`)
)

// scanEmbeddedData 策略2: 嵌入数据扫描
// 在内联脚本中查找序列化数组赋值,解析成功则按记录ID合成制品URL;
// 主解析失败(转义损坏、JSON截断)时退回正则扫描,限前50个匹配
func (e *Extractor) scanEmbeddedData(doc *goquery.Document, base *url.URL) []models.PageReference {
	var refs []models.PageReference

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !strings.Contains(text, "Papers") {
			return
		}

		records, err := parsePapersAssignment(text)
		if err == nil {
			for _, rec := range records {
				if rec.Kind != models.RecordIdentified {
					continue // 无ID的记录无法合成URL
				}
				refs = append(refs, e.referenceForID(base, rec.ID, models.StrategyEmbeddedData))
			}
			return
		}

		// 主解析失败,记录并退回正则兜底
		parseErr := &models.ParseError{Strategy: models.StrategyEmbeddedData, Err: err}
		utils.Debugf("%v, 使用正则兜底扫描", parseErr)

		for _, id := range fallbackIDs(text) {
			refs = append(refs, e.referenceForID(base, id, models.StrategyEmbeddedID))
		}
	})

	return refs
}

// referenceForID 按站点路径模板为论文ID合成引用
func (e *Extractor) referenceForID(base *url.URL, id string, strategy models.SourceStrategy) models.PageReference {
	synthesized := fmt.Sprintf("%s://%s"+e.confPaperPath, base.Scheme, base.Host, id)
	return models.PageReference{
		URL:      synthesized,
		Title:    fmt.Sprintf("Paper %s", id),
		Strategy: strategy,
	}
}

// parsePapersAssignment 解析脚本中的序列化数组赋值
// 载荷是JS单引号字符串字面量,先解码转义再做JSON解析,
// 形状在此处决定一次(Identified/Untagged),下游不再探测键
func parsePapersAssignment(script string) ([]models.RawRecord, error) {
	match := papersAssignPattern.FindStringSubmatch(script)
	if match == nil {
		return nil, fmt.Errorf("未找到序列化数组赋值")
	}

	decoded, err := decodeJSStringLiteral(match[1])
	if err != nil {
		return nil, fmt.Errorf("解码字符串字面量失败: %w", err)
	}

	var rawObjects []map[string]interface{}
	if err := json.Unmarshal([]byte(decoded), &rawObjects); err != nil {
		return nil, fmt.Errorf("JSON解析失败: %w", err)
	}

	records := make([]models.RawRecord, 0, len(rawObjects))
	for _, obj := range rawObjects {
		records = append(records, models.ClassifyRecord(obj))
	}
	return records, nil
}

// fallbackIDs 从脚本原文提取带引号的id字段值,限前MaxFallbackIDs个
func fallbackIDs(script string) []string {
	matches := idFieldPattern.FindAllStringSubmatch(script, MaxFallbackIDs)

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}

	if len(matches) == MaxFallbackIDs {
		utils.Debugf("兜底扫描达到上限%d个,截断剩余匹配", MaxFallbackIDs)
	}
	return ids
}

// decodeJSStringLiteral 解码JS单引号字符串字面量的转义序列
// 支持 \' \" \\ \/ \n \r \t \b \f \0 \uXXXX \xXX
func decodeJSStringLiteral(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		if i+1 >= len(s) {
			return "", fmt.Errorf("字符串以孤立反斜杠结尾")
		}
		i++

		switch s[i] {
		case '\'', '"', '\\', '/':
			b.WriteByte(s[i])
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '0':
			b.WriteByte(0)
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("\\u转义序列被截断")
			}
			code, err := strconv.ParseUint(s[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("\\u转义序列无效: %w", err)
			}
			b.WriteRune(rune(code))
			i += 4
		case 'x':
			if i+2 >= len(s) {
				return "", fmt.Errorf("\\x转义序列被截断")
			}
			code, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("\\x转义序列无效: %w", err)
			}
			b.WriteByte(byte(code))
			i += 2
		default:
			// 未知转义,保留原字符
			b.WriteByte(s[i])
		}
	}

	return b.String(), nil
}
