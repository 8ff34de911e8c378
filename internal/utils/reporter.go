package utils

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/scholarfetch/scholarfetch/internal/models"
)

// Reporter 报告生成器
// 每次运行输出一份机器可读的JSON记录和一份表格化的CSV摘要
type Reporter struct {
	logDir string
}

// NewReporter 创建报告生成器
func NewReporter(logDir string) *Reporter {
	return &Reporter{logDir: logDir}
}

// GenerateReport 生成运行报告
func (r *Reporter) GenerateReport(report *models.RunReport) error {
	if err := os.MkdirAll(r.logDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	timestamp := report.StartTime.Format("20060102_150405")

	// 保存JSON主报告
	jsonPath := filepath.Join(r.logDir, fmt.Sprintf("scrape_results_%s.json", timestamp))
	if err := r.saveJSONReport(jsonPath, report); err != nil {
		return err
	}

	// 保存CSV摘要
	if len(report.Outcomes) > 0 {
		csvPath := filepath.Join(r.logDir, fmt.Sprintf("download_summary_%s.csv", timestamp))
		if err := r.saveCSVSummary(csvPath, report.Outcomes); err != nil {
			return err
		}
	}

	Infof("✅ 报告已生成: %s", r.logDir)
	return nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// saveCSVSummary 保存CSV下载摘要
func (r *Reporter) saveCSVSummary(path string, outcomes []models.DownloadOutcome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"source_url", "artifact_url", "title", "filename", "status", "error", "timestamp"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}

	for _, o := range outcomes {
		row := []string{
			o.SourceURL,
			o.ArtifactURL,
			o.Title,
			o.Filename,
			string(o.Status),
			o.ErrorDetail,
			o.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("写入CSV行失败: %w", err)
		}
	}

	Debugf("保存CSV摘要: %s", path)
	return nil
}

// NewProgressBar 创建计数进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// NewByteProgressBar 创建字节进度条(用于大文件传输)
func NewByteProgressBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
}
