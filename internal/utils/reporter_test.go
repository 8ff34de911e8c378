package utils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scholarfetch/scholarfetch/internal/models"
)

func sampleReport() *models.RunReport {
	report := &models.RunReport{
		RunID:     "run-test",
		TargetURL: "https://conference.nber.org/conf/2024",
		StartTime: time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 8, 25, 10, 31, 0, 0, time.UTC),
		Stats:     models.RunStats{Found: 2, Duration: 60},
		Outcomes: []models.DownloadOutcome{
			{
				ID:          "o-1",
				SourceURL:   "https://conference.nber.org/conf_papers/f1.pdf",
				ArtifactURL: "https://conference.nber.org/conf_papers/f1.pdf",
				Title:       "First Paper",
				Filename:    "First_Paper.pdf",
				Status:      models.StatusSuccess,
				Timestamp:   time.Now(),
			},
			{
				ID:          "o-2",
				SourceURL:   "https://conference.nber.org/conf_papers/f2.pdf",
				Title:       "Second Paper",
				Status:      models.StatusFailed,
				ErrorDetail: "HTTP 404",
				Timestamp:   time.Now(),
			},
		},
	}
	report.Tally()
	return report
}

func TestGenerateReport(t *testing.T) {
	tempDir := t.TempDir()
	report := sampleReport()

	if err := NewReporter(tempDir).GenerateReport(report); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	jsonPath := filepath.Join(tempDir, "scrape_results_20260825_103000.json")
	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("JSON报告未生成: %v", err)
	}

	var restored models.RunReport
	if err := restored.FromJSON(jsonData); err != nil {
		t.Fatalf("JSON报告无法反序列化: %v", err)
	}
	if restored.RunID != report.RunID || len(restored.Outcomes) != 2 {
		t.Errorf("JSON报告内容不完整: %+v", restored)
	}

	csvPath := filepath.Join(tempDir, "download_summary_20260825_103000.csv")
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("CSV摘要未生成: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("读取CSV失败: %v", err)
	}

	// 表头 + 每个结果一行
	if len(rows) != 3 {
		t.Fatalf("CSV行数 = %d, want 3", len(rows))
	}
	if strings.Join(rows[0], ",") != "source_url,artifact_url,title,filename,status,error,timestamp" {
		t.Errorf("CSV表头 = %v", rows[0])
	}
	if rows[2][4] != string(models.StatusFailed) || rows[2][5] != "HTTP 404" {
		t.Errorf("失败行内容 = %v", rows[2])
	}
}

func TestGenerateReport_NoOutcomes(t *testing.T) {
	tempDir := t.TempDir()
	report := sampleReport()
	report.Outcomes = nil
	report.Tally()

	if err := NewReporter(tempDir).GenerateReport(report); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	// 无结果时仍有JSON报告, 但不生成CSV
	entries, _ := os.ReadDir(tempDir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".csv") {
			t.Errorf("空结果不应生成CSV: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("期望仅1个JSON报告, 得到%d个文件", len(entries))
	}
}
