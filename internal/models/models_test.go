package models

import (
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://conference.nber.org/conf/2024", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScrapeConfig_Validate(t *testing.T) {
	valid := ScrapeConfig{
		Mode:            ModeAuto,
		Delay:           2.0,
		SettleSeconds:   5,
		ProbeTimeout:    10,
		DownloadTimeout: 60,
	}

	tests := []struct {
		name    string
		mutate  func(c *ScrapeConfig)
		wantErr bool
	}{
		{"有效配置", func(c *ScrapeConfig) {}, false},
		{"静态模式", func(c *ScrapeConfig) { c.Mode = ModeStatic }, false},
		{"渲染模式", func(c *ScrapeConfig) { c.Mode = ModeRendered }, false},
		{"无效模式", func(c *ScrapeConfig) { c.Mode = "fast" }, true},
		{"间隔为零", func(c *ScrapeConfig) { c.Delay = 0 }, false},
		{"间隔为负", func(c *ScrapeConfig) { c.Delay = -1 }, true},
		{"间隔过大", func(c *ScrapeConfig) { c.Delay = 601 }, true},
		{"等待时间过大", func(c *ScrapeConfig) { c.SettleSeconds = 61 }, true},
		{"探测超时过小", func(c *ScrapeConfig) { c.ProbeTimeout = 0 }, true},
		{"下载超时过大", func(c *ScrapeConfig) { c.DownloadTimeout = 3601 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassifyRecord(t *testing.T) {
	tests := []struct {
		name     string
		obj      map[string]interface{}
		wantKind RawRecordKind
		wantID   string
	}{
		{
			name:     "带ID的记录",
			obj:      map[string]interface{}{"id": "f227503", "title": "Some Paper"},
			wantKind: RecordIdentified,
			wantID:   "f227503",
		},
		{
			name:     "缺少ID字段",
			obj:      map[string]interface{}{"title": "Some Paper"},
			wantKind: RecordUntagged,
		},
		{
			name:     "ID为空字符串",
			obj:      map[string]interface{}{"id": ""},
			wantKind: RecordUntagged,
		},
		{
			name:     "ID不是字符串",
			obj:      map[string]interface{}{"id": float64(123)},
			wantKind: RecordUntagged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ClassifyRecord(tt.obj)
			if rec.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", rec.Kind, tt.wantKind)
			}
			if rec.ID != tt.wantID {
				t.Errorf("ID = %v, want %v", rec.ID, tt.wantID)
			}
		})
	}
}

func TestRunReport_Tally(t *testing.T) {
	report := &RunReport{
		RunID:     "test-run",
		TargetURL: "https://example.com/conf",
		StartTime: time.Now(),
		Stats:     RunStats{Found: 5, Duration: 1.5},
		Outcomes: []DownloadOutcome{
			{Status: StatusSuccess},
			{Status: StatusSuccess},
			{Status: StatusSkipped},
			{Status: StatusFailed},
		},
	}

	report.Tally()

	if report.Stats.Found != 5 {
		t.Errorf("Found = %d, 重新统计不应覆盖发现数", report.Stats.Found)
	}
	if report.Stats.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", report.Stats.Succeeded)
	}
	if report.Stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Stats.Skipped)
	}
	if report.Stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Stats.Failed)
	}
	if report.Stats.Duration != 1.5 {
		t.Errorf("Duration = %v, 重新统计不应覆盖耗时", report.Stats.Duration)
	}
}

func TestRunReport_JSONRoundtrip(t *testing.T) {
	report := &RunReport{
		RunID:     "run-1",
		TargetURL: "https://example.com/conf",
		Outcomes: []DownloadOutcome{
			{ID: "o-1", SourceURL: "https://example.com/papers/a.pdf", Status: StatusSuccess},
		},
	}
	report.Tally()

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var restored RunReport
	if err := restored.FromJSON(data); err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}

	if restored.RunID != report.RunID {
		t.Errorf("RunID = %v, want %v", restored.RunID, report.RunID)
	}
	if len(restored.Outcomes) != 1 || restored.Outcomes[0].Status != StatusSuccess {
		t.Errorf("Outcomes没有完整还原: %+v", restored.Outcomes)
	}
}
