package models

import "fmt"

// FetchMode 页面获取模式
type FetchMode string

const (
	ModeAuto     FetchMode = "auto"     // 先静态,提取为空时回退渲染
	ModeStatic   FetchMode = "static"   // 仅静态获取
	ModeRendered FetchMode = "rendered" // 仅渲染获取
)

// ScrapeConfig 抓取配置
type ScrapeConfig struct {
	Mode            FetchMode `json:"mode" mapstructure:"mode"`                           // 获取模式 (默认:auto)
	Delay           float64   `json:"delay" mapstructure:"delay"`                         // 下载间最小间隔(秒) (默认:2.0)
	SettleSeconds   int       `json:"settle_seconds" mapstructure:"settle_seconds"`       // 渲染后等待脚本执行的时间(秒) (默认:5)
	ProbeTimeout    int       `json:"probe_timeout" mapstructure:"probe_timeout"`         // HEAD探测超时(秒) (默认:10)
	DownloadTimeout int       `json:"download_timeout" mapstructure:"download_timeout"`   // 下载超时(秒) (默认:60)
	Headless        bool      `json:"headless" mapstructure:"headless"`                   // 无头浏览器模式 (默认:true)
	MinFreeMemoryMB int       `json:"min_free_memory_mb" mapstructure:"min_free_memory_mb"` // 启动浏览器前的可用内存下限(MB)

	// 候选URL模板的站点参数
	ConferenceHost   string `json:"conference_host" mapstructure:"conference_host"`       // 会议论文站点 (默认:conference.nber.org)
	WorkingPaperHost string `json:"working_paper_host" mapstructure:"working_paper_host"` // 工作论文站点 (默认:www.nber.org)
}

// Validate 验证配置
func (c *ScrapeConfig) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeStatic, ModeRendered:
	default:
		return fmt.Errorf("无效的获取模式: %s (可选: auto|static|rendered)", c.Mode)
	}
	if c.Delay < 0 || c.Delay > 600 {
		return fmt.Errorf("下载间隔必须在0-600秒之间")
	}
	if c.SettleSeconds < 0 || c.SettleSeconds > 60 {
		return fmt.Errorf("渲染等待时间必须在0-60秒之间")
	}
	if c.ProbeTimeout < 1 || c.ProbeTimeout > 120 {
		return fmt.Errorf("探测超时必须在1-120秒之间")
	}
	if c.DownloadTimeout < 1 || c.DownloadTimeout > 3600 {
		return fmt.Errorf("下载超时必须在1-3600秒之间")
	}
	return nil
}
