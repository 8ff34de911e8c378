package main

import (
	"fmt"

	"github.com/scholarfetch/scholarfetch/internal/models"
)

// ValidateFlags 验证命令行参数
// 只检查显式传入的值,未传入的参数由配置层的默认值兜底
func ValidateFlags(targetURL, mode string, delay float64, settle int) error {
	if err := models.ValidateURL(targetURL); err != nil {
		return fmt.Errorf("无效的目标URL: %w", err)
	}

	if mode != "" {
		switch models.FetchMode(mode) {
		case models.ModeAuto, models.ModeStatic, models.ModeRendered:
		default:
			return fmt.Errorf("无效的获取模式: %s (可选: auto|static|rendered)", mode)
		}
	}

	if delay >= 0 && delay > 600 {
		return fmt.Errorf("下载间隔不能超过600秒")
	}

	if settle >= 0 && settle > 60 {
		return fmt.Errorf("渲染等待时间不能超过60秒")
	}

	return nil
}
