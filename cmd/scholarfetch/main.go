package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scholarfetch/scholarfetch/internal/core"
	"github.com/scholarfetch/scholarfetch/internal/downloader"
	"github.com/scholarfetch/scholarfetch/internal/extractor"
	"github.com/scholarfetch/scholarfetch/internal/fetcher"
	"github.com/scholarfetch/scholarfetch/internal/resolver"
	"github.com/scholarfetch/scholarfetch/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 抓取参数
	targetURL  string
	mode       string
	delay      float64
	settle     int
	outputDir  string
	noProgress bool
)

var rootCmd = &cobra.Command{
	Use:   "scholarfetch",
	Short: "会议论文发现和下载工具",
	Long: `ScholarFetch - 会议论文页面抓取和PDF下载工具

针对动态渲染的会议议程页面,自动发现并礼貌下载论文PDF,支持:
  • 静态和浏览器渲染两种页面获取模式
  • 多策略引用提取(直链/内联脚本数据/渲染后DOM启发式)
  • 落地页到PDF的自动解析确认
  • robots.txt crawl-delay遵从和下载限速
  • 按文件名幂等,重复运行自动跳过已下载文件

使用示例:
  scholarfetch -u https://example-conference.org/program-2024
  scholarfetch -u https://example.org/agenda -m rendered --settle 10
  scholarfetch -u https://example.org/agenda --delay 5 -o papers

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if targetURL == "" {
			return cmd.Help()
		}

		// 验证参数
		if err := ValidateFlags(targetURL, mode, delay, settle); err != nil {
			return err
		}

		// 加载配置并合并命令行参数
		appConfig, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig.MergeCLIFlags(mode, delay, settle, outputDir)

		if err := appConfig.Scrape.Validate(); err != nil {
			return fmt.Errorf("配置无效: %w", err)
		}

		// 信号处理: Ctrl+C在引用之间优雅中断,已完成的结果保留
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			utils.Warnf("收到中断信号: %v, 将在当前引用完成后停止...", sig)
			cancel()
		}()

		// 组装流程
		showProgress := !noProgress
		pipeline := core.NewPipeline(
			appConfig.Scrape,
			fetcher.New(appConfig.Scrape),
			extractor.New(),
			resolver.New(appConfig.Scrape),
			downloader.New(appConfig.Scrape, appConfig.Output.DownloadDir, showProgress),
			showProgress,
		)

		// 执行抓取
		report, err := pipeline.Run(ctx, targetURL)
		if err != nil {
			return fmt.Errorf("抓取失败: %w", err)
		}

		// 生成报告
		reporter := utils.NewReporter(appConfig.Logging.LogDir)
		if err := reporter.GenerateReport(report); err != nil {
			utils.Warnf("生成报告失败: %v", err)
		}

		// 显示统计结果
		fmt.Println("\n==================================================")
		fmt.Println("📊 抓取统计")
		fmt.Println("==================================================")
		fmt.Printf("🔍 发现引用: %d\n", report.Stats.Found)
		fmt.Printf("✅ 下载成功: %d\n", report.Stats.Succeeded)
		fmt.Printf("⏭️  跳过(已存在): %d\n", report.Stats.Skipped)
		fmt.Printf("❌ 失败: %d\n", report.Stats.Failed)
		fmt.Printf("⏱️  总耗时: %.2f秒\n", report.Stats.Duration)
		fmt.Println("==================================================")

		utils.Info("✨ 抓取任务完成!")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ScholarFetch %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// 抓取参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "会议页面URL (必需)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "", "获取模式 (auto|static|rendered)")
	rootCmd.Flags().Float64Var(&delay, "delay", -1, "下载间最小间隔(秒)")
	rootCmd.Flags().IntVar(&settle, "settle", -1, "渲染后等待时间(秒)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "PDF输出目录")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "禁用进度条")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
