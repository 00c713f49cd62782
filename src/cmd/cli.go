package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/admi-n/nonce-Excavator/src/internal"
)

// CLIConfig 保存解析好的 CLI 选项以及供扫描器使用的规范化字段。
type CLIConfig struct {
	AIProvider    string // 例如 deepseek，为空表示离线模式
	Daemon        bool   // -d 启动周期扫描守护进程
	Interval      time.Duration
	SigSource     string // "db" 或 "explorer" - 从哪里获取签名
	TargetAddress string // 单个地址，一次性扫描时使用
	AddTarget     string // 把地址登记进调度目标表后退出
	ReportDir     string
	Verbose       bool
	Timeout       time.Duration

	Proxy string // HTTP 代理 (例如 http://127.0.0.1:7897)
}

// Validate 检查 CLIConfig 的必需/一致性输入。
func (c *CLIConfig) Validate() error {
	if c.AddTarget != "" {
		return nil
	}

	if !c.Daemon && c.TargetAddress == "" {
		return errors.New("需要 -d（守护进程模式）或 -t-address（一次性扫描），或 -add-target 登记目标")
	}
	if c.Daemon && c.TargetAddress != "" {
		return errors.New("-d 与 -t-address 不能同时使用")
	}
	if c.SigSource != "" && c.SigSource != "db" && c.SigSource != "explorer" {
		return errors.New("-src 必须是 db 或 explorer")
	}
	if err := internal.ValidateProxyURL(c.Proxy); err != nil {
		return err
	}
	return nil
}

// showHelp 显示帮助信息
func showHelp(topic string) {
	switch topic {
	case "d", "daemon":
		showDaemonHelp()
	case "ai":
		showAIHelp()
	case "t", "target", "t-address":
		showTargetHelp()
	case "src", "source":
		showSourceHelp()
	default:
		showGeneralHelp()
	}
}

// showGeneralHelp 显示通用帮助
func showGeneralHelp() {
	fmt.Println("🔍 Nonce Excavator - ECDSA 签名弱点监控工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  excavator [命令] [选项]")
	fmt.Println()
	fmt.Println("主要命令:")
	fmt.Println("  -d                启动周期扫描守护进程")
	fmt.Println("  -t-address <addr> 一次性扫描单个地址")
	fmt.Println("  -add-target <addr> 把地址登记进调度目标表")
	fmt.Println("  -ai <provider>    指定AI提供商（可选，为空时走离线决策）")
	fmt.Println("  -src <source>     指定签名来源: db | explorer")
	fmt.Println()
	fmt.Println("获取特定命令的帮助:")
	fmt.Println("  excavator -d --help      # 守护进程模式帮助")
	fmt.Println("  excavator -ai --help     # AI提供商帮助")
	fmt.Println("  excavator -t --help      # 扫描目标帮助")
	fmt.Println("  excavator -src --help    # 签名来源帮助")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  excavator -t-address 0x123... -src explorer -ai deepseek")
	fmt.Println("  excavator -d -interval 5m")
	fmt.Println("  excavator -add-target 0x123...")
}

// showDaemonHelp 显示守护进程模式帮助
func showDaemonHelp() {
	fmt.Println("🔁 守护进程模式 (-d)")
	fmt.Println()
	fmt.Println("功能: 按固定间隔循环扫描调度目标表中的活跃地址")
	fmt.Println()
	fmt.Println("周期语义:")
	fmt.Println("  每个周期串行处理全部目标，周期之间不会重叠；")
	fmt.Println("  单个目标失败（包括崩溃）不影响其余目标和后续周期")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -interval <dur>     扫描间隔 (例如 5m、300s，默认读配置)")
	fmt.Println("  -ai <provider>      决策使用的AI提供商（为空走规则表）")
	fmt.Println("  -src <source>       签名来源: db | explorer")
	fmt.Println("  -proxy <url>        使用HTTP代理")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  excavator -d                           # 默认间隔")
	fmt.Println("  excavator -d -interval 10m -ai deepseek")
	fmt.Println("  excavator -d -src explorer -proxy http://127.0.0.1:7897")
}

// showAIHelp 显示AI提供商帮助
func showAIHelp() {
	fmt.Println("🤖 AI提供商 (-ai)")
	fmt.Println()
	fmt.Println("功能: 指定用于风险评分和扫描决策的AI模型")
	fmt.Println()
	fmt.Println("支持的提供商:")
	fmt.Println("  chatgpt5     OpenAI ChatGPT-5 (推荐)")
	fmt.Println("  openai       OpenAI GPT-4")
	fmt.Println("  gpt4         OpenAI GPT-4")
	fmt.Println("  deepseek     DeepSeek AI")
	fmt.Println("  local-llm    本地LLM (Ollama)")
	fmt.Println("  ollama       本地Ollama")
	fmt.Println()
	fmt.Println("离线模式:")
	fmt.Println("  不指定 -ai 时使用确定性评分和规则表决策，行为完全可复现")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  excavator -t-address 0x123... -ai deepseek")
	fmt.Println("  excavator -d -ai local-llm")
	fmt.Println()
	fmt.Println("配置:")
	fmt.Println("  在 config/settings.yaml 中设置API密钥")
	fmt.Println("  或使用环境变量: OPENAI_API_KEY, DEEPSEEK_API_KEY")
}

// showTargetHelp 显示扫描目标帮助
func showTargetHelp() {
	fmt.Println("🎯 扫描目标")
	fmt.Println()
	fmt.Println("功能: 指定要扫描的地址")
	fmt.Println()
	fmt.Println("相关选项:")
	fmt.Println("  -t-address <addr>    一次性扫描单个地址，完成后生成报告")
	fmt.Println("  -add-target <addr>   把地址登记进调度目标表（供 -d 模式使用）")
	fmt.Println("  -report-dir <dir>    一次性扫描报告输出目录（默认 reports）")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  excavator -t-address 0x123... -src explorer")
	fmt.Println("  excavator -add-target 0x123...")
}

// showSourceHelp 显示签名来源帮助
func showSourceHelp() {
	fmt.Println("📡 签名来源 (-src)")
	fmt.Println()
	fmt.Println("功能: 指定从哪里获取地址的交易签名")
	fmt.Println()
	fmt.Println("支持的来源:")
	fmt.Println("  db           从 signatures 表读取已采集的原始签名 (默认)")
	fmt.Println("  explorer     从区块浏览器 API 拉取交易的 r/s/v 分量")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  excavator -t-address 0x123... -src db")
	fmt.Println("  excavator -t-address 0x123... -src explorer -proxy http://127.0.0.1:7897")
}

// ParseFlags 解析 os.Args 并返回 CLIConfig 或错误。用于从 main 调用。
func ParseFlags() (*CLIConfig, error) {
	// 检查是否请求帮助
	if len(os.Args) > 1 {
		// 处理特定命令的帮助请求 (如 -d --help, -ai --help)
		for i := 1; i < len(os.Args)-1; i++ {
			if os.Args[i+1] == "--help" || os.Args[i+1] == "-h" {
				cmd := os.Args[i]
				if strings.HasPrefix(cmd, "--") {
					cmd = cmd[2:]
				} else if strings.HasPrefix(cmd, "-") {
					cmd = cmd[1:]
				}
				showHelp(cmd)
				os.Exit(0)
			}
		}

		// 处理通用帮助请求
		for _, arg := range os.Args[1:] {
			if arg == "--help" || arg == "-h" {
				showGeneralHelp()
				os.Exit(0)
			}
		}
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.Usage = func() {
		showGeneralHelp()
	}

	daemon := fs.Bool("d", false, "启动周期扫描守护进程")
	interval := fs.Duration("interval", 0, "守护进程扫描间隔（例如 5m），0 表示读配置")
	ai := fs.String("ai", "", "AI provider to use (e.g. deepseek)，为空走离线决策")
	src := fs.String("src", "db", "签名来源: db | explorer")
	taddress := fs.String("t-address", "", "单个地址，一次性扫描时使用")
	addTarget := fs.String("add-target", "", "把地址登记进调度目标表后退出")
	reportDir := fs.String("report-dir", "reports", "一次性扫描报告输出目录")
	proxy := fs.String("proxy", "", "可选 HTTP 代理，例如 http://127.0.0.1:7897")
	verbose := fs.Bool("v", false, "Verbose output")
	timeout := fs.Duration("timeout", 30*time.Second, "Per-AI request timeout")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}

	cfg := &CLIConfig{
		AIProvider:    strings.TrimSpace(*ai),
		Daemon:        *daemon,
		Interval:      *interval,
		SigSource:     strings.ToLower(strings.TrimSpace(*src)),
		TargetAddress: strings.TrimSpace(*taddress),
		AddTarget:     strings.TrimSpace(*addTarget),
		ReportDir:     strings.TrimSpace(*reportDir),
		Proxy:         strings.TrimSpace(*proxy),
		Verbose:       *verbose,
		Timeout:       *timeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Run 是一个便利包装，解析 flags 并分派到相应处理器。
func Run() error {
	cfg, err := ParseFlags()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return Execute(cfg)
}

// PrintFatal 将错误打印到 stderr 并以非零代码退出。
func PrintFatal(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "错误:", err)
	os.Exit(1)
}
