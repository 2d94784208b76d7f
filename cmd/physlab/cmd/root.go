// Package cmd 包含 physlab CLI 工具的所有命令实现
// 使用 cobra 框架构建命令行接口
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// 全局命令行标志变量
var (
	cfgFile   string // 配置文件路径
	apiURL    string // API 服务器地址
	outputFmt string // 输出格式（table/json/yaml）
	apiKey    string // API Key，用于需要认证的接口
)

// rootCmd 是 CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "physlab",
	Short: "physlab - physics calculator CLI",
	Long: `physlab 是物理计算服务的命令行工具。

使用示例:
  # 列出全部计算模块
  physlab modules

  # 欧姆定律：已知电压和电阻求电流
  physlab solve ohms_law V=10 R=5

  # 科学计算器
  physlab calc "sin(30) + 2^3"

  # 单位换算
  physlab convert 10 m/s km/h

  # 实时查看新的计算记录
  physlab history follow`,
	SilenceUsage: true,
}

// Execute 执行根命令，由 main 包调用
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认为 $HOME/.physlab.yaml）")
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api-url", "u", "http://localhost:8080", "API 服务器地址")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "输出格式（table、json、yaml）")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API Key（服务端启用认证时使用）")

	viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
}

// initConfig 按优先级加载配置：命令行标志 > 环境变量 > 配置文件
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".physlab")
	}

	// 环境变量格式：PHYSLAB_<KEY>，如 PHYSLAB_API_URL
	viper.SetEnvPrefix("PHYSLAB")
	viper.AutomaticEnv()

	// 配置文件不存在时忽略
	_ = viper.ReadInConfig()
}
