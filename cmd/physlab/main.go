// Package main 是 physlab 命令行工具的入口点。
// physlab 调用物理计算服务完成公式求解、计算器、单位换算和历史查询。
package main

import (
	"os"

	"github.com/oriys/physlab/cmd/physlab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
