// Package main 启动 sdkcore 命令行.
package main

import (
	"os"

	"github.com/yeisme/sdkcore/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
