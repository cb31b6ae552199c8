// Package main - quotectl
// 運用向けの CLI です。
//
// 使用法:
//
//	go run ./cmd/quotectl refresh
//	go run ./cmd/quotectl symbols list --all
//	go run ./cmd/quotectl token --subject ops
package main

import (
	"os"

	"quote_backend/cmd/quotectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
