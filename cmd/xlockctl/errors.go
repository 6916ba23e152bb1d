package main

import (
	"fmt"
	"strings"
)

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 参数或配置错误，退出码 2。
type usageError struct {
	msg string
	err error
}

func (e *usageError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *usageError) Unwrap() error { return e.err }

func newUsageError(msg string, err error) error {
	return &usageError{msg: msg, err: err}
}

// cliUsageMarkers urfave/cli 参数解析错误的特征文本
var cliUsageMarkers = []string{
	"flag provided but not defined",
	"invalid value",
	"No help topic for",
	"flag needs an argument",
	"Required flag",
}

// isCLIUsageError 判断错误是否来自 CLI 框架的参数解析
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, m := range cliUsageMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
