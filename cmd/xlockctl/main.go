// xlockctl 是分布式租约锁的运维命令行工具。
//
// 用法:
//
//	xlockctl [全局选项] <命令> [命令选项] <key> [参数]
//
// 全局选项:
//
//	-c, --config      配置文件（yaml/json，包含 store/log/lock 三段）
//	--mode            存储模式: standalone/sentinel/cluster/ring/pool/etcd
//	--addr            存储地址，可重复指定 (默认: 127.0.0.1:6379)
//	--prefix          锁 key 前缀
//	-t, --timeout     单次存储操作超时 (默认: 5s)
//	--log-level       日志级别 (默认: warn)
//	--log-format      日志格式 text/json
//	--log-file        日志文件，按大小轮转
//
// 命令:
//
//	acquire <key>            加锁，成功时输出 token
//	release <key>            以 --token 释放锁
//	inspect <key>            查看锁是否被持有及剩余租约
//	exec <key> -- <cmd...>   持有锁期间执行命令，结束后释放
//
// 退出码:
//
//	0: 成功
//	1: 未获取/未释放/存储失败（exec 时为子命令的退出码）
//	2: 参数或配置错误
//
// 示例:
//
//	xlockctl --addr 10.0.0.1:6379 acquire --lease 1m order:10086
//	xlockctl release --token host:42:0190... order:10086
//	xlockctl -c /etc/mcbase/lock.yaml exec --lease 10m nightly-report -- ./report.sh
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/zimeng1/mc-base/pkg/observability/xlog"
)

const (
	defaultTimeout = 5 * time.Second
	defaultAddr    = "127.0.0.1:6379"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xlockctl",
		Usage:     "分布式租约锁命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json）",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "存储模式: standalone/sentinel/cluster/ring/pool/etcd",
			},
			&cli.StringSliceFlag{
				Name:  "addr",
				Usage: "存储地址 host:port，可重复指定",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "锁 key 前缀",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "单次存储操作超时",
				Value:   defaultTimeout,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 " + strings.Join(xlog.LevelNames(), "/"),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 text/json",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径（默认 stderr）",
			},
		},
		Commands: createCommands(),
		// 禁止 urfave/cli 直接调用 os.Exit，由 run 统一映射退出码
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)

	if err := app.Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
