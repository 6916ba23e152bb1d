package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/zimeng1/mc-base/pkg/distributed/xdlock"
	"github.com/zimeng1/mc-base/pkg/observability/xlog"
	"github.com/zimeng1/mc-base/pkg/storage/xstore"
)

const defaultLease = 30 * time.Second

func createCommands() []*cli.Command {
	return []*cli.Command{
		createAcquireCommand(),
		createReleaseCommand(),
		createInspectCommand(),
		createExecCommand(),
	}
}

func leaseFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "lease",
		Aliases: []string{"l"},
		Usage:   "租约时长，向上取整到秒",
		Value:   defaultLease,
	}
}

func createAcquireCommand() *cli.Command {
	return &cli.Command{
		Name:      "acquire",
		Aliases:   []string{"a"},
		Usage:     "加锁，成功时输出 token",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			leaseFlag(),
			&cli.StringFlag{
				Name:  "token",
				Usage: "持有者 token，默认自动生成",
			},
			&cli.UintFlag{
				Name:  "retry",
				Usage: "被占用时的最大尝试次数（含首次），0 表示只尝试一次",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := keyArg(cmd)
			if err != nil {
				return err
			}
			return withLocker(ctx, cmd, func(ctx context.Context, l *locker) error {
				return cmdAcquire(ctx, l, key, cmd.String("token"), cmd.Duration("lease"), cmd.Uint("retry"))
			})
		},
	}
}

func createReleaseCommand() *cli.Command {
	return &cli.Command{
		Name:      "release",
		Aliases:   []string{"r"},
		Usage:     "以 token 释放锁",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "token",
				Usage: "加锁时使用的 token",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := keyArg(cmd)
			if err != nil {
				return err
			}
			token := cmd.String("token")
			if token == "" {
				return newUsageError("release 需要 --token", nil)
			}
			return withLocker(ctx, cmd, func(ctx context.Context, l *locker) error {
				return cmdRelease(ctx, l, key, token)
			})
		},
	}
}

func createInspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Aliases:   []string{"i"},
		Usage:     "查看锁状态与剩余租约",
		ArgsUsage: "<key>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := keyArg(cmd)
			if err != nil {
				return err
			}
			return withLocker(ctx, cmd, func(ctx context.Context, l *locker) error {
				return cmdInspect(ctx, l, key)
			})
		},
	}
}

func createExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Aliases:   []string{"x"},
		Usage:     "持有锁期间执行命令，结束后释放",
		ArgsUsage: "<key> -- <command> [args...]",
		Flags:     []cli.Flag{leaseFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := keyArg(cmd)
			if err != nil {
				return err
			}
			argv := cmd.Args().Tail()
			if len(argv) > 0 && argv[0] == "--" {
				argv = argv[1:]
			}
			if len(argv) == 0 {
				return newUsageError("exec 需要在 key 之后指定要执行的命令", nil)
			}
			return withLocker(ctx, cmd, func(ctx context.Context, l *locker) error {
				return cmdExec(ctx, l, key, cmd.Duration("lease"), argv)
			})
		},
	}
}

func keyArg(cmd *cli.Command) (string, error) {
	key := cmd.Args().First()
	if key == "" {
		return "", newUsageError(cmd.Name+" 需要指定 <key>", nil)
	}
	return key, nil
}

// locker 一次命令执行所需的锁与输出
type locker struct {
	coord   *xdlock.Coordinator
	cmd     *cli.Command
	logger  xlog.Logger
	timeout time.Duration
}

func (l *locker) printf(format string, args ...any) {
	fmt.Fprintf(l.cmd.Root().Writer, format, args...)
}

func (l *locker) errorf(format string, args ...any) {
	fmt.Fprintf(l.cmd.Root().ErrWriter, format, args...)
}

// opContext 单次存储操作的超时上下文
func (l *locker) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

// withLocker 加载配置、打开存储并创建 Coordinator，fn 返回后关闭所有资源
func withLocker(ctx context.Context, cmd *cli.Command, fn func(ctx context.Context, l *locker) error) (err error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := buildLogger(s.Log, cmd.Root().ErrWriter)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeLog()) }()

	tokens, err := tokenGenerator(s.Lock)
	if err != nil {
		return err
	}

	conn, err := xstore.Open(ctx, &s.Store)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, conn.Close()) }()

	coord, err := xdlock.New(conn.Raw(),
		xdlock.WithKeyPrefix(s.Lock.Prefix),
		xdlock.WithLogger(logger),
		xdlock.WithTokenGenerator(tokens),
	)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "store opened",
		xlog.Component("xlockctl"),
		xlog.Transport(coord.Kind().String()),
	)

	return fn(ctx, &locker{
		coord:   coord,
		cmd:     cmd,
		logger:  logger,
		timeout: cmd.Duration("timeout"),
	})
}

func cmdAcquire(ctx context.Context, l *locker, key, token string, lease time.Duration, retries uint) error {
	if token == "" {
		var err error
		if token, err = l.coord.NewToken(); err != nil {
			return err
		}
	}

	var err error
	if retries > 1 {
		// 重试期间每次尝试各自受 --timeout 约束，整体不设上限
		err = l.coord.AcquireRetryErr(ctx, key, token, lease, xdlock.WithRetryAttempts(retries))
	} else {
		opCtx, cancel := l.opContext(ctx)
		err = l.coord.TryAcquireErr(opCtx, key, token, lease)
		cancel()
	}
	if err != nil {
		return reportFailure(l, "加锁", key, err)
	}
	l.printf("%s\n", token)
	return nil
}

func cmdRelease(ctx context.Context, l *locker, key, token string) error {
	opCtx, cancel := l.opContext(ctx)
	defer cancel()
	if err := l.coord.ReleaseErr(opCtx, key, token); err != nil {
		return reportFailure(l, "释放", key, err)
	}
	l.printf("已释放 %s\n", key)
	return nil
}

func cmdInspect(ctx context.Context, l *locker, key string) error {
	opCtx, cancel := l.opContext(ctx)
	defer cancel()
	state, err := l.coord.Inspect(opCtx, key)
	if err != nil {
		return reportFailure(l, "查询", key, err)
	}
	switch {
	case !state.Held:
		l.printf("%s: 未持有\n", key)
	case state.TTL == 0:
		l.printf("%s: 已持有，无过期时间\n", key)
	default:
		l.printf("%s: 已持有，剩余 %s\n", key, state.TTL.Round(time.Millisecond))
	}
	return nil
}

func cmdExec(ctx context.Context, l *locker, key string, lease time.Duration, argv []string) error {
	var childErr error
	ran, err := l.coord.WithLock(ctx, key, lease, func(ctx context.Context) error {
		c := exec.CommandContext(ctx, argv[0], argv[1:]...)
		c.Stdin = os.Stdin
		c.Stdout = l.cmd.Root().Writer
		c.Stderr = l.cmd.Root().ErrWriter
		childErr = c.Run()
		return childErr
	})
	if !ran {
		if err == nil {
			err = xdlock.ErrLockContended
		}
		return reportFailure(l, "加锁", key, err)
	}
	if childErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(childErr, &exitErr) && exitErr.ExitCode() > 0 {
		return &exitError{code: exitErr.ExitCode()}
	}
	return fmt.Errorf("执行 %s: %w", argv[0], childErr)
}

// reportFailure 输出失败原因，参数错误映射为退出码 2，其余为 1
func reportFailure(l *locker, action, key string, err error) error {
	if errors.Is(err, xdlock.ErrInvalidArgument) {
		return newUsageError(action+" "+key, err)
	}
	switch xdlock.OutcomeOf(err) {
	case xdlock.OutcomeContended:
		l.errorf("%s %s 失败: 锁被占用\n", action, key)
	case xdlock.OutcomeMismatch:
		l.errorf("%s %s 失败: 锁不存在或不属于该 token\n", action, key)
	default:
		l.errorf("%s %s 失败: %v\n", action, key, err)
	}
	return &exitError{code: 1}
}
