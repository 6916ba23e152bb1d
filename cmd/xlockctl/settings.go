package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/zimeng1/mc-base/pkg/config/xconf"
	"github.com/zimeng1/mc-base/pkg/distributed/xdlock"
	"github.com/zimeng1/mc-base/pkg/observability/xlog"
	"github.com/zimeng1/mc-base/pkg/storage/xstore"
)

// settings 配置文件结构，命令行参数优先于文件。
//
//	store:
//	  mode: cluster
//	  addrs: ["10.0.0.1:7000", "10.0.0.2:7000"]
//	log:
//	  level: info
//	  file: /var/log/xlockctl.log
//	lock:
//	  prefix: "lock:"
//	  tokens: sonyflake
//	  machineID: 12
type settings struct {
	Store xstore.Config `koanf:"store"`
	Log   logSettings   `koanf:"log"`
	Lock  lockSettings  `koanf:"lock"`
}

type logSettings struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"maxSizeMB"`
	MaxBackups int    `koanf:"maxBackups"`
	MaxAgeDays int    `koanf:"maxAgeDays"`
	Compress   bool   `koanf:"compress"`
}

type lockSettings struct {
	Prefix string `koanf:"prefix"`
	// Tokens token 生成方式：uuid（默认）或 sonyflake
	Tokens    string `koanf:"tokens"`
	MachineID uint16 `koanf:"machineID"`
}

func defaultSettings() *settings {
	return &settings{
		Store: *xstore.DefaultConfig(),
		Log:   logSettings{Level: "warn", Format: "text"},
		Lock:  lockSettings{Tokens: "uuid"},
	}
}

// loadSettings 合并默认值、配置文件与命令行参数
func loadSettings(cmd *cli.Command) (*settings, error) {
	s := defaultSettings()

	if path := cmd.String("config"); path != "" {
		cfg, err := xconf.New(path)
		if err != nil {
			return nil, newUsageError("加载配置失败", err)
		}
		if err := cfg.Unmarshal("", s); err != nil {
			return nil, newUsageError("解析配置失败", err)
		}
	}

	if cmd.IsSet("mode") {
		s.Store.Mode = xstore.Mode(cmd.String("mode"))
	}
	if cmd.IsSet("addr") {
		s.Store.Addrs = cmd.StringSlice("addr")
	}
	if len(s.Store.Addrs) == 0 {
		s.Store.Addrs = []string{defaultAddr}
	}
	if cmd.IsSet("prefix") {
		s.Lock.Prefix = cmd.String("prefix")
	}
	if cmd.IsSet("log-level") {
		s.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		s.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		s.Log.File = cmd.String("log-file")
	}

	if err := s.Store.Validate(); err != nil {
		return nil, newUsageError("存储配置无效", err)
	}
	return s, nil
}

// buildLogger 按配置创建日志器，返回的 cleanup 关闭日志文件
func buildLogger(ls logSettings, stderr io.Writer) (xlog.Logger, func() error, error) {
	b := xlog.New().
		SetOutput(stderr).
		SetLevelString(ls.Level).
		SetFormat(ls.Format)
	if ls.File != "" {
		var opts []xlog.RotateOption
		if ls.MaxSizeMB > 0 {
			opts = append(opts, xlog.RotateMaxSize(ls.MaxSizeMB))
		}
		if ls.MaxBackups > 0 {
			opts = append(opts, xlog.RotateMaxBackups(ls.MaxBackups))
		}
		if ls.MaxAgeDays > 0 {
			opts = append(opts, xlog.RotateMaxAge(ls.MaxAgeDays))
		}
		opts = append(opts, xlog.RotateCompress(ls.Compress))
		b = b.SetRotation(ls.File, opts...)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, newUsageError("日志配置无效", err)
	}
	return logger, cleanup, nil
}

// tokenGenerator 按配置选择 token 生成器
func tokenGenerator(ls lockSettings) (xdlock.TokenGenerator, error) {
	switch strings.ToLower(ls.Tokens) {
	case "", "uuid":
		return xdlock.UUIDToken, nil
	case "sonyflake":
		gen, err := xdlock.SonyflakeTokens(ls.MachineID)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, newUsageError(fmt.Sprintf("未知的 token 生成方式 %q", ls.Tokens), nil)
	}
}
