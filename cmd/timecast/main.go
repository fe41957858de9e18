package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/urfave/cli/v2"

	"timecast/internal/app"
	"timecast/internal/shared/config"
	"timecast/internal/shared/logger"
	"timecast/internal/shared/types"
)

var opts struct {
	ConfigPath string
	Host       string
	Port       int
	LogLevel   string
}

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:        "config",
		Usage:       "path to timecast.ini",
		Value:       "configs/timecast.ini",
		EnvVars:     []string{"TIMECAST_CONFIG"},
		Destination: &opts.ConfigPath,
	},
	&cli.StringFlag{
		Name:        "host",
		Usage:       "bind address, overrides [server] host",
		EnvVars:     []string{"TIMECAST_HOST"},
		Destination: &opts.Host,
	},
	&cli.IntFlag{
		Name:        "port",
		Usage:       "bind port, overrides [server] port",
		EnvVars:     []string{"TIMECAST_PORT"},
		Destination: &opts.Port,
	},
	&cli.StringFlag{
		Name:        "log-level",
		Usage:       "debug, info, warn or error",
		EnvVars:     []string{"LOG_LEVEL"},
		Destination: &opts.LogLevel,
	},
}

func main() {
	a := &cli.App{
		Name:    "timecast",
		Usage:   "stream UTC timestamps to WebSocket clients",
		Version: commitHash(),
		Flags:   flags,
		Action:  action,
	}
	if err := a.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
}

func action(c *cli.Context) error {
	// 1. 加载 .ini 配置
	cfg, err := config.LoadIni(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", opts.ConfigPath, err)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 2. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 3. 创建并运行服务器
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.New(cfg).Run(ctx)
}

func applyFlags(c *cli.Context, cfg *types.Config) {
	if c.IsSet("host") {
		cfg.ServerConf.Host = opts.Host
	}
	if c.IsSet("port") {
		cfg.ServerConf.Port = opts.Port
	}
	if c.IsSet("log-level") {
		cfg.LogConf.Level = opts.LogLevel
	}
}

func commitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
		return info.Main.Version
	}
	return "unknown"
}
