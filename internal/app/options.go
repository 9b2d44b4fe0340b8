package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：api 只提供 HTTP，worker 只消费队列与事件总线
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 归一化启动模式，空值视为 all
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode: %q", raw)
	}
}

func (o Options) runsHTTP() bool   { return o.Mode == ModeAll || o.Mode == ModeAPI }
func (o Options) runsWorker() bool { return o.Mode == ModeAll || o.Mode == ModeWorker }

// normalizeOptions 补齐默认参数并校验模式
func normalizeOptions(opts Options) (Options, error) {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode
	return opts, nil
}
