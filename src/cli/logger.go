package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"syndrrel/src/settings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Debug mode logs to stdout with the
// development config; otherwise the production config is used. When LogDir is
// set every run also gets its own timestamped log file.
func NewLogger(args *settings.Arguments) (*zap.SugaredLogger, error) {
	var config zap.Config
	if args.Debug {
		config = zap.NewDevelopmentConfig()
		config.OutputPaths = []string{"stdout"}
	} else {
		config = zap.NewProductionConfig()
		if !args.Verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
	}

	if args.LogDir != "" {
		if err := os.MkdirAll(args.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		logFile := filepath.Join(args.LogDir, fmt.Sprintf("%s_syndrrel.log", timestamp))
		config.OutputPaths = append(config.OutputPaths, logFile)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}
