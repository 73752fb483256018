// Package logging builds the zap logger of a run: stderr plus an optional log
// file, every line tagged with the run id.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/fsops"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

const (
	rewriteFileName    = "llm-prompter.log"
	appendFileFormat   = "llm-prompter.%s.log"
	appendTimeLayout   = "20060102-150405"
	runIDFieldName     = "run_id"
	logFilePermissions = 0o644
	logDirPermissions  = 0o755
	unknownLevelFormat = "log.level %q is not debug, info, warn or error"
	openLogFileFormat  = "open log file %s"
	createLogDirFormat = "create log dir %s"
)

// Options carries what New needs besides the configuration.
type Options struct {
	Store  fsops.Store
	Stderr zapcore.WriteSyncer
	Now    func() time.Time
}

// ParseLevel maps a configured level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	trimmed := strings.TrimSpace(strings.ToLower(name))
	if trimmed == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(trimmed)
	if err != nil || level > zapcore.ErrorLevel {
		return zapcore.InfoLevel, failure.Newf(failure.ErrConfig, unknownLevelFormat, name)
	}
	return level, nil
}

// FileName returns the log file name for mode. Append mode starts a new
// timestamped file per run and never overwrites an older one.
func FileName(mode string, now time.Time) string {
	if mode == config.LogModeAppend {
		return fmt.Sprintf(appendFileFormat, now.Format(appendTimeLayout))
	}
	return rewriteFileName
}

// New builds the logger. The returned close function flushes the logger and
// closes the log file; call it once the run is over.
func New(configuration config.Log, options Options) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(configuration.Level)
	if err != nil {
		return nil, nil, err
	}
	if options.Stderr == nil {
		options.Stderr = zapcore.Lock(os.Stderr)
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	encoder := newEncoder(configuration.Format)
	cores := []zapcore.Core{zapcore.NewCore(encoder, options.Stderr, level)}

	closeFile := func() error { return nil }
	if dir := strings.TrimSpace(configuration.Dir); dir != "" {
		if options.Store.Fs == nil {
			options.Store = fsops.NewOS()
		}
		file, openErr := openLogFile(options.Store, dir, FileName(configuration.Mode, options.Now()))
		if openErr != nil {
			return nil, nil, openErr
		}
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(file), level))
		closeFile = file.Close
	}

	logger := zap.New(zapcore.NewTee(cores...)).With(zap.String(runIDFieldName, uuid.NewString()))
	closer := func() error {
		syncErr := logger.Sync()
		closeErr := closeFile()
		if closeErr != nil {
			return closeErr
		}
		return ignoreStderrSyncError(syncErr)
	}
	return logger, closer, nil
}

func newEncoder(format string) zapcore.Encoder {
	if strings.EqualFold(strings.TrimSpace(format), FormatJSON) {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

type syncFile interface {
	Write(p []byte) (int, error)
	Sync() error
	Close() error
}

func openLogFile(store fsops.Store, dir string, name string) (syncFile, error) {
	if err := store.Fs.MkdirAll(dir, logDirPermissions); err != nil {
		return nil, failure.Wrap(failure.ErrIO, err, createLogDirFormat, dir)
	}
	path := filepath.Join(dir, name)
	file, err := store.Fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, logFilePermissions)
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, err, openLogFileFormat, path)
	}
	return file, nil
}

// Syncing a terminal stderr fails with EINVAL or ENOTTY on some platforms.
func ignoreStderrSyncError(err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	if strings.Contains(message, "invalid argument") || strings.Contains(message, "inappropriate ioctl") {
		return nil
	}
	return err
}
