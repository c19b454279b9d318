package pwlogger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/santiagomed/patchwork/pkg/logger"
)

var (
	log  logger.Logger
	once sync.Once
)

// InitLogger initializes the logger. Output goes to ~/.patchwork/patchwork.log.
func InitLogger(level string) {
	once.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic("Failed to get user home directory: " + err.Error())
		}

		dir := filepath.Join(homeDir, ".patchwork")
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			panic("Failed to create .patchwork directory: " + err.Error())
		}

		logFile, err := os.OpenFile(filepath.Join(dir, "patchwork.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			panic("Failed to open log file: " + err.Error())
		}

		log = New(logFile, level)
	})
}

// GetLogger returns the logger instance
func GetLogger() logger.Logger {
	if log == nil {
		return logger.NewNullLogger()
	}
	return log
}

// New builds a zerolog-backed Logger writing JSON lines to w.
func New(w io.Writer, level string) logger.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &ZerologAdapter{logger: &zl}
}

// ZerologAdapter adapts zerolog.Logger to our Logger interface
type ZerologAdapter struct {
	logger *zerolog.Logger
}

func (z *ZerologAdapter) Debug(msg string) { z.logger.Debug().Msg(msg) }
func (z *ZerologAdapter) Info(msg string)  { z.logger.Info().Msg(msg) }
func (z *ZerologAdapter) Warn(msg string)  { z.logger.Warn().Msg(msg) }
func (z *ZerologAdapter) Error(msg string) { z.logger.Error().Msg(msg) }
func (z *ZerologAdapter) Fatal(msg string) { z.logger.Fatal().Msg(msg) }
func (z *ZerologAdapter) WithField(key string, value interface{}) logger.Logger {
	newLogger := z.logger.With().Interface(key, value).Logger()
	return &ZerologAdapter{logger: &newLogger}
}
