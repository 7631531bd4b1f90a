package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"go.uber.org/zap"
)

// ChangeHandler receives a reloaded configuration
type ChangeHandler func(Config)

// Watch reloads the config file whenever it changes and passes each valid
// result to onChange. Invalid edits are logged and ignored. Watch is a
// no-op for a loader without a file and must be called after Load.
func (l *Loader) Watch(onChange ChangeHandler) {
	if l.path == "" || onChange == nil {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		c, err := l.decode()
		if err != nil {
			logger.Warn("ignoring invalid config change",
				zap.String("path", e.Name),
				zap.Error(err))
			return
		}
		logger.Info("configuration updated",
			zap.String("path", e.Name),
			zap.String("op", e.Op.String()))
		onChange(c)
	})
	l.v.WatchConfig()
}
