package services

import (
	"strings"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger tags every event with the service id. LOG_LEVEL_<ID>, with
// the id upper-cased and dashes as underscores, sets the level of one
// service. The global level still applies.
type ServiceLogger struct {
	logger zerolog.Logger
}

func LevelEnvKey(id string) string {
	return "LOG_LEVEL_" + strings.ToUpper(strings.ReplaceAll(id, "-", "_"))
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	logger := log.With().Str("service", svc.ID()).Logger()
	if raw := common.GetEnvOrDefault(LevelEnvKey(svc.ID()), ""); raw != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			logger = logger.Level(lvl)
		}
	}
	return &ServiceLogger{logger: logger}
}

func (l *ServiceLogger) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *ServiceLogger) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *ServiceLogger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *ServiceLogger) Debug() *zerolog.Event {
	return l.logger.Debug()
}
