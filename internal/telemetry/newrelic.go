package telemetry

import (
	"example.com/cloudpanel/config"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// InitNewRelic initializes the New Relic application when enabled. A nil
// return with no error means telemetry is disabled.
func InitNewRelic(cfg config.NewRelicConfig, log *logrus.Logger) (*newrelic.Application, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, err
	}

	log.Info("New Relic monitoring initialized")
	return app, nil
}
