package engine

import (
	"github.com/pkg/errors"

	"github.com/contactkeval/straddle-pricer/internal/config"
	"github.com/contactkeval/straddle-pricer/internal/data"
	"github.com/contactkeval/straddle-pricer/internal/logger"
)

// defaultSyntheticVol is used by the synthetic series when the config
// carries no volatility of its own.
const defaultSyntheticVol = 0.2

// NewProvider builds the market data provider named by the config source.
// A static source needs none and returns nil. With Fallback set, a
// synthetic series backs the primary provider.
func NewProvider(cfg *config.Config) (data.Provider, error) {
	src := cfg.Source
	switch src.Kind {
	case config.SourceStatic, "":
		return nil, nil
	case config.SourceSynthetic:
		logger.Infof("synthetic provider enabled")
		return synthetic(cfg), nil
	}

	var secondary data.Provider
	if src.Fallback {
		secondary = synthetic(cfg)
	}

	switch src.Kind {
	case config.SourceCSV:
		logger.Infof("csv provider enabled (%s)", src.Dir)
		return data.NewLocalCSVDataProvider(src.Dir, secondary), nil
	case config.SourceMassive:
		apiKey := src.APIKey()
		if apiKey == "" {
			if secondary == nil {
				return nil, errors.Errorf("massive provider needs an API key in $%s", src.APIKeyEnv)
			}
			logger.Infof("$%s not set, using %s provider", src.APIKeyEnv, secondary.Name())
			return secondary, nil
		}
		logger.Infof("massive provider enabled")
		return data.NewMassiveDataProvider(apiKey, secondary), nil
	default:
		return nil, errors.Errorf("unknown data source %q", src.Kind)
	}
}

func synthetic(cfg *config.Config) data.Provider {
	vol := cfg.Market.Volatility
	if vol <= 0 {
		vol = defaultSyntheticVol
	}
	return data.NewSyntheticProvider(cfg.Simulation.Seed, cfg.Source.StartPrice, vol)
}
