package config

import (
	"os"
	"strings"

	"github.com/jinzhu/configor"
)

var (
	Version string
)

type Config struct {
	Server struct {
		Addr string `default:"0.0.0.0" env:"GRAPHWAY_ADDR"`
		Port uint   `default:"8000" env:"GRAPHWAY_PORT"`
		// AdminToken is the shared admin secret. When empty, a random token
		// is generated at boot and printed to the log.
		AdminToken string `env:"GRAPHWAY_ADMIN_TOKEN"`
	}

	Contest struct {
		SnapshotPath string `default:"contests/contest_autosave.json" env:"GRAPHWAY_SNAPSHOT_PATH"`
	}

	Poller struct {
		IntervalSeconds uint `default:"10" env:"GRAPHWAY_POLL_INTERVAL"`
		BatchSize       uint `default:"500" env:"GRAPHWAY_POLL_BATCH"`
	}

	Judge struct {
		BaseURL         string `default:"https://codeforces.com/api" env:"GRAPHWAY_JUDGE_URL"`
		TimeoutSeconds  uint   `default:"5" env:"GRAPHWAY_JUDGE_TIMEOUT"`
		CacheTTLSeconds uint   `default:"3600" env:"GRAPHWAY_JUDGE_CACHE_TTL"`
	}

	Release bool `default:"false" env:"GRAPHWAY_RELEASE"`
}

func LoadConf(confPath string) (*Config, error) {
	conf := new(Config)
	loader := configor.New(&configor.Config{
		Debug:                strings.ToLower(os.Getenv("ENV")) == "debug",
		ErrorOnUnmatchedKeys: true,
	})

	var err error
	if confPath != "" {
		err = loader.Load(conf, confPath)
	} else {
		err = loader.Load(conf)
	}
	if err != nil {
		return nil, err
	}
	return conf, nil
}
