// Package config loads the server configuration from an optional YAML file.
// Flag values in main override file values, file values override defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type QueueConfig struct {
	Consensus int `yaml:"consensus"`
	Mempool   int `yaml:"mempool"`
	Snapshot  int `yaml:"snapshot"`
	Info      int `yaml:"info"`
}

type MempoolConfig struct {
	MaxPending int `yaml:"max_pending"`
}

type InfoConfig struct {
	MaxPending    int     `yaml:"max_pending"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

type WebsocketConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
	Endpoint      string `yaml:"endpoint"`
}

type Config struct {
	TcpAddress     string `yaml:"tcp_address"`
	UnixSocketPath string `yaml:"unix_socket_path"`
	MetricsAddress string `yaml:"metrics_address"`

	MaxConnections int   `yaml:"max_connections"`
	MaxFrameSize   int64 `yaml:"max_frame_size"`

	Queues    QueueConfig     `yaml:"queues"`
	Mempool   MempoolConfig   `yaml:"mempool"`
	Info      InfoConfig      `yaml:"info"`
	Websocket WebsocketConfig `yaml:"websocket"`
}

func Default() Config {
	return Config{
		TcpAddress:     "127.0.0.1:26658",
		MetricsAddress: "",
		MaxConnections: 64,
		MaxFrameSize:   1 << 20,
		Queues: QueueConfig{
			Consensus: 1,
			Mempool:   10,
			Snapshot:  8,
			Info:      100,
		},
		Mempool: MempoolConfig{
			MaxPending: 10,
		},
		Info: InfoConfig{
			MaxPending:    100,
			RatePerSecond: 50,
			RateBurst:     50,
		},
		Websocket: WebsocketConfig{
			Enabled:       false,
			ListenAddress: ":3000",
			Endpoint:      "/abci",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	// A file that names a unix socket but leaves tcp_address untouched means
	// "listen on unix"; only an explicit tcp_address alongside it conflicts.
	if cfg.UnixSocketPath != "" {
		if cfg.TcpAddress == Default().TcpAddress {
			cfg.TcpAddress = ""
		} else if cfg.TcpAddress != "" {
			return cfg, fmt.Errorf("config names both tcp_address and unix_socket_path; pick one")
		}
	}

	return cfg, nil
}
