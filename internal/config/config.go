package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/natevvv/snaproute/pkg/geometry"
)

const envPrefix = "SNAPROUTE_"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Network NetworkConfig `yaml:"network"`
	Routing RoutingConfig `yaml:"routing"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type NetworkConfig struct {
	Projection string `yaml:"projection" validate:"required"`
	// Bidirectional makes every edge not tagged one way traversable backwards.
	Bidirectional bool `yaml:"bidirectional"`
}

type RoutingConfig struct {
	Navigator       string  `yaml:"navigator" validate:"oneof=dijkstra astar"`
	MaxConcurrent   int64   `yaml:"max_concurrent" validate:"gte=0"`
	SnapPieceLength float64 `yaml:"snap_piece_length" validate:"gte=0"`
	SnapMaxRadius   float64 `yaml:"snap_max_radius" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig serves the Seoul node link network (EPSG:5186) from ./data/network.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8000",
			AllowedOrigins: []string{
				"http://localhost",
				"http://localhost:5173",
				"http://localhost:5174",
			},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{Path: "data/network"},
		Network: NetworkConfig{
			Projection: "EPSG:5186",
		},
		Routing: RoutingConfig{
			Navigator:       "dijkstra",
			SnapPieceLength: 50,
			SnapMaxRadius:   1000,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and finally the SNAPROUTE_* environment, after loading a .env file if one
// exists in the working directory.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()
		if err := cfg.decode(file); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("YAML syntax error in config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	parse := func(name string, set func(string) error) {
		if v, ok := lookup(envPrefix + name); ok {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
			}
		}
	}

	str("ADDR", &c.Server.Addr)
	parse("ALLOWED_ORIGINS", func(v string) error {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
		return nil
	})
	str("STORE_PATH", &c.Store.Path)
	str("PROJECTION", &c.Network.Projection)
	parse("BIDIRECTIONAL", func(v string) (err error) {
		c.Network.Bidirectional, err = strconv.ParseBool(v)
		return err
	})
	str("NAVIGATOR", &c.Routing.Navigator)
	parse("MAX_CONCURRENT", func(v string) (err error) {
		c.Routing.MaxConcurrent, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("SNAP_PIECE_LENGTH", func(v string) (err error) {
		c.Routing.SnapPieceLength, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("SNAP_MAX_RADIUS", func(v string) (err error) {
		c.Routing.SnapMaxRadius, err = strconv.ParseFloat(v, 64)
		return err
	})
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate checks field ranges and that the projection is known.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := geometry.ProjectionByName(c.Network.Projection); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Projection resolves the configured network frame.
func (c Config) Projection() (geometry.Projection, error) {
	return geometry.ProjectionByName(c.Network.Projection)
}

// NewLogger returns a logger set up with the configured level and format.
func (c LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.Level); err == nil {
		logger.SetLevel(level)
	}
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
