package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "TRACKER"

type LogConfig struct {
	Level string
	File  string
}

type RemoteConfig struct {
	URL     string
	Token   string
	UserID  string
	Timeout time.Duration
}

type LookupConfig struct {
	BaseURL    string
	Timeout    time.Duration
	USDAAPIKey string
}

type ServerConfig struct {
	Addr      string
	DBPath    string
	JWTSecret string
}

type Config struct {
	DBPath string
	Person string
	Log    LogConfig
	Remote RemoteConfig
	Lookup LookupConfig
	Server ServerConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("person", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.user", "")
	v.SetDefault("remote.timeout", "15s")
	v.SetDefault("lookup.base_url", "")
	v.SetDefault("lookup.timeout", "12s")
	v.SetDefault("lookup.usda_api_key", "")
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.db", "")
	v.SetDefault("server.jwt_secret", "")
}

// LoadConfig layers defaults, the config file, a .env file in the working
// directory and TRACKER_* variables, in increasing precedence. Flags bound
// on v win over all of them. A missing default config file is not an
// error; a missing explicit one is.
func LoadConfig(v *viper.Viper, configFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		path, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		configFile = path
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{
		DBPath: v.GetString("db"),
		Person: v.GetString("person"),
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		Remote: RemoteConfig{
			URL:     v.GetString("remote.url"),
			Token:   v.GetString("remote.token"),
			UserID:  v.GetString("remote.user"),
			Timeout: v.GetDuration("remote.timeout"),
		},
		Lookup: LookupConfig{
			BaseURL:    v.GetString("lookup.base_url"),
			Timeout:    v.GetDuration("lookup.timeout"),
			USDAAPIKey: v.GetString("lookup.usda_api_key"),
		},
		Server: ServerConfig{
			Addr:      v.GetString("server.addr"),
			DBPath:    v.GetString("server.db"),
			JWTSecret: v.GetString("server.jwt_secret"),
		},
	}
	if cfg.DBPath == "" {
		path, err := DefaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = path
	}
	if cfg.Server.DBPath == "" {
		path, err := DefaultServerDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.Server.DBPath = path
	}
	return cfg, nil
}
