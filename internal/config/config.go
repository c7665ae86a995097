package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis             Redis     `yaml:"redis"`
	SQLiteStoragePath string    `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"results.db"`
	PackPath          string    `yaml:"pack-path" env:"PACK_PATH" env-default:"pack.yml"`
	PacksDir          string    `yaml:"packs-dir" env:"PACKS_DIR"`
	Game              Game      `yaml:"game"`
	Publisher         Publisher `yaml:"publisher"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Game holds the session rules that are not part of the question pack.
type Game struct {
	ArbitrationTimeout time.Duration `yaml:"arbitration-timeout" env:"GAME_ARBITRATION_TIMEOUT" env-default:"10s"`
	BuzzSettle         time.Duration `yaml:"buzz-settle" env:"GAME_BUZZ_SETTLE" env-default:"0s"`
	MinPlayers         int           `yaml:"min-players" env:"GAME_MIN_PLAYERS" env-default:"2"`
	EliminateNegative  bool          `yaml:"eliminate-negative" env:"GAME_ELIMINATE_NEGATIVE" env-default:"true"`
}

type Publisher struct {
	BufferSize int `yaml:"buffer-size" env:"PUBLISHER_BUFFER_SIZE" env-default:"64"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// PackLibrary returns the directory loadPack may read from and the default
// pack name inside it. Without packs-dir it is the directory of pack-path.
func (that *Config) PackLibrary() (dir, name string) {
	if that.PacksDir == "" {
		return filepath.Dir(that.PackPath), filepath.Base(that.PackPath)
	}

	name, err := filepath.Rel(that.PacksDir, that.PackPath)
	if err != nil || !filepath.IsLocal(name) {
		return that.PacksDir, filepath.Base(that.PackPath)
	}

	return that.PacksDir, name
}
