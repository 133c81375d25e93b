package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// sections верхнеуровневые ключи, которые можно задать через окружение
var sections = map[string]bool{
	"server":    true,
	"redis":     true,
	"postgres":  true,
	"analyzer":  true,
	"features":  true,
	"readiness": true,
	"patterns":  true,
	"insights":  true,
	"ratelimit": true,
	"stream":    true,
	"logging":   true,
}

// Load читает YAML (если путь задан) и переопределяет значения окружением.
//
// Приоритет: переменные окружения, затем файл, затем значения по умолчанию.
// SERVER_PORT -> server.port, ANALYZER_WINDOW_SIZE -> analyzer.window_size.
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		data, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		content = data
	}
	return LoadBytes(content)
}

// LoadBytes то же, что Load, но YAML передается напрямую
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey переводит имя переменной в ключ koanf, разбивая по первому подчеркиванию.
// Переменные вне известных секций пропускаются.
func envKey(name string) string {
	parts := strings.SplitN(strings.ToLower(name), "_", 2)
	if len(parts) != 2 || !sections[parts[0]] || parts[1] == "" {
		return ""
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}
