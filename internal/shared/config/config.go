package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"
	"timecast/internal/shared/types"
)

// LoadIni 加载 timecast.ini 配置文件，文件中缺失的键保留默认值。
// 文件不存在时直接使用默认值。
func LoadIni(fileName string) (*types.Config, error) {
	cfg := types.DefaultConfig()
	if fileName != "" {
		if _, err := os.Stat(fileName); err == nil {
			iniFile, err := ini.Load(fileName)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
			}
			if err := iniFile.MapTo(cfg); err != nil {
				return nil, fmt.Errorf("failed to map %s: %w", fileName, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat %s: %w", fileName, err)
		}
	}

	overrideFromEnvString(&cfg.ServerConf.Host, "TIMECAST_HOST")
	overrideFromEnvInt(&cfg.ServerConf.Port, "TIMECAST_PORT")
	overrideFromEnvString(&cfg.LogConf.Level, "LOG_LEVEL")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", fileName, err)
	}
	return cfg, nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
