package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	// 业务默认值：报价 48 小时过期，两个清扫任务各自独立调度
	viper.SetDefault("offer.ttl_hours", 48)
	viper.SetDefault("cron.offer_expiry_spec", "0 0 0,12 * * *")
	viper.SetDefault("cron.room_sweep_spec", "0 30 * * * *")
	viper.SetDefault("catalog.timeout_seconds", 5)

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file not found: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}
