// Package configs 管理应用程序配置，包括后端存储、注册表、KV 和消息队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing GitStore config:
//
//	config := configs.GetConfig()
//	storeConfig := config.GitStore
//	fmt.Println("contents API:", storeConfig.ContentsURL("data/registry.json"))
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppVersion 应用版本号，编译时可通过 ldflags 覆盖.
var AppVersion = "1.0.0"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		GitStore       GitStoreConfig       `mapstructure:"gitstore"`        // GitStoreConfig 版本化文件后端存储配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 其它服务器配置，日志级别、服务器端口等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 认证配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件发布开关
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控指标配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 分布式追踪配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.AutomaticEnv()
	appViper.SetEnvPrefix("ASSETVAULT")

	// 读取配置，找不到配置文件时退回默认值+环境变量
	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig ServerConfig
		storeConfig  GitStoreConfig
		kvConfig     KVConfig
		mqConfig     MQConfig
		logConfig    LogConfig
		authConfig   AuthConfig
		eventsConfig EventsConfig
		metricsCfg   MetricsConfig
		tracingCfg   TracingConfig
		rlConfig     RateLimitConfig
		cbConfig     CircuitBreakerConfig
	)

	serverConfig.setDefaults(v)
	storeConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	logConfig.setDefaults(v)
	authConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	metricsCfg.setDefaults(v)
	tracingCfg.setDefaults(v)
	rlConfig.setDefaults(v)
	cbConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
