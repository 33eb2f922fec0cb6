// Package configs 管理 SDK 运行配置，包括对象存储、预签名、指标、客户端管道、消息队列、追踪和日志.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "github.com/yeisme/sdkcore/pkg/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Presign.DefaultDuration)
//
// Example accessing Metrics config:
//
//	config := configs.GetConfig()
//	if config.Metrics.Enabled {
//		categories := config.Metrics.Categories
//		fmt.Println("metric categories:", categories)
//	}
//
// Example accessing S3 config:
//
//	config := configs.GetConfig()
//	s3Config := config.S3
//	endpoint := s3Config.GetEndpointURL()
//	fmt.Println("S3 Endpoint:", endpoint)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/sdkcore/pkg/rule"
)

// EnvPrefix 环境变量前缀，例如 SDKCORE_METRICS_ENABLED=true.
const EnvPrefix = "SDKCORE"

type (
	// AppConfig 全局配置.
	AppConfig struct {
		S3           S3Config      `mapstructure:"s3"`            // S3Config 对象存储配置
		Presign      PresignConfig `mapstructure:"presign"`       // PresignConfig 预签名配置
		Metrics      MetricsConfig `mapstructure:"metrics"`       // MetricsConfig 指标配置
		Client       ClientConfig  `mapstructure:"client"`        // ClientConfig 请求执行管道配置
		MQ           MQConfig      `mapstructure:"mq"`            // MQConfig 指标发布使用的消息队列
		Tracing      TracingConfig `mapstructure:"tracing"`       // TracingConfig 分布式追踪配置
		Log          LogConfig     `mapstructure:"log"`           // LogConfig 日志相关配置
		Debug        bool          `mapstructure:"debug"`         // 调试模式
		ReloadConfig bool          `mapstructure:"reload_config"` // 是否启用配置热重载
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时仅使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	setAllDefaults(appViper)

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(filepath.Join(path, "configs"))

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.AutomaticEnv()

	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := load(appViper)
	if err != nil {
		return err
	}

	globalConfig = cfg

	reloadConfigs(appViper, globalConfig.ReloadConfig)

	return nil
}

// load 解析并校验配置.
func load(v *viper.Viper) (AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := rule.ValidateStruct(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		s3Config      S3Config
		presignConfig PresignConfig
		metricsConfig MetricsConfig
		clientConfig  ClientConfig
		mqConfig      MQConfig
		tracingConfig TracingConfig
		logConfig     LogConfig
	)

	s3Config.setDefaults(v)
	presignConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	clientConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	logConfig.setDefaults(v)

	v.SetDefault("debug", false)
	v.SetDefault("reload_config", false)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Fprintln(os.Stderr, "Config file changed:", e.Name)

		cfg, err := load(v)
		if err != nil {
			// 保留旧配置
			fmt.Fprintf(os.Stderr, "Error reloading config: %v\n", err)

			return
		}

		globalConfig = cfg
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}

// Defaults 返回仅由默认值构成的配置，便于测试与无配置文件的场景.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	_ = v.Unmarshal(&cfg)

	return cfg
}
