package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultPresignDuration 未显式指定时的签名有效期.
	DefaultPresignDuration = 15 * time.Minute
	// DefaultPresignMinDuration SigV4 允许的最短有效期.
	DefaultPresignMinDuration = time.Second
	// DefaultPresignMaxDuration SigV4 允许的最长有效期（7 天）.
	DefaultPresignMaxDuration = 7 * 24 * time.Hour
)

// PresignConfig 预签名相关配置.
// 有效期上下限由预签名器执行，请求对象本身只保证有效期存在.
type PresignConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration" rule:"gt=0"`
	MinDuration     time.Duration `mapstructure:"min_duration"     rule:"gt=0"`
	MaxDuration     time.Duration `mapstructure:"max_duration"     rule:"gtfield=MinDuration"`
}

func (c *PresignConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("presign.default_duration", DefaultPresignDuration)
	v.SetDefault("presign.min_duration", DefaultPresignMinDuration)
	v.SetDefault("presign.max_duration", DefaultPresignMaxDuration)
}
