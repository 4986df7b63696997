package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool              `mapstructure:"enabled"` // 总开关
	Asset   AssetEventsConfig `mapstructure:"asset"`
}

// AssetEventsConfig 针对资产领域的事件开关。
type AssetEventsConfig struct {
	Stored     bool `mapstructure:"stored"`
	Removed    bool `mapstructure:"removed"`
	Liked      bool `mapstructure:"liked"`
	Downloaded bool `mapstructure:"downloaded"`
	Reported   bool `mapstructure:"reported"`
	Conflict   bool `mapstructure:"conflict"`
	Swept      bool `mapstructure:"swept"`
	Snapshot   bool `mapstructure:"snapshot"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 资产领域的事件：默认仅开启最小必要集，避免噪声过大
	v.SetDefault("events.asset.stored", true)
	v.SetDefault("events.asset.removed", true)
	v.SetDefault("events.asset.reported", true)

	// 可选事件：默认关闭，按需开启
	v.SetDefault("events.asset.liked", false)
	v.SetDefault("events.asset.downloaded", false) // 下载事件量可能很大，默认关闭
	v.SetDefault("events.asset.conflict", false)   // 冲突重试已有指标，事件默认关闭
	v.SetDefault("events.asset.swept", true)
	v.SetDefault("events.asset.snapshot", true)
}
