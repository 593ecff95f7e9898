// Package config 加载procdbg的配置，来源依次为默认值、配置文件、环境变量和命令行
package config

import (
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/hitzhangjie/procdbg/pkg/symbol"
)

const (
	configName = ".procdbg"
	envPrefix  = "PROCDBG"
)

// 输出格式
const (
	OutputText = "text"
	OutputYAML = "yaml"
)

// Config 运行时配置
type Config struct {
	ProcRoot string `mapstructure:"proc_root"`
	Output   string `mapstructure:"output"`

	Log struct {
		Enabled bool   `mapstructure:"enabled"`
		Layers  string `mapstructure:"layers"`
		Level   string `mapstructure:"level"`
	} `mapstructure:"log"`

	Symbols struct {
		CacheSize int    `mapstructure:"cache_size"`
		Demangle  string `mapstructure:"demangle"`
	} `mapstructure:"symbols"`

	Trace struct {
		FollowClone bool `mapstructure:"follow_clone"`
	} `mapstructure:"trace"`

	// DemangleFlags 由Symbols.Demangle解析得到
	DemangleFlags symbol.DemangleFlags `mapstructure:"-"`
}

// SetDefaults 设置所有配置项的默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("proc_root", "/proc")
	v.SetDefault("output", OutputText)
	v.SetDefault("log.enabled", false)
	v.SetDefault("log.layers", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("symbols.cache_size", 64)
	v.SetDefault("symbols.demangle", "name-only")
	v.SetDefault("trace.follow_clone", true)
}

// ReadInConfig 读取配置文件，cfgFile为空时查找$HOME/.procdbg.yaml，文件不存在不算错误
func ReadInConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "find home directory")
		}
		v.AddConfigPath(home)
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return errors.Wrap(err, "read config")
	}
	return nil
}

// Load 解析并校验配置
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default 只包含默认值的配置
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	c, err := Load(v)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Config) validate() error {
	if c.ProcRoot == "" {
		return errors.New("proc_root must not be empty")
	}
	if c.Symbols.CacheSize <= 0 {
		return errors.Errorf("symbols.cache_size must be positive, got %d", c.Symbols.CacheSize)
	}
	switch c.Output {
	case OutputText, OutputYAML:
	default:
		return errors.Errorf("unknown output format %q", c.Output)
	}
	flags, err := symbol.ParseDemangleFlags(c.Symbols.Demangle)
	if err != nil {
		return err
	}
	c.DemangleFlags = flags
	return nil
}
