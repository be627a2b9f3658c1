// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// mu 保护 Cos 配置段的并发读写（UI 可能在上传进行时修改配置）。
var mu sync.RWMutex

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Data   DataConfig   `mapstructure:"data"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Cos    CosConfig    `mapstructure:"cos"`
}

// ServerConfig 存储本地命令服务相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DataConfig 存储本地数据目录相关的配置。
// Dir 下存放 images.db 本地副本以及上传/下载用的临时文件。
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// AuthConfig 存储本地会话令牌相关的配置。
type AuthConfig struct {
	Secret           string `mapstructure:"secret"`
	TokenExpireHours int    `mapstructure:"token_expire_hours"`
}

// CosConfig 存储对象存储的配置，由 UI 通过 set-config 写入并持久化。
type CosConfig struct {
	SecretID  string     `mapstructure:"secret_id" json:"secretId"`
	SecretKey string     `mapstructure:"secret_key" json:"secretKey"`
	Bucket    string     `mapstructure:"bucket" json:"bucket"`
	Region    string     `mapstructure:"region" json:"region"`
	Endpoint  string     `mapstructure:"endpoint" json:"endpoint"`
	UseSSL    bool       `mapstructure:"use_ssl" json:"useSSL"`
	Domain    string     `mapstructure:"domain" json:"domain"`
	Dir       string     `mapstructure:"dir" json:"dir"`
	Rename    bool       `mapstructure:"rename" json:"rename"`
	WebP      WebPConfig `mapstructure:"webp" json:"webp"`
}

// WebPConfig 存储上传时 WebP 转码的配置（由存储端的图片处理服务执行）。
type WebPConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	Quality int  `mapstructure:"quality" json:"quality"`
}

// Ready 判断对象存储配置是否已具备发起请求的必要字段。
func (c CosConfig) Ready() bool {
	return c.SecretID != "" && c.SecretKey != "" && c.Bucket != "" && c.Region != ""
}

// ResolveEndpoint 返回对象存储的访问端点。
// 未显式配置时按腾讯云 COS 的地域端点规则推导。
func (c CosConfig) ResolveEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("cos.%s.myqcloud.com", c.Region)
}

// Masked 返回隐藏了密钥的配置副本，用于日志输出。
func (c CosConfig) Masked() CosConfig {
	if c.SecretKey != "" {
		c.SecretKey = strings.Repeat("*", 6)
	}
	return c
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
// 配置文件不存在时写入一份默认配置，保证首次启动可用。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// 首次启动：落盘默认配置后继续
		if werr := viper.SafeWriteConfigAs(configPath); werr != nil {
			panic(fmt.Errorf("读取配置文件失败: %w", err))
		}
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}

// setDefaults 设置各配置段的默认值。
func setDefaults() {
	viper.SetDefault("server.port", "26225")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output_path", "")
	viper.SetDefault("data.dir", "./data")
	viper.SetDefault("auth.secret", "")
	viper.SetDefault("auth.token_expire_hours", 24)
	viper.SetDefault("cos.use_ssl", true)
	viper.SetDefault("cos.webp.quality", 80)
}

// GetCos 返回当前的对象存储配置。
func GetCos() CosConfig {
	mu.RLock()
	defer mu.RUnlock()
	return Conf.Cos
}

// SetCos 更新对象存储配置并持久化到配置文件。
func SetCos(c CosConfig) error {
	mu.Lock()
	defer mu.Unlock()

	Conf.Cos = c
	viper.Set("cos.secret_id", c.SecretID)
	viper.Set("cos.secret_key", c.SecretKey)
	viper.Set("cos.bucket", c.Bucket)
	viper.Set("cos.region", c.Region)
	viper.Set("cos.endpoint", c.Endpoint)
	viper.Set("cos.use_ssl", c.UseSSL)
	viper.Set("cos.domain", c.Domain)
	viper.Set("cos.dir", c.Dir)
	viper.Set("cos.rename", c.Rename)
	viper.Set("cos.webp.enabled", c.WebP.Enabled)
	viper.Set("cos.webp.quality", c.WebP.Quality)

	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("持久化配置失败: %w", err)
	}
	return nil
}
