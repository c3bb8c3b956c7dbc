package config

// Config 配置主体
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"database"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Offer   OfferConfig   `mapstructure:"offer"`
	Cron    CronConfig    `mapstructure:"cron"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 审计库配置
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type KafkaConfig struct {
	Brokers     []string   `mapstructure:"brokers"`
	Sasl        SaslConfig `mapstructure:"sasl"`
	NotifyTopic string     `mapstructure:"notify_topic"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CatalogConfig 房源目录协作方
type CatalogConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	ApiKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// OfferConfig 报价业务参数
type OfferConfig struct {
	TTLHours int `mapstructure:"ttl_hours"` // pending 报价的存活时长
}

// CronConfig 清扫任务的调度表达式（带秒位）
type CronConfig struct {
	OfferExpirySpec string `mapstructure:"offer_expiry_spec"`
	RoomSweepSpec   string `mapstructure:"room_sweep_spec"`
}
