package config

import (
	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Campaign  CampaignConfig  `mapstructure:"campaign"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 链配置
type ChainConfig struct {
	ChainId       int64  `mapstructure:"chain_id"`       // 链ID
	RpcUrl        string `mapstructure:"rpc_url"`        // RPC节点URL
	PrivateKey    string `mapstructure:"private_key"`    // 托管账户私钥
	Confirmations int    `mapstructure:"confirmations"`  // 交易确认区块数
	TokenFactory  string `mapstructure:"token_factory"`  // 限额代币工厂合约地址
	PoolManager   string `mapstructure:"pool_manager"`   // 交易池管理合约地址
	FundingToken  string `mapstructure:"funding_token"`  // 默认结算资产地址
}

// CampaignConfig 活动众筹配置
type CampaignConfig struct {
	DepositRatioBps int64 `mapstructure:"deposit_ratio_bps"` // 押金比例（万分比，默认1000即10%）
	MinDurationDays int   `mapstructure:"min_duration_days"` // 最短众筹天数
	MaxDurationDays int   `mapstructure:"max_duration_days"` // 最长众筹天数
}

// PoolConfig 交易池配置
type PoolConfig struct {
	SeedPriceRatio   string `mapstructure:"seed_price_ratio"`    // 初始价格比例（每个代币的报价资产数，默认1.2）
	TickSpacing      int    `mapstructure:"tick_spacing"`        // tick间距
	BaseFeeBps       int32  `mapstructure:"base_fee_bps"`        // 池子基础费率（万分比）
	BuyFeeOffsetBps  int32  `mapstructure:"buy_fee_offset_bps"`  // 买入费率减免（万分比）
	SellFeeOffsetBps int32  `mapstructure:"sell_fee_offset_bps"` // 卖出费率加成（万分比）
}

type SchedulerConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fanio")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "fanio")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.confirmations", 12)
	viper.SetDefault("campaign.deposit_ratio_bps", 1000)
	viper.SetDefault("campaign.min_duration_days", 1)
	viper.SetDefault("campaign.max_duration_days", 90)
	viper.SetDefault("pool.seed_price_ratio", "1.2")
	viper.SetDefault("pool.tick_spacing", 60)
	viper.SetDefault("pool.base_fee_bps", 30)
	viper.SetDefault("pool.buy_fee_offset_bps", 1)
	viper.SetDefault("pool.sell_fee_offset_bps", 10)
	viper.SetDefault("scheduler.interval", 60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
