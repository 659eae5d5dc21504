package config

type Config struct {
	Trading        TradingConf             `json:"trading"`
	RiskManagement RiskConf                `json:"risk_management"`
	Exchanges      map[string]ExchangeConf `json:"exchanges"`
	Notifications  NotificationsConf       `json:"notifications"`
}

type TradingConf struct {
	DailyLossLimit        float64 `json:"daily_loss_limit"`        // 每日最大亏损额（计价货币），默认100
	MaxPositionSize       float64 `json:"max_position_size"`       // 单笔仓位占可用余额比例（0..1），默认0.02
	EnableArbitrage       bool    `json:"enable_arbitrage"`        // 是否启用套利策略
	EnableMomentum        bool    `json:"enable_momentum"`         // 是否启用动量策略
	TargetProfitArbitrage float64 `json:"target_profit_arbitrage"` // 套利最小利润比例，默认0.005
	TargetProfitMomentum  float64 `json:"target_profit_momentum"`  // 动量止盈比例，默认0.02
}

type RiskConf struct {
	StopLossPercentage   float64 `json:"stop_loss_percentage"`   // 止损比例，默认0.02
	TakeProfitPercentage float64 `json:"take_profit_percentage"` // 止盈比例，默认0.05
	MaxTradesPerDay      int     `json:"max_trades_per_day"`     // 每日最大交易次数，默认50
	CooldownAfterLoss    int     `json:"cooldown_after_loss"`    // 亏损后冷却时间（秒），默认300

	// 以下阈值在旧版本中是硬编码常量，保留原值作为默认值
	EmergencyDailyLoss float64 `json:"emergency_daily_loss"` // 紧急停机的单日亏损额，默认500
	LowBalanceLimit    float64 `json:"low_balance_limit"`    // 小账户风险阈值，默认1000
	DailyLossWarning   float64 `json:"daily_loss_warning"`   // 日内亏损风险因子触发额，默认50
}

type ExchangeConf struct {
	Enabled  bool   `json:"enabled"`
	APIKey   string `json:"api_key"`
	Secret   string `json:"secret"`
	ProxyURL string `json:"proxy_url"` // 代理地址，例如: http://127.0.0.1:7890
	Testnet  bool   `json:"testnet"`   // 是否使用测试网
}

type NotificationsConf struct {
	Telegram TelegramConf `json:"telegram"`
	Discord  DiscordConf  `json:"discord"`
	Email    EmailConf    `json:"email"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type DiscordConf struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type EmailConf struct {
	Enabled    bool   `json:"enabled"`
	SMTPServer string `json:"smtp_server"`
	SMTPPort   int    `json:"smtp_port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	ToEmail    string `json:"to_email"`
}

// ApplyDefaults 为未配置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.Trading.DailyLossLimit <= 0 {
		c.Trading.DailyLossLimit = 100
	}
	if c.Trading.MaxPositionSize <= 0 {
		c.Trading.MaxPositionSize = 0.02
	}
	if c.Trading.TargetProfitArbitrage <= 0 {
		c.Trading.TargetProfitArbitrage = 0.005
	}
	if c.Trading.TargetProfitMomentum <= 0 {
		c.Trading.TargetProfitMomentum = 0.02
	}
	if c.RiskManagement.StopLossPercentage <= 0 {
		c.RiskManagement.StopLossPercentage = 0.02
	}
	if c.RiskManagement.TakeProfitPercentage <= 0 {
		c.RiskManagement.TakeProfitPercentage = 0.05
	}
	if c.RiskManagement.MaxTradesPerDay <= 0 {
		c.RiskManagement.MaxTradesPerDay = 50
	}
	if c.RiskManagement.CooldownAfterLoss <= 0 {
		c.RiskManagement.CooldownAfterLoss = 300
	}
	if c.RiskManagement.EmergencyDailyLoss <= 0 {
		c.RiskManagement.EmergencyDailyLoss = 500
	}
	if c.RiskManagement.LowBalanceLimit <= 0 {
		c.RiskManagement.LowBalanceLimit = 1000
	}
	if c.RiskManagement.DailyLossWarning <= 0 {
		c.RiskManagement.DailyLossWarning = 50
	}
}
