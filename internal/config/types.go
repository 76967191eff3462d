package config

// Config 是 hkquant 的主配置载体。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Data     DataConfig     `mapstructure:"data"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	AI       AIConfig       `mapstructure:"ai"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	HTTPAddr string `mapstructure:"http_addr"`
	LLMDump  bool   `mapstructure:"llm_dump_payload"`
	LLMLog   string `mapstructure:"llm_log_path"`
}

// DataConfig 控制行情拉取链路：数据源顺序、重试与缓存。
type DataConfig struct {
	CacheDir          string   `mapstructure:"cache_dir"`
	Sources           []string `mapstructure:"sources"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RetryDelaySeconds int      `mapstructure:"retry_delay_seconds"`
	RateLimitPerMin   int      `mapstructure:"rate_limit_per_min"`
}

// PoolConfig 描述股票池与基准指数。
type PoolConfig struct {
	File  string `mapstructure:"file"`
	Index string `mapstructure:"index"`
}

type BacktestConfig struct {
	StartDate      string  `mapstructure:"start_date"`
	EndDate        string  `mapstructure:"end_date"`
	InitialCapital float64 `mapstructure:"initial_capital"`
	ResultsDir     string  `mapstructure:"results_dir"`
	ReportsDir     string  `mapstructure:"reports_dir"`
	MaxConcurrent  int     `mapstructure:"max_concurrent"`
}

// StrategyConfig 汇总各策略的技术参数，进程启动时读取一次。
type StrategyConfig struct {
	RSIPeriod     int     `mapstructure:"rsi_period"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
	MACDFast      int     `mapstructure:"macd_fast"`
	MACDSlow      int     `mapstructure:"macd_slow"`
	MACDSignal    int     `mapstructure:"macd_signal"`
	BBPeriod      int     `mapstructure:"bb_period"`
	BBStd         float64 `mapstructure:"bb_std"`
	KDJPeriod     int     `mapstructure:"kdj_period"`
	KDJSmoothK    int     `mapstructure:"kdj_smooth_k"`
	KDJSmoothD    int     `mapstructure:"kdj_smooth_d"`
}

// AIConfig 描述可选的大模型点评/信号提示客户端。
type AIConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	APIURL         string `mapstructure:"api_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ScheduleConfig 控制每日数据更新与策略执行的 cron 表达式。
type ScheduleConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DataUpdate  string `mapstructure:"data_update"`
	StrategyRun string `mapstructure:"strategy_run"`
}
