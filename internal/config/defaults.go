package config

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":8000"
	defaultDataCacheDir     = "data/cache"
	defaultDataTimeout      = 30
	defaultDataMaxRetries   = 3
	defaultDataRetryDelay   = 2
	defaultDataRateLimit    = 60
	defaultPoolFile         = "configs/stock_pool.yaml"
	defaultPoolIndex        = "HST50.HK"
	defaultBacktestStart    = "2023-01-01"
	defaultBacktestCapital  = 1000000
	defaultBacktestResults  = "data/backtest_results"
	defaultBacktestReports  = "data/reports"
	defaultBacktestParallel = 4
	defaultAIAPIURL         = "https://api.deepseek.com/v1"
	defaultAIModel          = "deepseek-chat"
	defaultAITimeout        = 60
	defaultScheduleData     = "30 9 * * 1-5"
	defaultScheduleStrategy = "45 9 * * 1-5"

	defaultRSIPeriod     = 14
	defaultRSIOversold   = 30
	defaultRSIOverbought = 70
	defaultMACDFast      = 12
	defaultMACDSlow      = 26
	defaultMACDSignal    = 9
	defaultBBPeriod      = 20
	defaultBBStd         = 2
	defaultKDJPeriod     = 9
	defaultKDJSmooth     = 3
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Data.applyDefaults()
	c.Pool.applyDefaults()
	c.Backtest.applyDefaults()
	c.Strategy.applyDefaults()
	c.AI.applyDefaults()
	c.Schedule.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (d *DataConfig) applyDefaults() {
	if d.CacheDir == "" {
		d.CacheDir = defaultDataCacheDir
	}
	if len(d.Sources) == 0 {
		d.Sources = []string{"yahoo", "eastmoney", "sina"}
	}
	if d.TimeoutSeconds <= 0 {
		d.TimeoutSeconds = defaultDataTimeout
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = defaultDataMaxRetries
	}
	if d.RetryDelaySeconds <= 0 {
		d.RetryDelaySeconds = defaultDataRetryDelay
	}
	if d.RateLimitPerMin <= 0 {
		d.RateLimitPerMin = defaultDataRateLimit
	}
}

func (p *PoolConfig) applyDefaults() {
	if p.File == "" {
		p.File = defaultPoolFile
	}
	if p.Index == "" {
		p.Index = defaultPoolIndex
	}
}

func (b *BacktestConfig) applyDefaults() {
	if b.StartDate == "" {
		b.StartDate = defaultBacktestStart
	}
	if b.InitialCapital <= 0 {
		b.InitialCapital = defaultBacktestCapital
	}
	if b.ResultsDir == "" {
		b.ResultsDir = defaultBacktestResults
	}
	if b.ReportsDir == "" {
		b.ReportsDir = defaultBacktestReports
	}
	if b.MaxConcurrent <= 0 {
		b.MaxConcurrent = defaultBacktestParallel
	}
}

func (s *StrategyConfig) applyDefaults() {
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = defaultRSIPeriod
	}
	if s.RSIOversold <= 0 {
		s.RSIOversold = defaultRSIOversold
	}
	if s.RSIOverbought <= 0 {
		s.RSIOverbought = defaultRSIOverbought
	}
	if s.MACDFast <= 0 {
		s.MACDFast = defaultMACDFast
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = defaultMACDSlow
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = defaultMACDSignal
	}
	if s.BBPeriod <= 0 {
		s.BBPeriod = defaultBBPeriod
	}
	if s.BBStd <= 0 {
		s.BBStd = defaultBBStd
	}
	if s.KDJPeriod <= 0 {
		s.KDJPeriod = defaultKDJPeriod
	}
	if s.KDJSmoothK <= 0 {
		s.KDJSmoothK = defaultKDJSmooth
	}
	if s.KDJSmoothD <= 0 {
		s.KDJSmoothD = defaultKDJSmooth
	}
}

func (a *AIConfig) applyDefaults() {
	if a.APIURL == "" {
		a.APIURL = defaultAIAPIURL
	}
	if a.Model == "" {
		a.Model = defaultAIModel
	}
	if a.TimeoutSeconds <= 0 {
		a.TimeoutSeconds = defaultAITimeout
	}
}

func (s *ScheduleConfig) applyDefaults() {
	if s.DataUpdate == "" {
		s.DataUpdate = defaultScheduleData
	}
	if s.StrategyRun == "" {
		s.StrategyRun = defaultScheduleStrategy
	}
}
