package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hkquant/internal/backtest"
	"hkquant/internal/config"
	"hkquant/internal/market"
	"hkquant/internal/strategy"
)

// Server 对外提供只读的回测查询 API 与回测提交入口。
// 核心计算层不感知本包的存在。
type Server struct {
	addr    string
	engine  *backtest.Engine
	results *backtest.ResultStore
	cfg     config.Config
	pool    config.StockPool
	router  *gin.Engine
}

// Config 描述 HTTP Server 的依赖。
type Config struct {
	Addr    string
	Engine  *backtest.Engine
	Results *backtest.ResultStore
	AppCfg  config.Config
	Pool    config.StockPool
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:    cfg.Addr,
		engine:  cfg.Engine,
		results: cfg.Results,
		cfg:     cfg.AppCfg,
		pool:    cfg.Pool,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	api.GET("/pool", s.handlePool)
	api.GET("/strategies", s.handleStrategies)
	api.POST("/backtests", s.handleBacktest)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/result", s.handleRunResult)
}

func (s *Server) handlePool(c *gin.Context) {
	type entry struct {
		Symbol  string `json:"symbol"`
		Name    string `json:"name"`
		IsIndex bool   `json:"is_index"`
	}
	out := make([]entry, 0, len(s.pool.Symbols()))
	for _, symbol := range s.pool.Symbols() {
		out = append(out, entry{Symbol: symbol, Name: s.pool.Name(symbol), IsIndex: s.pool.IsIndex(symbol)})
	}
	c.JSON(http.StatusOK, gin.H{"pool": out})
}

func (s *Server) handleStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": strategy.Available()})
}

// BacktestRequest 为 HTTP 提交使用。
type BacktestRequest struct {
	Symbol         string  `json:"symbol" binding:"required"`
	Strategy       string  `json:"strategy" binding:"required"`
	StartDate      string  `json:"start_date" binding:"required"`
	EndDate        string  `json:"end_date" binding:"required"`
	InitialCapital float64 `json:"initial_capital"`
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.ParseInLocation(market.DateLayout, req.StartDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date 格式必须为 YYYY-MM-DD"})
		return
	}
	end, err := time.ParseInLocation(market.DateLayout, req.EndDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date 格式必须为 YYYY-MM-DD"})
		return
	}
	capital := req.InitialCapital
	if capital <= 0 {
		capital = s.cfg.Backtest.InitialCapital
	}
	strat, err := strategy.New(req.Strategy, s.cfg.Strategy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run := backtest.NewRun(req.Symbol, req.Strategy, req.StartDate, req.EndDate, capital)
	if s.results != nil {
		if err := s.results.InsertRun(c.Request.Context(), run); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	result, err := s.engine.Run(c.Request.Context(), strat, req.Symbol, start, end, capital)
	if err != nil {
		if s.results != nil {
			_ = s.results.UpdateRunStatus(c.Request.Context(), run.ID, backtest.RunStatusFailed, err.Error())
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "run_id": run.ID})
		return
	}
	resultPath := ""
	if dir := s.cfg.Backtest.ResultsDir; dir != "" {
		if path, err := backtest.SaveResult(dir, result); err == nil {
			resultPath = path
		}
	}
	if s.results != nil {
		_ = s.results.CompleteRun(c.Request.Context(), run.ID, result, resultPath)
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "result": result})
}

func (s *Server) handleRunList(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "结果存储未启用"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.results.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "结果存储未启用"})
		return
	}
	run, err := s.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunResult(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "结果存储未启用"})
		return
	}
	run, err := s.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if run.ResultPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "该 run 没有落盘结果"})
		return
	}
	result, err := backtest.LoadResult(run.ResultPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
