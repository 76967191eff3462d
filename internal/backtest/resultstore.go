package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// Run 是 backtest_runs 表里的一条索引记录，指向磁盘上的结果 JSON。
type Run struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Strategy       string    `json:"strategy"`
	Status         string    `json:"status"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	TotalReturn    float64   `json:"total_return"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	Sharpe         float64   `json:"sharpe_ratio"`
	NumTrades      int       `json:"num_trades"`
	WinRate        float64   `json:"win_rate"`
	Synthetic      bool      `json:"synthetic_data"`
	ResultPath     string    `json:"result_path"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// runJSON 包装 Run，把 NaN 夏普写成 null，与 Result 的序列化口径一致。
type runJSON struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Strategy       string    `json:"strategy"`
	Status         string    `json:"status"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	TotalReturn    float64   `json:"total_return"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	Sharpe         *float64  `json:"sharpe_ratio"`
	NumTrades      int       `json:"num_trades"`
	WinRate        float64   `json:"win_rate"`
	Synthetic      bool      `json:"synthetic_data"`
	ResultPath     string    `json:"result_path"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

func (r Run) MarshalJSON() ([]byte, error) {
	out := runJSON{
		ID:             r.ID,
		Symbol:         r.Symbol,
		Strategy:       r.Strategy,
		Status:         r.Status,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		InitialCapital: r.InitialCapital,
		TotalReturn:    r.TotalReturn,
		MaxDrawdown:    r.MaxDrawdown,
		NumTrades:      r.NumTrades,
		WinRate:        r.WinRate,
		Synthetic:      r.Synthetic,
		ResultPath:     r.ResultPath,
		Message:        r.Message,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		CompletedAt:    r.CompletedAt,
	}
	if !isNaN(r.Sharpe) {
		v := r.Sharpe
		out.Sharpe = &v
	}
	return json.Marshal(out)
}

func (r *Run) UnmarshalJSON(data []byte) error {
	var in runJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Run{
		ID:             in.ID,
		Symbol:         in.Symbol,
		Strategy:       in.Strategy,
		Status:         in.Status,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		InitialCapital: in.InitialCapital,
		TotalReturn:    in.TotalReturn,
		MaxDrawdown:    in.MaxDrawdown,
		Sharpe:         nan(),
		NumTrades:      in.NumTrades,
		WinRate:        in.WinRate,
		Synthetic:      in.Synthetic,
		ResultPath:     in.ResultPath,
		Message:        in.Message,
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
		CompletedAt:    in.CompletedAt,
	}
	if in.Sharpe != nil {
		r.Sharpe = *in.Sharpe
	}
	return nil
}

// NewRun 为一次回测任务生成索引记录。
func NewRun(symbol, strategyID, start, end string, capital float64) Run {
	return Run{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Strategy:       strategyID,
		Status:         RunStatusPending,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: capital,
	}
}

// ResultStore 管理 backtest_runs 索引表。
type ResultStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewResultStore(root string) (*ResultStore, error) {
	if root == "" {
		return nil, fmt.Errorf("result store root 不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureRunSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{db: db, path: path}, nil
}

func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureRunSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			status TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			initial_capital REAL NOT NULL,
			total_return REAL NOT NULL DEFAULT 0,
			max_drawdown REAL NOT NULL DEFAULT 0,
			sharpe REAL,
			num_trades INTEGER NOT NULL DEFAULT 0,
			win_rate REAL NOT NULL DEFAULT 0,
			synthetic INTEGER NOT NULL DEFAULT 0,
			result_path TEXT,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON backtest_runs(symbol, strategy);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON backtest_runs(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 写入一条待执行的 run 记录。
func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, symbol, strategy, status, start_date, end_date, initial_capital,
			 total_return, max_drawdown, sharpe, num_trades, win_rate, synthetic,
			 result_path, message, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Strategy, run.Status, run.StartDate, run.EndDate,
		run.InitialCapital, run.TotalReturn, run.MaxDrawdown, nullIfNaN(run.Sharpe),
		run.NumTrades, run.WinRate, boolToInt(run.Synthetic), run.ResultPath, run.Message,
		now, now, nullableTime(run.CompletedAt))
	return err
}

// CompleteRun 把结果指标回填到索引并标记完成。
func (s *ResultStore) CompleteRun(ctx context.Context, id string, result Result, resultPath string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs
		SET status=?, total_return=?, max_drawdown=?, sharpe=?, num_trades=?, win_rate=?,
		    synthetic=?, result_path=?, message='', updated_at=?, completed_at=?
		WHERE id=?`,
		RunStatusDone, result.TotalReturn, result.MaxDrawdown, nullIfNaN(result.Sharpe),
		result.NumTrades, result.WinRate, boolToInt(result.Synthetic), resultPath, now, now, id)
	return err
}

// UpdateRunStatus 仅更新状态与提示。
func (s *ResultStore) UpdateRunStatus(ctx context.Context, id, status, message string) error {
	now := time.Now().UnixMilli()
	var completed interface{}
	if status == RunStatusDone || status == RunStatusFailed {
		completed = now
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs
		SET status=?, message=?, updated_at=?, completed_at=CASE WHEN ? IS NULL THEN completed_at ELSE ? END
		WHERE id=?`, status, message, now, completed, completed, id)
	return err
}

// ListRuns 按创建时间倒序列出最近的 run。
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, strategy, status, start_date, end_date, initial_capital,
		       total_return, max_drawdown, sharpe, num_trades, win_rate, synthetic,
		       result_path, message, created_at, updated_at, completed_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

// GetRun 按 id 取单条记录。
func (s *ResultStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, strategy, status, start_date, end_date, initial_capital,
		       total_return, max_drawdown, sharpe, num_trades, win_rate, synthetic,
		       result_path, message, created_at, updated_at, completed_at
		FROM backtest_runs WHERE id=?`, id)
	return scanRun(row)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var sharpe sql.NullFloat64
	var resultPath, message sql.NullString
	var synthetic int
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64
	if err := row.Scan(&run.ID, &run.Symbol, &run.Strategy, &run.Status,
		&run.StartDate, &run.EndDate, &run.InitialCapital,
		&run.TotalReturn, &run.MaxDrawdown, &sharpe, &run.NumTrades, &run.WinRate,
		&synthetic, &resultPath, &message, &createdAt, &updatedAt, &completedAt); err != nil {
		return Run{}, err
	}
	if sharpe.Valid {
		run.Sharpe = sharpe.Float64
	} else {
		run.Sharpe = nan()
	}
	run.Synthetic = synthetic != 0
	run.ResultPath = resultPath.String
	run.Message = message.String
	run.CreatedAt = timeFromMillis(createdAt)
	run.UpdatedAt = timeFromMillis(updatedAt)
	if completedAt.Valid {
		run.CompletedAt = timeFromMillis(completedAt.Int64)
	}
	return run, nil
}

func nullIfNaN(v float64) interface{} {
	if isNaN(v) {
		return nil
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func timeFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.Unix(0, ms*int64(time.Millisecond))
}
