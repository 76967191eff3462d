package logger

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	llmMu      sync.Mutex
	llmWriter  io.Writer
	llmEnabled bool
)

// SetLLMWriter 指定大模型请求/响应的落盘目标；nil 表示关闭。
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	llmWriter = w
	llmMu.Unlock()
}

// EnableLLMPayloadDump 打开/关闭大模型载荷记录。
func EnableLLMPayloadDump(on bool) {
	llmMu.Lock()
	llmEnabled = on
	llmMu.Unlock()
}

// DumpLLM 记录一次模型交互，便于离线排查提示词问题。
func DumpLLM(stage, symbol, payload string) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if !llmEnabled || llmWriter == nil {
		return
	}
	ts := time.Now().Format(time.RFC3339)
	fmt.Fprintf(llmWriter, "=== %s stage=%s symbol=%s ===\n%s\n", ts, stage, symbol, payload)
}
