package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"hkquant/internal/logger"
)

// Hint 是模型给出的结构化交易提示。
type Hint struct {
	Action     string  `json:"action"`     // buy / sell / hold
	Confidence float64 `json:"confidence"` // 0-100
	Reason     string  `json:"reason"`
}

// Signal 把提示映射为信号值。
func (h Hint) Signal() int {
	switch strings.ToLower(h.Action) {
	case "buy":
		return 1
	case "sell":
		return -1
	default:
		return 0
	}
}

const hintSchemaJSON = `{
	"type": "object",
	"required": ["action", "confidence", "reason"],
	"properties": {
		"action": {"type": "string", "enum": ["buy", "sell", "hold"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 100},
		"reason": {"type": "string"}
	}
}`

var hintSchema = mustCompileSchema(hintSchemaJSON)

func mustCompileSchema(raw string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("hint.json", strings.NewReader(raw)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("hint.json")
}

const analyzeSystemPrompt = `你是一位专注港股的量化分析助手。基于给出的技术面摘要，
用简洁的中文给出对该股票的走势点评，不超过 200 字。`

const hintSystemPrompt = `你是一位专注港股的量化分析助手。基于给出的技术面摘要，
只输出一个 JSON 对象，不要输出其他文字：
{"action": "buy|sell|hold", "confidence": 0-100 的数字, "reason": "一句话理由"}`

// Analyze 请求模型对单个股票做定性点评。
func (c *Client) Analyze(ctx context.Context, symbol, summary string) (string, error) {
	prompt := fmt.Sprintf("股票: %s\n\n%s", symbol, summary)
	return c.Chat(ctx, analyzeSystemPrompt, prompt)
}

// SignalHint 请求模型给出结构化信号提示。
// 输出先按 schema 校验再返回，校验失败与网络失败同样只是软失败。
func (c *Client) SignalHint(ctx context.Context, symbol, summary string) (Hint, error) {
	prompt := fmt.Sprintf("股票: %s\n\n%s", symbol, summary)
	out, err := c.Chat(ctx, hintSystemPrompt, prompt)
	if err != nil {
		return Hint{}, err
	}
	raw, ok := ExtractJSONObject(out)
	if !ok {
		return Hint{}, fmt.Errorf("模型输出中未找到 JSON 对象: %s", truncate(out, 120))
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Hint{}, fmt.Errorf("模型输出 JSON 非法: %w", err)
	}
	if err := hintSchema.Validate(doc); err != nil {
		logger.Warnf("[AI] 提示未通过 schema 校验: %v", err)
		return Hint{}, fmt.Errorf("提示不符合约定结构: %w", err)
	}
	var hint Hint
	if err := json.Unmarshal([]byte(raw), &hint); err != nil {
		return Hint{}, err
	}
	return hint, nil
}

// ExtractJSONObject 提取文本中首个配平的 JSON 对象。
func ExtractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1]), true
			}
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
