package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hkquant/internal/config"
	"hkquant/internal/logger"
)

// Client 是兼容 OpenAI / DeepSeek 的聊天补全客户端（/v1/chat/completions）。
// 它只是锦上添花的点评与信号提示来源，任何失败都不应阻断技术面流程。
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int
	httpc      *http.Client
}

func NewClient(cfg config.AIConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    cfg.APIURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: 2,
		httpc:      &http.Client{Timeout: timeout},
	}
}

// Enabled 表示客户端是否具备调用条件。
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// chatURL 规范化 BaseURL，容忍用户把 /chat/completions 也写进配置。
func (c *Client) chatURL() string {
	url := c.baseURL
	if url == "" {
		url = "https://api.deepseek.com/v1"
	}
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

// Chat 发送一轮对话并返回模型的文本输出。
// 对 429/5xx 做有限重试，支持 Retry-After。
func (c *Client) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("AI 客户端未配置 API Key")
	}
	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})
	body := map[string]any{"model": c.model, "messages": messages, "temperature": 0.5}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	url := c.chatURL()
	logger.DumpLLM("request", c.model, string(b))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return "", derr
			}
			if len(r.Choices) == 0 {
				return "", fmt.Errorf("模型返回空 choices")
			}
			out := r.Choices[0].Message.Content
			logger.DumpLLM("response", c.model, out)
			return out, nil
		}

		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryableStatus(resp.StatusCode) || attempt == c.maxRetries {
			break
		}
		wait := backoff(attempt, retryAfter)
		logger.Warnf("[AI] 请求失败 (尝试 %d/%d)，%s 后重试: %v", attempt+1, c.maxRetries+1, wait, lastErr)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func backoff(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}
