package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hkquant/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.AIConfig{
		APIURL:         url,
		APIKey:         "sk-test",
		Model:          "deepseek-chat",
		TimeoutSeconds: 5,
	})
}

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestChatURLNormalization(t *testing.T) {
	cases := []struct{ base, want string }{
		{"", "https://api.deepseek.com/v1/chat/completions"},
		{"https://api.deepseek.com/v1", "https://api.deepseek.com/v1/chat/completions"},
		{"https://api.deepseek.com/v1/", "https://api.deepseek.com/v1/chat/completions"},
		{"https://host/v1/chat/completions", "https://host/v1/chat/completions"},
		{"https://host/v1/chat/completions/", "https://host/v1/chat/completions"},
		{"https://openrouter.ai/api/v1", "https://openrouter.ai/api/v1/chat/completions"},
	}
	for _, tc := range cases {
		c := newTestClient(tc.base)
		assert.Equal(t, tc.want, c.chatURL(), "base=%q", tc.base)
	}
}

func TestEnabled(t *testing.T) {
	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	assert.False(t, NewClient(config.AIConfig{}).Enabled())
	assert.True(t, newTestClient("").Enabled())
}

func TestChatSendsAuthAndModel(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse("收到")))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/v1")
	out, err := c.Chat(context.Background(), "系统", "用户")
	require.NoError(t, err)
	assert.Equal(t, "收到", out)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "deepseek-chat", gotBody["model"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
}

func TestChatRetriesOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(chatResponse("ok")))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/v1")
	c.maxRetries = 2
	out, err := c.Chat(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestChatDoesNotRetryOn400(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/v1")
	_, err := c.Chat(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "400 不应重试")
}

func TestBackoffRespectsRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, backoff(0, "3"))
	assert.Equal(t, 800*time.Millisecond, backoff(0, ""))
	assert.Equal(t, 1600*time.Millisecond, backoff(1, ""))
	assert.Equal(t, 8*time.Second, backoff(10, ""), "退避必须封顶")
}

func TestSignalHintValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := "根据分析，结果如下：\n{\"action\": \"buy\", \"confidence\": 72, \"reason\": \"突破布林上轨\"}"
		_, _ = w.Write([]byte(chatResponse(content)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/v1")
	hint, err := c.SignalHint(context.Background(), "0700.HK", "摘要")
	require.NoError(t, err)
	assert.Equal(t, "buy", hint.Action)
	assert.Equal(t, 72.0, hint.Confidence)
	assert.Equal(t, 1, hint.Signal())
}

func TestSignalHintSchemaRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatResponse(`{"action": "long", "confidence": 72, "reason": "x"}`)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/v1")
	_, err := c.SignalHint(context.Background(), "0700.HK", "摘要")
	assert.Error(t, err, "action 枚举之外的值必须被 schema 拒绝")
}

func TestSignalHintConfidenceOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatResponse(`{"action": "buy", "confidence": 120, "reason": "x"}`)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/v1")
	_, err := c.SignalHint(context.Background(), "0700.HK", "摘要")
	assert.Error(t, err)
}

func TestSignalHintNoJSONInOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatResponse("抱歉，我无法给出建议。")))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/v1")
	_, err := c.SignalHint(context.Background(), "0700.HK", "摘要")
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	raw, ok := ExtractJSONObject(`前置文字 {"a": {"b": 1}} 后置文字 {"c": 2}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, raw, "只取首个配平对象")

	_, ok = ExtractJSONObject("没有对象")
	assert.False(t, ok)

	_, ok = ExtractJSONObject(`{"未闭合": 1`)
	assert.False(t, ok)
}

func TestHintSignalMapping(t *testing.T) {
	assert.Equal(t, 1, Hint{Action: "BUY"}.Signal())
	assert.Equal(t, -1, Hint{Action: "sell"}.Signal())
	assert.Equal(t, 0, Hint{Action: "hold"}.Signal())
	assert.Equal(t, 0, Hint{Action: "whatever"}.Signal())
}
