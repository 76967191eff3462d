package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; hkquant/1.0)"

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// httpGetJSON 执行 GET 并返回响应体；非 2xx 与空载荷归为结构性故障，
// 传输层错误归为暂时性故障。
func httpGetJSON(ctx context.Context, client *http.Client, source, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &StructuralError{Source: source, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyFetchErr(source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StructuralError{Source: source, Reason: fmt.Sprintf("返回状态码 %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyFetchErr(source, err)
	}
	if len(body) == 0 {
		return nil, &StructuralError{Source: source, Reason: "响应体为空"}
	}
	return body, nil
}
