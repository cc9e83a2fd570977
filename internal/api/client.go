// Package api 是参考服务端 HTTP 接口的客户端实现。
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/canvas"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/client"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/dto"
)

const (
	drawPath       = "/api/place/draw.json"
	drawRectPath   = "/api/place/drawrect.json"
	bitmapPath     = "/api/place/board-bitmap"
	timeToWaitPath = "/api/place/time-to-wait.json"
	pixelPath      = "/api/place/pixel.json"
)

// StatusError 表示服务端返回了非预期的状态码。
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: unexpected status %d: %s", e.Code, e.Body)
}

// Client 访问画布服务端。可以在任意 goroutine 上调用。
type Client struct {
	baseURL string
	token   string
	width   int
	height  int
	http    *http.Client
}

// New 创建 Client。width/height 用于展开位图。
func New(baseURL, token string, width, height int, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		width:   width,
		height:  height,
		http:    httpClient,
	}
}

// SubmitDraw 提交一次单格绘制。
func (c *Client) SubmitDraw(ctx context.Context, x, y, color int) (client.DrawResult, error) {
	form := url.Values{}
	form.Set("x", strconv.Itoa(x))
	form.Set("y", strconv.Itoa(y))
	form.Set("color", strconv.Itoa(color))
	return c.postForWait(ctx, drawPath, form)
}

// DrawRect 提交一次矩形填充 (需要管理员权限)。
func (c *Client) DrawRect(ctx context.Context, rect domain.Rect, color int) (client.DrawResult, error) {
	form := url.Values{}
	form.Set("x", strconv.Itoa(rect.X))
	form.Set("y", strconv.Itoa(rect.Y))
	form.Set("width", strconv.Itoa(rect.W))
	form.Set("height", strconv.Itoa(rect.H))
	form.Set("color", strconv.Itoa(color))
	return c.postForWait(ctx, drawRectPath, form)
}

// FetchInitialState 获取整个画布的快照, 展开为每格一字节的行优先数组。
func (c *Client) FetchInitialState(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, bitmapPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	packed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read bitmap: %w", err)
	}
	return canvas.UnpackNibbles(packed, c.width*c.height), nil
}

// TimeToWait 返回当前用户还需等待多久才能绘制。
func (c *Client) TimeToWait(ctx context.Context) (time.Duration, error) {
	resp, err := c.do(ctx, http.MethodGet, timeToWaitPath, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp)
	}
	var body dto.WaitResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("api: decode time-to-wait: %w", err)
	}
	return seconds(body.WaitSeconds), nil
}

// PixelInfo 查询格子最近一次的放置信息。没有记录时返回 ok=false。
func (c *Client) PixelInfo(ctx context.Context, x, y int) (domain.PixelInfo, bool, error) {
	q := url.Values{}
	q.Set("x", strconv.Itoa(x))
	q.Set("y", strconv.Itoa(y))
	resp, err := c.do(ctx, http.MethodGet, pixelPath+"?"+q.Encode(), nil)
	if err != nil {
		return domain.PixelInfo{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.PixelInfo{}, false, statusError(resp)
	}
	var raw map[string]json.RawMessage
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.PixelInfo{}, false, fmt.Errorf("api: read pixel info: %w", err)
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.PixelInfo{}, false, fmt.Errorf("api: decode pixel info: %w", err)
	}
	if len(raw) == 0 {
		return domain.PixelInfo{}, false, nil
	}
	var info domain.PixelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return domain.PixelInfo{}, false, fmt.Errorf("api: decode pixel info: %w", err)
	}
	return info, true, nil
}

func (c *Client) postForWait(ctx context.Context, path string, form url.Values) (client.DrawResult, error) {
	resp, err := c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return client.DrawResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body dto.WaitResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return client.DrawResult{}, fmt.Errorf("api: decode draw response: %w", err)
		}
		return client.DrawResult{Wait: seconds(body.WaitSeconds)}, nil
	case http.StatusTooManyRequests:
		var body dto.RateLimitedResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return client.DrawResult{}, fmt.Errorf("api: decode rate limit response: %w", err)
		}
		return client.DrawResult{}, &domain.RateLimitError{Wait: seconds(body.WaitSeconds)}
	default:
		return client.DrawResult{}, statusError(resp)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "api",
			"method":    method,
			"path":      path,
		}).WithError(err).Debug("Request failed")
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func seconds(s float64) time.Duration {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// IsStatus 报告 err 是否为指定状态码的 StatusError。
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
