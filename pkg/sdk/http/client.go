package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// TokenSource 提供当前承载令牌
// 传输层在每次请求发出的时刻读取令牌，凭证轮换对后续请求立即生效；
// 收到 401 时通过 HandleUnauthorized 回调通知会话清除过期凭证
type TokenSource interface {
	Token() string
	HandleUnauthorized()
}

// Client 对后端的 HTTP 传输封装
// 统一注入 Authorization 头（对所有经由它的请求生效，不是按调用可选的）；
// 除注入头之外没有其它副作用：不重试、不缓存
type Client struct {
	client *resty.Client
}

// NewClient 创建新的传输客户端
// tokens 为 nil 时请求原样发出（未登录场景，例如 /token 本身）
func NewClient(host string, tokens TokenSource) *Client {
	host = strings.TrimSuffix(host, "/")

	client := resty.New().
		SetBaseURL(host).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "gopanel/1.0")

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if tokens == nil {
			return nil
		}
		// 必须在发出时读取，而不是创建客户端时缓存
		if tok := tokens.Token(); tok != "" {
			req.SetHeader("Authorization", "Bearer "+tok)
		}
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.StatusCode() == http.StatusUnauthorized && tokens != nil {
			tokens.HandleUnauthorized()
		}
		return nil
	})

	return &Client{client: client}
}

// RequestOptions 单次请求的可选参数
type RequestOptions struct {
	Headers map[string]string
	JSON    any               // JSON 请求体
	Form    map[string]string // 表单编码请求体（登录使用）
	Params  map[string]string // 查询参数
	Fields  map[string]string // multipart 表单字段
	Files   map[string]string // multipart 文件：字段名 -> 文件路径
}

// DoRequest 执行请求，结果解码到 out（可为 nil）
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) (*resty.Response, error) {
	req := c.client.R()
	if ctx != nil {
		req.SetContext(ctx)
	}

	if opt != nil {
		for k, v := range opt.Headers {
			req.SetHeader(k, v)
		}
		if opt.Params != nil {
			req.SetQueryParams(opt.Params)
		}
		switch {
		case opt.JSON != nil:
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(opt.JSON)
		case opt.Form != nil:
			req.SetFormData(opt.Form)
		case opt.Fields != nil || opt.Files != nil:
			req.SetMultipartFormData(opt.Fields)
			for field, path := range opt.Files {
				req.SetFile(field, path)
			}
		}
	}
	if out != nil {
		req.SetResult(out)
	}

	switch strings.ToUpper(method) {
	case http.MethodGet:
		return req.Get(endpoint)
	case http.MethodPost:
		return req.Post(endpoint)
	case http.MethodPatch:
		return req.Patch(endpoint)
	case http.MethodDelete:
		return req.Delete(endpoint)
	case http.MethodPut:
		return req.Put(endpoint)
	default:
		return nil, fmt.Errorf("不支持的请求方法: %s", method)
	}
}

// CheckResponse 把非 2xx 响应转换为错误，原样携带后端错误信息
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, "请求失败")
	}
	if resp.IsSuccess() {
		return nil
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr == nil && body.Detail != "" {
		return errors.Errorf("后端返回 %d: %s", resp.StatusCode(), body.Detail)
	}
	return errors.Errorf("后端返回 %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
}
