package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrProviderRejected 身份提供方拒绝请求（4xx）
	ErrProviderRejected = errors.New("身份提供方拒绝请求")
	// ErrProviderUnavailable 身份提供方不可达或返回 5xx
	ErrProviderUnavailable = errors.New("身份提供方不可用")
)

// CreateUserParams 创建提供方账号参数
type CreateUserParams struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// UpdateUserParams 更新提供方账号参数，nil 字段不修改
type UpdateUserParams struct {
	Email *string
	Name  *string
	Role  *string
}

// AdminClient 身份提供方管理接口客户端（GoTrue 兼容的 /admin/users）
type AdminClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewAdminClient 创建 AdminClient
func NewAdminClient(baseURL, serviceKey string, timeout time.Duration) *AdminClient {
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type adminUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CreateUser 创建已确认邮箱的账号，返回提供方用户 ID
func (c *AdminClient) CreateUser(ctx context.Context, params CreateUserParams) (string, error) {
	body := map[string]interface{}{
		"email":         params.Email,
		"password":      params.Password,
		"email_confirm": true,
		"user_metadata": map[string]string{
			"name": params.Name,
			"role": params.Role,
		},
	}

	var out adminUserResponse
	if err := c.do(ctx, http.MethodPost, "/admin/users", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: 响应缺少用户 ID", ErrProviderUnavailable)
	}
	return out.ID, nil
}

// UpdateUser 同步邮箱与元数据
func (c *AdminClient) UpdateUser(ctx context.Context, userID string, params UpdateUserParams) error {
	body := map[string]interface{}{}
	if params.Email != nil {
		body["email"] = *params.Email
	}
	metadata := map[string]string{}
	if params.Name != nil {
		metadata["name"] = *params.Name
	}
	if params.Role != nil {
		metadata["role"] = *params.Role
	}
	if len(metadata) > 0 {
		body["user_metadata"] = metadata
	}
	if len(body) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPut, "/admin/users/"+userID, body, nil)
}

// DeleteUser 删除提供方账号
func (c *AdminClient) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+userID, nil, nil)
}

func (c *AdminClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status=%d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status=%d body=%s", ErrProviderRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: 解析响应失败: %v", ErrProviderUnavailable, err)
	}
	return nil
}
