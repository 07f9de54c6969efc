package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SOS911/internal/models"
	"SOS911/pkg/errors"
)

// Client 后端 REST 客户端
// 超时固定配置（默认10秒），超时、连接失败和 5xx 都归为
// 传输错误，由提交链路做离线兜底；4xx 是服务端明确拒绝，
// 直接上抛，不进离线队列
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient 创建客户端，timeout<=0 时取10秒
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateAlert 创建报警
func (c *Client) CreateAlert(ctx context.Context, payload AlertaPayload) (*models.Alert, error) {
	body, err := c.post(ctx, "/alertas", payload)
	if err != nil {
		return nil, err
	}
	return parseAlertaResponse(body)
}

// SyncOffline 批量同步离线队列，返回服务端的整体成功标志
func (c *Client) SyncOffline(ctx context.Context, records []models.PendingAlertRecord) (bool, error) {
	payloads := make([]AlertaPayload, 0, len(records))
	for _, rec := range records {
		payloads = append(payloads, NewAlertaPayload(rec))
	}
	body, err := c.post(ctx, "/alertas/sync-offline", syncRequest{Alertas: payloads})
	if err != nil {
		return false, err
	}
	var resp syncResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, errors.WrapCode(errors.CodeBadPayload, err, "unexpected sync response shape")
	}
	return resp.Success, nil
}

// CancelAlert 取消报警，本地ID由 service 层提前拦截、不会到这里
func (c *Client) CancelAlert(ctx context.Context, alertID string) error {
	_, err := c.post(ctx, "/alertas/cancelar/"+url.PathEscape(alertID), nil)
	return err
}

// UpdateStatus 推进报警状态
func (c *Client) UpdateStatus(ctx context.Context, alertID string, status models.AlertStatus, comment string) error {
	path := fmt.Sprintf("/alertas/%s/estado", url.PathEscape(alertID))
	_, err := c.post(ctx, path, estadoRequest{Estado: string(status), Comentario: comment})
	return err
}

// Notifications 用户的报警通知列表
func (c *Client) Notifications(ctx context.Context, userID string) ([]models.Alert, error) {
	body, err := c.get(ctx, "/alertas/notificaciones/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}
	return parseAlertaList(body)
}

// Nearby 附近的报警
func (c *Client) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]models.Alert, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%g", lat))
	q.Set("lng", fmt.Sprintf("%g", lng))
	q.Set("radio", fmt.Sprintf("%g", radiusKm))
	body, err := c.get(ctx, "/alertas/cercanas?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return parseAlertaList(body)
}

// History 用户的历史报警
func (c *Client) History(ctx context.Context, userID string) ([]models.Alert, error) {
	body, err := c.get(ctx, "/alertas/historial/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}
	return parseAlertaList(body)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request failed")
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request failed")
	}
	return c.do(req)
}

// do 执行请求并按响应分类错误
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeTransport, err, "backend unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeTransport, err, "read response failed")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, errors.WithCodef(errors.CodeRejected, "backend rejected request: %d %s", resp.StatusCode, truncate(body))
	default:
		return nil, errors.WithCodef(errors.CodeTransport, "backend error: %d", resp.StatusCode)
	}
}

// parseAlertaResponse 解析创建接口的响应
// 只接受文档约定的三种包装：data、alerta 或裸对象；
// 其余形状直接报错，不做静默的字段回退
func parseAlertaResponse(body []byte) (*models.Alert, error) {
	var envelope struct {
		Data   *alertaDTO `json:"data"`
		Alerta *alertaDTO `json:"alerta"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Data != nil && envelope.Data.ID != "" {
			m := envelope.Data.toModel()
			return &m, nil
		}
		if envelope.Alerta != nil && envelope.Alerta.ID != "" {
			m := envelope.Alerta.toModel()
			return &m, nil
		}
	}

	var dto alertaDTO
	if err := json.Unmarshal(body, &dto); err == nil && dto.ID != "" {
		m := dto.toModel()
		return &m, nil
	}
	return nil, errors.WithCodef(errors.CodeBadPayload, "unexpected alert response shape: %s", truncate(body))
}

// parseAlertaList 解析列表响应，接受 data 包装或裸数组
func parseAlertaList(body []byte) ([]models.Alert, error) {
	var envelope struct {
		Data []alertaDTO `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return dtosToModels(envelope.Data), nil
	}
	var dtos []alertaDTO
	if err := json.Unmarshal(body, &dtos); err == nil {
		return dtosToModels(dtos), nil
	}
	return nil, errors.WithCodef(errors.CodeBadPayload, "unexpected alert list shape: %s", truncate(body))
}

func dtosToModels(dtos []alertaDTO) []models.Alert {
	out := make([]models.Alert, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toModel())
	}
	return out
}

func truncate(body []byte) string {
	const max = 128
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
