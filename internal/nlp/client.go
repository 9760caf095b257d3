package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"TenderGuard/internal/utils/httpclient"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ClauseInput 送评条款
type ClauseInput struct {
	ClauseID        string `json:"clauseId"`
	SectionType     string `json:"sectionType"`
	RequirementText string `json:"requirementText"`
}

// ClauseScore 评分结果，分数在 [0,1]，越高限制性越强
type ClauseScore struct {
	ClauseID string  `json:"clauseId"`
	Score    float64 `json:"score"`
}

// Client 条款限制性评分服务客户端（外部NLP模型服务）
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Config 评分服务客户端配置
type Config struct {
	BaseURL string
	Timeout int // 秒
	Proxy   string
}

// NewClient 创建评分服务客户端
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpclient.NewHTTPClient(cfg.Timeout, cfg.Proxy, logger),
		logger:     logger,
	}
}

// scoreRequest 批量评分请求体
type scoreRequest struct {
	Clauses        []ClauseInput `json:"clauses"`
	IdempotencyKey string        `json:"idempotencyKey"`
}

// scoreResponse 批量评分响应
type scoreResponse struct {
	Data    []ClauseScore `json:"data"`
	Code    int           `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
}

// ScoreClauses 批量评分。返回结果只含服务端成功评分的条款，
// 调用方按 ClauseID 回写，缺失的条款留待下次评分。
func (c *Client) ScoreClauses(ctx context.Context, clauses []ClauseInput) ([]ClauseScore, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("评分服务地址未配置")
	}

	reqBody := scoreRequest{
		Clauses:        clauses,
		IdempotencyKey: uuid.New().String(),
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("评分服务 HTTP 请求失败")
		return nil, fmt.Errorf("评分服务请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var result scoreResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.logger.WithError(err).WithField("body", string(respBody)).Warn("评分服务响应解析失败")
		return nil, fmt.Errorf("评分服务响应解析失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := result.Message
		if msg == "" {
			msg = string(respBody)
		}
		c.logger.WithField("status", resp.StatusCode).WithField("message", msg).Warn("评分服务返回错误")
		return nil, fmt.Errorf("评分服务错误 %d: %s", resp.StatusCode, msg)
	}

	c.logger.WithField("requested", len(clauses)).WithField("scored", len(result.Data)).Debug("条款评分完成")
	return result.Data, nil
}

// Ping 检查评分服务连通性
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("评分服务 ping 非 200: %d", resp.StatusCode)
	}
	return nil
}
