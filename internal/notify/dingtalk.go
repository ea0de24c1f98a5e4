// Package notify delivers alert messages through a DingTalk robot webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultWebhookURL = "https://oapi.dingtalk.com/robot/send?access_token="

// DingTalk posts text and markdown messages to one robot webhook token.
type DingTalk struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func NewDingTalk(accessToken string) *DingTalk {
	return &DingTalk{
		baseURL:     defaultWebhookURL,
		accessToken: accessToken,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

type atBlock struct {
	AtMobiles []string `json:"atMobiles,omitempty"`
	IsAtAll   bool     `json:"isAtAll,omitempty"`
}

// SendTextMessage sends content, optionally @-mentioning phones or everyone.
func (d *DingTalk) SendTextMessage(ctx context.Context, content string, phones []string, atAll bool) error {
	body := map[string]any{
		"msgtype": "text",
		"text":    map[string]string{"content": content},
	}
	if atAll || len(phones) > 0 {
		body["at"] = atBlock{AtMobiles: phones, IsAtAll: atAll}
	}
	return d.post(ctx, body)
}

// SendMarkdownMessage sends a titled markdown message.
func (d *DingTalk) SendMarkdownMessage(ctx context.Context, title, text string, phones []string, atAll bool) error {
	body := map[string]any{
		"msgtype":  "markdown",
		"markdown": map[string]string{"title": title, "text": text},
	}
	if atAll || len(phones) > 0 {
		body["at"] = atBlock{AtMobiles: phones, IsAtAll: atAll}
	}
	return d.post(ctx, body)
}

func (d *DingTalk) post(ctx context.Context, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+d.accessToken, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("dingtalk webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dingtalk webhook: http %d", resp.StatusCode)
	}
	return nil
}
