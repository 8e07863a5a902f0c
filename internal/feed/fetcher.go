package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"marketplace_v1_202610/internal/apperr"
)

// Fetcher 通过 HTTP 拉取价目表
type Fetcher struct {
	client  *resty.Client
	maxSize int64
}

// NewFetcher timeout 为单次拉取的上限
func NewFetcher(timeout time.Duration, maxSize int64) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Marketplace-Feed/1.0").
		SetHeader("Accept", "application/x-yaml, text/yaml, text/plain, */*")
	if maxSize > 0 {
		// 边读边计数，超限立即中断
		client.SetResponseBodyLimit(int(maxSize))
	}
	return &Fetcher{client: client, maxSize: maxSize}
}

// MaxURLLength 与 shops.url、feed_imports.location 列宽一致
const MaxURLLength = 500

// ValidateURL 只接受 http/https 绝对地址
func ValidateURL(raw string) error {
	if len(raw) > MaxURLLength {
		return apperr.Validation(fmt.Sprintf("URL 长度不能超过 %d", MaxURLLength))
	}
	if err := validate.Var(raw, "required,url"); err != nil {
		return apperr.Validation("URL 格式不正确")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("URL 格式不正确")
	}
	return nil
}

// Fetch 拉取失败、超时、非 200 均返回 feed_unavailable
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, apperr.New(apperr.KindFeedUnavailable, fmt.Sprintf("价目表超过 %d 字节", f.maxSize))
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFeedUnavailable, "价目表拉取失败", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apperr.New(apperr.KindFeedUnavailable, fmt.Sprintf("价目表拉取失败: HTTP %d", resp.StatusCode()))
	}

	return resp.Body(), nil
}
