package presigner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"
)

// PresignedRequest 已签名、可直接执行的请求.
type PresignedRequest struct {
	Method              string            `json:"method"`
	URL                 string            `json:"url"`
	SignedHeaders       http.Header       `json:"signed_headers,omitempty"`
	FormData            map[string]string `json:"form_data,omitempty"`
	Expiration          time.Time         `json:"expiration"`
	IsBrowserExecutable bool              `json:"is_browser_executable"`
}

// IsExpired 报告在 now 时刻签名是否已失效.
func (p PresignedRequest) IsExpired(now time.Time) bool {
	return !now.Before(p.Expiration)
}

// HTTPRequest 构造可发送的 *http.Request.
// POST Policy 请求会把 FormData 与 body 编码为 multipart 表单，body 作为 file 字段.
func (p PresignedRequest) HTTPRequest(ctx context.Context, body io.Reader) (*http.Request, error) {
	if p.Method == http.MethodPost && p.FormData != nil {
		return p.formRequest(ctx, body)
	}

	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build presigned request: %w", err)
	}

	for k, vs := range p.SignedHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	return req, nil
}

func (p PresignedRequest) formRequest(ctx context.Context, body io.Reader) (*http.Request, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(p.FormData))
	for k := range p.FormData {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, p.FormData[k]); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", k, err)
		}
	}

	// file 字段必须位于最后
	part, err := w.CreateFormFile("file", "upload")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}

	if body != nil {
		if _, err := io.Copy(part, body); err != nil {
			return nil, fmt.Errorf("copy form body: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, &buf)
	if err != nil {
		return nil, fmt.Errorf("build presigned form request: %w", err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())

	return req, nil
}
