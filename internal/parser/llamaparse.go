package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/agenthands/docgraph/internal/logger"
	"github.com/agenthands/docgraph/internal/metrics"
)

const (
	DefaultLlamaParseURL = "https://api.cloud.llamaindex.ai/api/parsing"
	PageSeparator        = "\n\n---\n\n"

	jobPending = "PENDING"
	jobSuccess = "SUCCESS"
)

type LlamaParseOptions struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
	// RetryMax bounds transport-level retries per HTTP call.
	RetryMax int
}

// LlamaParse drives the hosted parsing service: upload, poll the job until it
// leaves PENDING, then fetch the markdown result.
type LlamaParse struct {
	opts LlamaParseOptions
	http *retryablehttp.Client
}

func NewLlamaParse(opts LlamaParseOptions) *LlamaParse {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultLlamaParseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 3
	}

	c := retryablehttp.NewClient()
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.Logger = httpLogger{}
	// Keep the final response so the status code reaches ServiceError.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &LlamaParse{opts: opts, http: c}
}

type uploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type jobStatus struct {
	Status string `json:"status"`
}

type markdownResult struct {
	Markdown string `json:"markdown"`
}

// Parse runs one job end to end. Timeout bounds the whole job, HTTP calls
// included.
func (p *LlamaParse) Parse(ctx context.Context, content []byte, fileName, mimeType string) (NormalizedText, error) {
	base := BaseMIMEType(mimeType)
	if !Supported(base) {
		return "", fmt.Errorf("%s (%s): %w", fileName, base, ErrUnsupportedFormat)
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	text, err := p.run(jobCtx, content, fileName, base)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("%s after %s: %w", fileName, p.opts.Timeout, ErrTimeout)
	}
	return text, err
}

func (p *LlamaParse) run(ctx context.Context, content []byte, fileName, mimeType string) (NormalizedText, error) {
	up, err := p.upload(ctx, content, fileName, mimeType)
	if err != nil {
		return "", err
	}
	logger.Debug("parse job created", "job", up.ID, "file", fileName)

	status, err := p.wait(ctx, up.ID)
	if err != nil {
		return "", err
	}
	if status != jobSuccess {
		return "", &JobError{JobID: up.ID, Status: status}
	}

	var res markdownResult
	if err := p.getJSON(ctx, "result", fmt.Sprintf("%s/job/%s/result/markdown", p.opts.BaseURL, up.ID), &res); err != nil {
		return "", err
	}
	return NormalizedText(res.Markdown), nil
}

func (p *LlamaParse) upload(ctx context.Context, content []byte, fileName, mimeType string) (uploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return uploadResponse{}, err
	}
	if _, err := part.Write(content); err != nil {
		return uploadResponse{}, err
	}
	if err := mw.WriteField("page_separator", PageSeparator); err != nil {
		return uploadResponse{}, err
	}
	if err := mw.Close(); err != nil {
		return uploadResponse{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL+"/upload", body.Bytes())
	if err != nil {
		return uploadResponse{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var up uploadResponse
	if err := p.do(req, "upload", &up); err != nil {
		return uploadResponse{}, err
	}
	if up.ID == "" {
		return uploadResponse{}, &ServiceError{Op: "upload", StatusCode: http.StatusOK, Err: fmt.Errorf("response carries no job id")}
	}
	return up, nil
}

// wait polls the job until it leaves PENDING or ctx ends.
func (p *LlamaParse) wait(ctx context.Context, jobID string) (string, error) {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}

		var st jobStatus
		if err := p.getJSON(ctx, "status", fmt.Sprintf("%s/job/%s", p.opts.BaseURL, jobID), &st); err != nil {
			return "", err
		}
		logger.Debug("parse job status", "job", jobID, "status", st.Status)
		if st.Status != jobPending {
			return st.Status, nil
		}
	}
}

func (p *LlamaParse) getJSON(ctx context.Context, op, url string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return p.do(req, op, out)
}

func (p *LlamaParse) do(req *retryablehttp.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.opts.APIKey)

	metrics.ExternalCalls.WithLabelValues("parser").Inc()
	resp, err := p.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		se := &ServiceError{Op: op, Err: err}
		if resp != nil {
			se.StatusCode = resp.StatusCode
			resp.Body.Close()
		}
		return se
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// httpLogger routes retryablehttp's leveled logs through the logger facade.
type httpLogger struct{}

func (httpLogger) Error(msg string, keysAndValues ...interface{}) { logger.Error(msg, keysAndValues...) }
func (httpLogger) Info(msg string, keysAndValues ...interface{})  { logger.Debug(msg, keysAndValues...) }
func (httpLogger) Debug(msg string, keysAndValues ...interface{}) { logger.Debug(msg, keysAndValues...) }
func (httpLogger) Warn(msg string, keysAndValues ...interface{})  { logger.Warn(msg, keysAndValues...) }
