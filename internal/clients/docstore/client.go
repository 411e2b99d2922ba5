package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/logger"
	pkgerrors "github.com/pathwise/pathwise-backend/internal/pkg/errors"
	"github.com/pathwise/pathwise-backend/internal/pkg/httpx"
	"github.com/pathwise/pathwise-backend/internal/types"
	"github.com/pathwise/pathwise-backend/internal/utils"
)

// Client talks to the remote document API over HTTP/JSON. Reads retry on
// retryable statuses with jittered backoff; writes are attempted the same
// way but callers treat a final failure as non-fatal (optimistic state
// stands and self-heals on the next refresh).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
	maxRetries int
	retryBase  time.Duration
}

func NewClient(log *logger.Logger) (*Client, error) {
	clientLog := log.With("client", "DocstoreClient")

	baseURL := strings.TrimRight(utils.GetEnv("DOCSTORE_BASE_URL", "", log), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing DOCSTORE_BASE_URL")
	}
	apiKey := utils.GetEnv("DOCSTORE_API_KEY", "", log)
	timeout := utils.GetEnvAsDuration("DOCSTORE_TIMEOUT", 15*time.Second, log)
	maxRetries := utils.GetEnvAsInt("DOCSTORE_MAX_RETRIES", 3, log)

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        clientLog,
		maxRetries: maxRetries,
		retryBase:  500 * time.Millisecond,
	}, nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("docstore responded %d: %s", e.status, e.body)
}

func (e *statusError) HTTPStatusCode() int { return e.status }

// doJSON issues one request with retries, decoding a 2xx body into out when
// out is non-nil. A 404 maps to pkgerrors.ErrNotFound.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = raw
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(httpx.JitterSleep(c.retryBase * time.Duration(1<<(attempt-1)))):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if httpx.IsRetryableError(err) && attempt < c.maxRetries {
				c.log.Debug("docstore request failed, retrying", "method", method, "path", path, "attempt", attempt, "error", err)
				continue
			}
			return lastErr
		}

		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return pkgerrors.ErrNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
			if httpx.IsRetryableHTTPStatus(resp.StatusCode) && attempt < c.maxRetries {
				wait := httpx.RetryAfterDuration(resp, c.retryBase, 30*time.Second)
				c.log.Debug("docstore returned retryable status", "method", method, "path", path, "status", resp.StatusCode, "wait", wait)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
				continue
			}
			return lastErr
		}
		if readErr != nil {
			return readErr
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *Client) FetchModuleTree(ctx context.Context, moduleID uuid.UUID) (*types.Module, error) {
	var m types.Module
	if err := c.doJSON(ctx, http.MethodGet, "/v1/modules/"+moduleID.String(), nil, nil, &m); err != nil {
		return nil, fmt.Errorf("%w: module tree %s: %v", pkgerrors.ErrFetchFailure, moduleID, err)
	}
	return &m, nil
}

func (c *Client) ListModules(ctx context.Context, userID uuid.UUID) ([]types.ModuleOverview, error) {
	q := url.Values{"user": {userID.String()}}
	var out struct {
		Modules []types.ModuleOverview `json:"modules"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/modules", q, nil, &out); err != nil {
		return nil, fmt.Errorf("%w: module list: %v", pkgerrors.ErrFetchFailure, err)
	}
	return out.Modules, nil
}

func (c *Client) FetchProgressRecord(ctx context.Context, userID, moduleID uuid.UUID) (*types.ProgressRecord, error) {
	var rec types.ProgressRecord
	path := "/v1/progress/" + userID.String() + "/" + moduleID.String()
	err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &rec)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrNotFound) {
			return &types.ProgressRecord{
				UserID:   userID,
				ModuleID: moduleID,
				Status:   types.StatusNotStarted,
			}, nil
		}
		return nil, fmt.Errorf("%w: progress record: %v", pkgerrors.ErrFetchFailure, err)
	}
	return &rec, nil
}

func (c *Client) FetchCompletionData(ctx context.Context, userID, moduleID uuid.UUID) (*types.CompletionData, error) {
	var cd types.CompletionData
	path := "/v1/completion/" + userID.String() + "/" + moduleID.String()
	err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &cd)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrNotFound) {
			return &types.CompletionData{}, nil
		}
		return nil, fmt.Errorf("%w: completion data: %v", pkgerrors.ErrFetchFailure, err)
	}
	return &cd, nil
}

func (c *Client) WriteProgress(ctx context.Context, userID, moduleID, lessonID, chapterID uuid.UUID, status types.ProgressStatus) error {
	body := map[string]interface{}{
		"current_lesson":  lessonID,
		"current_chapter": chapterID,
		"status":          status,
	}
	path := "/v1/progress/" + userID.String() + "/" + moduleID.String()
	if err := c.doJSON(ctx, http.MethodPut, path, nil, body, nil); err != nil {
		return fmt.Errorf("%w: progress write: %v", pkgerrors.ErrWriteFailure, err)
	}
	return nil
}

func (c *Client) FetchAttempt(ctx context.Context, kind types.AttemptKind, itemID, userID uuid.UUID) (*types.AttemptRecord, error) {
	q := url.Values{"user": {userID.String()}}
	var rec types.AttemptRecord
	path := "/v1/attempts/" + string(kind) + "/" + itemID.String()
	err := c.doJSON(ctx, http.MethodGet, path, q, nil, &rec)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: attempt %s: %v", pkgerrors.ErrFetchFailure, itemID, err)
	}
	return &rec, nil
}

func (c *Client) StartModule(ctx context.Context, userID, moduleID uuid.UUID) error {
	path := "/v1/progress/" + userID.String() + "/" + moduleID.String() + "/start"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("%w: start module: %v", pkgerrors.ErrWriteFailure, err)
	}
	return nil
}
