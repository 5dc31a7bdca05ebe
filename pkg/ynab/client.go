package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.ynab.com/v1"
	// AccessTokenKey is the session key holding the YNAB bearer token.
	AccessTokenKey = "ynab_access_token"

	maxResponseBytes = 10 << 20
	maxErrorBytes    = 4 << 10
)

// TokenStore is the session-scoped place the access token lives in.
type TokenStore interface {
	Get(key string) (string, bool)
	Remove(key string)
}

type Client interface {
	GetBudgets(ctx context.Context) (budgets []BudgetSummary, defaultBudgetID string, err error) // GET /budgets
	GetScheduledTransactions(ctx context.Context, budgetID string, lastKnowledge *int64) (ScheduledTransactionsDelta, error)
	GetCategoryGroups(ctx context.Context, budgetID string, lastKnowledge *int64) (CategoryGroupsDelta, error)
	CreateScheduledTransaction(ctx context.Context, budgetID string, draft ScheduledTransactionDraft, opts ...CallOption) (string, error)
	UpdateScheduledTransaction(ctx context.Context, budgetID, id string, draft ScheduledTransactionDraft, opts ...CallOption) error
	DeleteScheduledTransaction(ctx context.Context, budgetID, id string, opts ...CallOption) error
}

type callOptions struct {
	dryRun bool
}

type CallOption func(*callOptions)

// DryRun makes a mutating call succeed without any network I/O. Create returns a fresh id.
func DryRun(enabled bool) CallOption {
	return func(o *callOptions) {
		o.dryRun = enabled
	}
}

func applyOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type Config struct {
	BaseURL    string
	Session    TokenStore
	HTTPClient *http.Client
}

type ClientImpl struct {
	baseURL    string
	session    TokenStore
	httpClient *http.Client
}

func NewClient(cfg Config) *ClientImpl {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClientImpl{
		baseURL:    baseURL,
		session:    cfg.Session,
		httpClient: httpClient,
	}
}

func (c *ClientImpl) GetBudgets(ctx context.Context) ([]BudgetSummary, string, error) {
	var response struct {
		Data struct {
			Budgets       []BudgetSummary `json:"budgets"`
			DefaultBudget *BudgetSummary  `json:"default_budget"`
		} `json:"data"`
	}
	if err := c.do(ctx, "list budgets", http.MethodGet, "/budgets", nil, &response); err != nil {
		return nil, "", err
	}

	defaultID := ""
	if response.Data.DefaultBudget != nil {
		defaultID = response.Data.DefaultBudget.ID
	}
	return response.Data.Budgets, defaultID, nil
}

func (c *ClientImpl) GetScheduledTransactions(ctx context.Context, budgetID string, lastKnowledge *int64) (ScheduledTransactionsDelta, error) {
	var response struct {
		Data ScheduledTransactionsDelta `json:"data"`
	}
	path := withKnowledge("/budgets/"+url.PathEscape(budgetID)+"/scheduled_transactions", lastKnowledge)
	if err := c.do(ctx, "list scheduled transactions", http.MethodGet, path, nil, &response); err != nil {
		return ScheduledTransactionsDelta{}, err
	}
	return response.Data, nil
}

func (c *ClientImpl) GetCategoryGroups(ctx context.Context, budgetID string, lastKnowledge *int64) (CategoryGroupsDelta, error) {
	var response struct {
		Data CategoryGroupsDelta `json:"data"`
	}
	path := withKnowledge("/budgets/"+url.PathEscape(budgetID)+"/categories", lastKnowledge)
	if err := c.do(ctx, "list category groups", http.MethodGet, path, nil, &response); err != nil {
		return CategoryGroupsDelta{}, err
	}
	return response.Data, nil
}

// CreateScheduledTransaction creates the draft in YNAB and returns the id YNAB assigned to it.
func (c *ClientImpl) CreateScheduledTransaction(ctx context.Context, budgetID string, draft ScheduledTransactionDraft, opts ...CallOption) (string, error) {
	if applyOptions(opts).dryRun {
		id := uuid.NewString()
		log.Debugf("dry run: pretending to create scheduled transaction %s", id)
		return id, nil
	}

	var response struct {
		Data struct {
			ScheduledTransaction *struct {
				ID string `json:"id"`
			} `json:"scheduled_transaction"`
		} `json:"data"`
	}
	path := "/budgets/" + url.PathEscape(budgetID) + "/scheduled_transactions"
	if err := c.do(ctx, "create scheduled transaction", http.MethodPost, path, newSaveWrapper(draft), &response); err != nil {
		return "", err
	}

	if response.Data.ScheduledTransaction == nil || response.Data.ScheduledTransaction.ID == "" {
		err := fmt.Errorf("%w: create scheduled transaction: response carries no data.scheduled_transaction.id", ErrNetwork)
		log.Error(err)
		return "", err
	}
	return response.Data.ScheduledTransaction.ID, nil
}

func (c *ClientImpl) UpdateScheduledTransaction(ctx context.Context, budgetID, id string, draft ScheduledTransactionDraft, opts ...CallOption) error {
	if applyOptions(opts).dryRun {
		log.Debugf("dry run: pretending to update scheduled transaction %s", id)
		return nil
	}
	path := "/budgets/" + url.PathEscape(budgetID) + "/scheduled_transactions/" + url.PathEscape(id)
	return c.do(ctx, "update scheduled transaction", http.MethodPut, path, newSaveWrapper(draft), nil)
}

func (c *ClientImpl) DeleteScheduledTransaction(ctx context.Context, budgetID, id string, opts ...CallOption) error {
	if applyOptions(opts).dryRun {
		log.Debugf("dry run: pretending to delete scheduled transaction %s", id)
		return nil
	}
	path := "/budgets/" + url.PathEscape(budgetID) + "/scheduled_transactions/" + url.PathEscape(id)
	return c.do(ctx, "delete scheduled transaction", http.MethodDelete, path, nil, nil)
}

// do sends one authenticated request. A nil out discards the response body.
func (c *ClientImpl) do(ctx context.Context, operation, method, path string, body any, out any) error {
	token, ok := c.accessToken()
	if !ok {
		log.Debugf("%s: user is unauthenticated, authentication is required", operation)
		return ErrUnauthenticated
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		err = fmt.Errorf("%w: %s: failed to create request: %w", ErrNetwork, operation, err)
		log.Error(err)
		return err
	}
	(&oauth2.Token{AccessToken: token}).SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrNetwork, operation, err)
		log.Error(err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Remove(AccessTokenKey)
		log.Warnf("%s: YNAB rejected the access token, it has been discarded", operation)
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		log.Errorf("YNAB API returned %d for %s: %s", resp.StatusCode, operation, detail)
		return &RemoteRejectedError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty response body")
		}
		err = fmt.Errorf("%w: %s: failed to decode response: %w", ErrNetwork, operation, err)
		log.Error(err)
		return err
	}
	return nil
}

func (c *ClientImpl) accessToken() (string, bool) {
	if c.session == nil {
		return "", false
	}
	return c.session.Get(AccessTokenKey)
}

func withKnowledge(path string, lastKnowledge *int64) string {
	if lastKnowledge == nil {
		return path
	}
	return path + "?last_knowledge_of_server=" + strconv.FormatInt(*lastKnowledge, 10)
}

// statusText is the reason phrase of resp, e.g. "Not Found" for "404 Not Found".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
