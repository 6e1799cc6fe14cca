// Package client talks to the FinSight REST API on behalf of the terminal UI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrUnauthorized = errors.New("not logged in or session expired")

// APIError is a non-2xx response decoded from the API error envelope.
type APIError struct {
	Status  int
	Message string
	Fields  []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Status)
	}

	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}

	return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, "; "))
}

// Client is immutable; the bearer token it sends is fixed at construction.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of c that authenticates every request with token.
func (c *Client) WithToken(token string) *Client {
	authed := *c
	authed.token = token

	return &authed
}

func (c *Client) Authenticated() bool { return c.token != "" }

// Session is the result of a successful login or registration.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
}

type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Notes       string          `json:"notes,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

type Page struct {
	Transactions []Transaction `json:"transactions"`
	TotalCount   int           `json:"totalCount"`
	TotalPages   int           `json:"totalPages"`
	CurrentPage  int           `json:"currentPage"`
}

type Summary struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Balance       decimal.Decimal `json:"balance"`
}

type Month struct {
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type Goal struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	TargetDate    string          `json:"targetDate"`
	Priority      string          `json:"priority"`
	Status        string          `json:"status"`
	Progress      int             `json:"progress"`
	Remaining     decimal.Decimal `json:"remaining"`
	Overdue       bool            `json:"overdue"`
}

type Budget struct {
	ID              uuid.UUID       `json:"id"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	Period          string          `json:"period"`
	IsActive        bool            `json:"isActive"`
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	PercentageSpent int             `json:"percentageSpent"`
	Alert           bool            `json:"alert"`
	Exceeded        bool            `json:"exceeded"`
}

// Row is a parsed import row as echoed back by the CSV upload.
type Row struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Notes       string          `json:"notes,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

type Conflict struct {
	Incoming Row         `json:"incoming"`
	Existing Transaction `json:"existing"`
}

// ImportResult holds either the imported count or, when duplicates were
// found, the rows awaiting confirmation.
type ImportResult struct {
	Imported  int
	New       []Row
	Conflicts []Conflict
}

// Range bounds list, summary and export queries. Nil ends are open.
type Range struct {
	Start *time.Time
	End   *time.Time
}

func (r Range) apply(q url.Values) {
	if r.Start != nil {
		q.Set("startDate", r.Start.Format(time.DateOnly))
	}

	if r.End != nil {
		q.Set("endDate", r.End.Format(time.DateOnly))
	}
}

type ListQuery struct {
	Range
	Type     string
	Category string
	Page     int
	Limit    int
}

type TransactionUpdate struct {
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session

	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

func (c *Client) Register(ctx context.Context, firstName, lastName, email, password string) (*Session, error) {
	var s Session

	body := map[string]string{
		"firstName": firstName,
		"lastName":  lastName,
		"email":     email,
		"password":  password,
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, body, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

func (c *Client) Transactions(ctx context.Context, lq ListQuery) (*Page, error) {
	q := url.Values{}
	lq.apply(q)

	if lq.Type != "" {
		q.Set("type", lq.Type)
	}

	if lq.Category != "" {
		q.Set("category", lq.Category)
	}

	if lq.Page > 0 {
		q.Set("page", fmt.Sprint(lq.Page))
	}

	if lq.Limit > 0 {
		q.Set("limit", fmt.Sprint(lq.Limit))
	}

	var page Page
	if err := c.do(ctx, http.MethodGet, "/api/transactions", q, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, id uuid.UUID, upd TransactionUpdate) error {
	return c.do(ctx, http.MethodPut, "/api/transactions/"+id.String(), nil, upd, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+id.String(), nil, nil, nil)
}

func (c *Client) Summary(ctx context.Context, r Range) (*Summary, error) {
	q := url.Values{}
	r.apply(q)

	var s Summary
	if err := c.do(ctx, http.MethodGet, "/api/transactions/summary", q, nil, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

func (c *Client) Monthly(ctx context.Context, year int) ([]Month, error) {
	q := url.Values{"year": {fmt.Sprint(year)}}

	var months []Month
	if err := c.do(ctx, http.MethodGet, "/api/transactions/monthly", q, nil, &months); err != nil {
		return nil, err
	}

	return months, nil
}

func (c *Client) Categories(ctx context.Context, r Range, txType string) ([]CategoryTotal, error) {
	q := url.Values{}
	r.apply(q)

	if txType != "" {
		q.Set("type", txType)
	}

	var totals []CategoryTotal
	if err := c.do(ctx, http.MethodGet, "/api/transactions/categories", q, nil, &totals); err != nil {
		return nil, err
	}

	return totals, nil
}

func (c *Client) Goals(ctx context.Context) ([]Goal, error) {
	var goals []Goal
	if err := c.do(ctx, http.MethodGet, "/api/goals", nil, nil, &goals); err != nil {
		return nil, err
	}

	return goals, nil
}

func (c *Client) UpdateGoalProgress(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*Goal, error) {
	var g Goal

	body := map[string]decimal.Decimal{"amount": amount}
	if err := c.do(ctx, http.MethodPut, "/api/goals/"+id.String()+"/progress", nil, body, &g); err != nil {
		return nil, err
	}

	return &g, nil
}

func (c *Client) Budgets(ctx context.Context) ([]Budget, error) {
	var budgets []Budget
	if err := c.do(ctx, http.MethodGet, "/api/budgets", nil, nil, &budgets); err != nil {
		return nil, err
	}

	return budgets, nil
}

// SuggestCategory returns "" when no rule matches.
func (c *Client) SuggestCategory(ctx context.Context, description string) (string, error) {
	var resp struct {
		Category *string `json:"category"`
	}

	q := url.Values{"description": {description}}
	if err := c.do(ctx, http.MethodGet, "/api/categories/suggest", q, nil, &resp); err != nil {
		return "", err
	}

	if resp.Category == nil {
		return "", nil
	}

	return *resp.Category, nil
}

func (c *Client) LearnCategory(ctx context.Context, pattern, category string) error {
	body := map[string]string{"pattern": pattern, "category": category}
	return c.do(ctx, http.MethodPost, "/api/categories/rules", nil, body, nil)
}

// ImportCSV uploads a statement. A 409 is not an error: the conflicts are
// returned for the caller to resolve through ConfirmImport.
func (c *Client) ImportCSV(ctx context.Context, name string, content io.Reader) (*ImportResult, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}

	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := c.request(ctx, http.MethodPost, "/api/transactions/import/csv", nil, &buf)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var ok struct {
			Imported int `json:"imported"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}

		return &ImportResult{Imported: ok.Imported}, nil
	case http.StatusConflict:
		var conflict struct {
			New       []Row      `json:"new"`
			Conflicts []Conflict `json:"conflicts"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&conflict); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}

		return &ImportResult{New: conflict.New, Conflicts: conflict.Conflicts}, nil
	}

	return nil, decodeError(resp)
}

func (c *Client) ConfirmImport(ctx context.Context, rows []Row) (int, error) {
	var resp struct {
		Imported int `json:"imported"`
	}

	body := map[string][]Row{"transactions": rows}
	if err := c.do(ctx, http.MethodPost, "/api/transactions/import/csv/confirm", nil, body, &resp); err != nil {
		return 0, err
	}

	return resp.Imported, nil
}

// Export streams the file to w and returns the server-suggested filename.
func (c *Client) Export(ctx context.Context, format string, r Range, w io.Writer) (string, error) {
	q := url.Values{"format": {format}}
	r.apply(q)

	req, err := c.request(ctx, http.MethodGet, "/api/transactions/export", q, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	return attachmentName(resp.Header.Get("Content-Disposition")), nil
}

func attachmentName(disposition string) string {
	_, after, ok := strings.Cut(disposition, "filename=")
	if !ok {
		return ""
	}

	return strings.Trim(after, `"`)
}

func (c *Client) request(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body io.Reader

	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		body = bytes.NewReader(raw)
	}

	req, err := c.request(ctx, method, path, q, body)
	if err != nil {
		return err
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	var envelope struct {
		Error  string       `json:"error"`
		Fields []FieldError `json:"fields"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error == "" {
		envelope.Error = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, envelope.Error)
	}

	return &APIError{Status: resp.StatusCode, Message: envelope.Error, Fields: envelope.Fields}
}
