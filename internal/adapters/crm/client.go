// Package crm implements the remote CRM API client. Every request carries the
// bearer token and every response arrives in a {success, data|message}
// envelope.
package crm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nexocrm/funil/internal/app"
	"github.com/nexocrm/funil/internal/domain"
)

// defaultTimeout bounds a single request when the config does not say
// otherwise.
const defaultTimeout = 15 * time.Second

// Config carries the connection settings for the remote API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the CRM REST API over HTTP.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// APIError is a non-2xx response decoded from the envelope.
type APIError struct {
	Status  int
	Message string
}

// Error returns the error message text.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("crm: status %d", e.Status)
	}
	return fmt.Sprintf("crm: %s (status %d)", e.Message, e.Status)
}

// New builds a client from the given config.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("crm: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("crm: parse base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base:  base,
		token: strings.TrimSpace(cfg.Token),
		http:  &http.Client{Timeout: timeout},
	}, nil
}

// envelope is the uniform response wrapper used by the API.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do issues one request and decodes the envelope payload into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crm: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("crm: read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 400 {
				return &APIError{Status: resp.StatusCode}
			}
			return fmt.Errorf("crm: decode envelope: %w", err)
		}
	}
	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", app.ErrNotFound, apiErr)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("crm: empty data in response")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("crm: decode data: %w", err)
	}
	return nil
}

// ListPipelines returns every pipeline visible to the token.
func (c *Client) ListPipelines(ctx context.Context) ([]domain.Pipeline, error) {
	var data pipelinesDataDTO
	if err := c.do(ctx, http.MethodGet, "/pipelines", nil, nil, &data); err != nil {
		return nil, err
	}
	out := make([]domain.Pipeline, 0, len(data.Pipelines))
	for _, dto := range data.Pipelines {
		out = append(out, dto.toDomain())
	}
	return out, nil
}

// GetPipeline returns one pipeline with its stages in position order.
func (c *Client) GetPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	var data pipelineDataDTO
	if err := c.do(ctx, http.MethodGet, "/pipelines/"+url.PathEscape(id), nil, nil, &data); err != nil {
		return domain.Pipeline{}, err
	}
	return data.Pipeline.toDomain(), nil
}

// GetKanban returns the grouped initial board load for one pipeline.
func (c *Client) GetKanban(ctx context.Context, pipelineID string, q app.KanbanQuery) ([]app.KanbanStage, error) {
	query := url.Values{}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.LimitPerStage > 0 {
		query.Set("limit_per_stage", strconv.Itoa(q.LimitPerStage))
	}
	var data kanbanDataDTO
	path := "/pipelines/" + url.PathEscape(pipelineID) + "/opportunities/kanban"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &data); err != nil {
		return nil, err
	}
	out := make([]app.KanbanStage, 0, len(data.Stages))
	for _, dto := range data.Stages {
		out = append(out, dto.toApp())
	}
	return out, nil
}

// ListOpportunities returns one offset-paginated page for a pipeline.
func (c *Client) ListOpportunities(ctx context.Context, pipelineID string, q app.ListQuery) (app.OpportunityPage, error) {
	query := url.Values{}
	if q.StageID != "" {
		query.Set("stage_id", q.StageID)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.SortField != "" {
		query.Set("sort_field", q.SortField)
		query.Set("sort_direction", q.SortDirection)
	}
	var dto opportunityPageDTO
	path := "/pipelines/" + url.PathEscape(pipelineID) + "/opportunities"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &dto); err != nil {
		return app.OpportunityPage{}, err
	}
	return dto.toApp(), nil
}

// MoveOpportunity transitions one opportunity to a new stage and returns the
// authoritative record.
func (c *Client) MoveOpportunity(ctx context.Context, id string, req app.MoveRequest) (domain.Opportunity, error) {
	body := moveRequestDTO{
		StageID:      req.StageID,
		Value:        req.Value,
		Notes:        req.Notes,
		LossReasonID: req.LossReasonID,
		LossNotes:    req.LossNotes,
	}
	var data opportunityDataDTO
	path := "/opportunities/" + url.PathEscape(id) + "/move"
	if err := c.do(ctx, http.MethodPut, path, nil, body, &data); err != nil {
		return domain.Opportunity{}, err
	}
	return data.Opportunity.toDomain(), nil
}

// ReorderOpportunities persists new display orders inside a stage.
func (c *Client) ReorderOpportunities(ctx context.Context, orders []app.DisplayOrder) error {
	body := reorderRequestDTO{Orders: make([]displayOrderDTO, 0, len(orders))}
	for _, o := range orders {
		body.Orders = append(body.Orders, displayOrderDTO{ID: o.ID, DisplayOrder: o.Order})
	}
	return c.do(ctx, http.MethodPut, "/opportunities/reorder", nil, body, nil)
}

// CreateOpportunity creates an opportunity in the given pipeline.
func (c *Client) CreateOpportunity(ctx context.Context, pipelineID string, in app.OpportunityInput) (domain.Opportunity, error) {
	var data opportunityDataDTO
	body := opportunityInputDTO{
		PipelineID:  pipelineID,
		Title:       in.Title,
		Value:       in.Value,
		StageID:     in.StageID,
		ContactID:   in.ContactID,
		OwnerUserID: in.OwnerUserID,
		Notes:       in.Notes,
		TagIDs:      in.TagIDs,
	}
	if err := c.do(ctx, http.MethodPost, "/opportunities", nil, body, &data); err != nil {
		return domain.Opportunity{}, err
	}
	return data.Opportunity.toDomain(), nil
}

// UpdateOpportunity updates mutable fields of one opportunity.
func (c *Client) UpdateOpportunity(ctx context.Context, id string, in app.OpportunityInput) (domain.Opportunity, error) {
	var data opportunityDataDTO
	body := opportunityInputDTO{
		Title:       in.Title,
		Value:       in.Value,
		StageID:     in.StageID,
		ContactID:   in.ContactID,
		OwnerUserID: in.OwnerUserID,
		Notes:       in.Notes,
		TagIDs:      in.TagIDs,
	}
	if err := c.do(ctx, http.MethodPut, "/opportunities/"+url.PathEscape(id), nil, body, &data); err != nil {
		return domain.Opportunity{}, err
	}
	return data.Opportunity.toDomain(), nil
}

// ListDiscardReasons returns the configured loss reasons.
func (c *Client) ListDiscardReasons(ctx context.Context, activeOnly bool) ([]domain.DiscardReason, error) {
	query := url.Values{}
	if activeOnly {
		query.Set("active_only", "true")
	}
	var data reasonsDataDTO
	if err := c.do(ctx, http.MethodGet, "/discard-reasons", query, nil, &data); err != nil {
		return nil, err
	}
	out := make([]domain.DiscardReason, 0, len(data.Reasons))
	for _, dto := range data.Reasons {
		out = append(out, dto.toDomain())
	}
	return out, nil
}

// SeedDiscardReasons asks the server to create its default reason set.
func (c *Client) SeedDiscardReasons(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/discard-reasons/seed", nil, nil, nil)
}

// ListProducts returns the product catalog.
func (c *Client) ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	query := url.Values{}
	if activeOnly {
		query.Set("active_only", "true")
	}
	var data productsDataDTO
	if err := c.do(ctx, http.MethodGet, "/products", query, nil, &data); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(data.Products))
	for _, dto := range data.Products {
		out = append(out, dto.toDomain())
	}
	return out, nil
}

// CreateProduct registers a new product by name.
func (c *Client) CreateProduct(ctx context.Context, name string, defaultPrice float64) (domain.Product, error) {
	var data productDataDTO
	body := productInputDTO{Name: name, DefaultPrice: money(defaultPrice), IsActive: true}
	if err := c.do(ctx, http.MethodPost, "/products", nil, body, &data); err != nil {
		return domain.Product{}, err
	}
	return data.Product.toDomain(), nil
}
