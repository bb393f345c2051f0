// Package api implements the HTTP client for the student-information REST
// API the console administers. The API is an external collaborator: this
// client only shapes requests and surfaces its error messages verbatim.
package api

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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ssis-app/console/internal/dto"
	"github.com/ssis-app/console/internal/observability"
	"github.com/ssis-app/console/internal/record"
)

// Entity names the three collections the API exposes.
type Entity string

const (
	EntityStudents Entity = "students"
	EntityColleges Entity = "colleges"
	EntityPrograms Entity = "programs"
)

// Singular returns the entity name used in fallback error messages.
func (e Entity) Singular() string {
	switch e {
	case EntityStudents:
		return "student"
	case EntityColleges:
		return "college"
	case EntityPrograms:
		return "program"
	default:
		return "record"
	}
}

// Client talks to the SIS REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewClient constructs a client for the API rooted at baseURL.
func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "api_client").Logger(),
		tracer:  otel.Tracer("sis-api-client"),
	}
}

// BuildListURL renders the list request URL for the given query. Search
// parameters are only attached when the search text is non-blank, matching
// the collaborator's expectations.
func BuildListURL(base string, entity Entity, q dto.Query) string {
	values := url.Values{}
	values.Set("sort", q.Sort)
	values.Set("sort_by", q.SortBy)
	if search := strings.TrimSpace(q.Search); search != "" {
		values.Set("search", search)
		values.Set("search_field", q.SearchField)
	}
	return fmt.Sprintf("%s/%s?%s", base, entity, values.Encode())
}

// List fetches the full collection for an entity, already filtered and
// sorted server-side, and converts it into tagged records at this single
// ingestion point.
func (c *Client) List(ctx context.Context, entity Entity, q dto.Query) ([]record.Record, error) {
	body, err := c.do(ctx, http.MethodGet, BuildListURL(c.baseURL, entity, q), nil,
		entity, "list", "Failed to fetch "+string(entity))
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", entity, err)
	}
	return record.DecodeList(items), nil
}

// Get fetches a single record, used to refresh a row before editing.
func (c *Client) Get(ctx context.Context, entity Entity, id string) (record.Record, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, entity, url.PathEscape(id))
	body, err := c.do(ctx, http.MethodGet, endpoint, nil,
		entity, "get", "Failed to fetch "+entity.Singular())
	if err != nil {
		return record.Record{}, err
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return record.Record{}, fmt.Errorf("decode %s: %w", entity.Singular(), err)
	}
	return record.Decode(fields), nil
}

// Create posts a new record payload.
func (c *Client) Create(ctx context.Context, entity Entity, payload any) error {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, entity)
	_, err := c.do(ctx, http.MethodPost, endpoint, payload,
		entity, "create", "Failed to add "+entity.Singular())
	return err
}

// Update puts a payload to the ORIGINAL identity so the collaborator can
// detect renames: the body may carry a new code while the path carries the
// pre-edit one.
func (c *Client) Update(ctx context.Context, entity Entity, originalID string, payload any) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, entity, url.PathEscape(originalID))
	_, err := c.do(ctx, http.MethodPut, endpoint, payload,
		entity, "update", "Failed to edit "+entity.Singular())
	return err
}

// Delete removes a record by identity.
func (c *Client) Delete(ctx context.Context, entity Entity, id string) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, entity, url.PathEscape(id))
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil,
		entity, "delete", "Failed to delete "+entity.Singular())
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, entity Entity, operation, fallback string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "sis.api."+operation, trace.WithAttributes(
		attribute.String("sis.entity", string(entity)),
	))
	defer span.End()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", entity.Singular(), err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}

	correlationID := uuid.NewString()
	req.Header.Set("X-Correlation-ID", correlationID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	observability.APILatency().WithLabelValues(string(entity), operation).Observe(time.Since(started).Seconds())
	if err != nil {
		observability.APIRequests().WithLabelValues(string(entity), operation, "error").Inc()
		c.logger.Error().Err(err).
			Str("method", method).
			Str("url", endpoint).
			Str("correlation_id", correlationID).
			Msg("request failed")
		return nil, errors.New(fallback)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}

	observability.APIRequests().WithLabelValues(string(entity), operation, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Str("correlation_id", correlationID).
		Dur("elapsed", time.Since(started)).
		Msg("sis api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope dto.ErrorResponse
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
			return nil, errors.New(envelope.Error)
		}
		return nil, errors.New(fallback)
	}

	return body, nil
}
