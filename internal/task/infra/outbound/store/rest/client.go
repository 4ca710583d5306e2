package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/hexatodo/internal/shared/domain"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
)

// TokenSource aporta el access token de la sesión activa para la seguridad por fila del BaaS.
type TokenSource interface {
	AccessToken() (string, bool)
}

// APIError es la respuesta de error estructurada del store (dialecto PostgREST).
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store responded %d", e.Status)
	}
	return e.Message
}

// Store es el cliente del store de filas del backend-as-a-service.
type Store struct {
	baseURL string
	apiKey  string
	tokens  TokenSource
	client  *http.Client
	log     *zap.Logger
}

var _ taskDomain.RowStore = (*Store)(nil)

// NewStore crea el cliente. tokens puede ser nil: entonces se autentica solo con la api key.
func NewStore(baseURL, apiKey string, tokens TokenSource, timeout time.Duration, log *zap.Logger) *Store {
	return &Store{
		baseURL: baseURL,
		apiKey:  apiKey,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (s *Store) Select(ctx context.Context, table string, criteria sharedDomain.Criteria) ([]sharedDomain.Row, error) {
	query, err := filterQuery(criteria)
	if err != nil {
		return nil, err
	}
	query.Set("select", "*")

	var rows []sharedDomain.Row
	if err := s.do(ctx, http.MethodGet, table, query, nil, "", &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []sharedDomain.Row{}
	}
	return rows, nil
}

func (s *Store) Insert(ctx context.Context, table string, row sharedDomain.Row) (sharedDomain.Row, error) {
	var rows []sharedDomain.Row
	if err := s.do(ctx, http.MethodPost, table, url.Values{}, row, "return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("insert into %s: expected 1 row, store returned %d", table, len(rows))
	}
	return rows[0], nil
}

func (s *Store) Update(ctx context.Context, table string, patch sharedDomain.Row, criteria sharedDomain.Criteria) error {
	query, err := filterQuery(criteria)
	if err != nil {
		return err
	}
	if len(query) == 0 {
		return fmt.Errorf("update %s: refusing unfiltered update", table)
	}
	return s.do(ctx, http.MethodPatch, table, query, patch, "return=minimal", nil)
}

func (s *Store) Delete(ctx context.Context, table string, criteria sharedDomain.Criteria) error {
	query, err := filterQuery(criteria)
	if err != nil {
		return err
	}
	if len(query) == 0 {
		return fmt.Errorf("delete %s: refusing unfiltered delete", table)
	}
	return s.do(ctx, http.MethodDelete, table, query, nil, "return=minimal", nil)
}

func (s *Store) do(ctx context.Context, method, table string, query url.Values, body interface{}, prefer string, dest interface{}) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, url.PathEscape(table))
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", table, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.bearer())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}

func (s *Store) bearer() string {
	if s.tokens != nil {
		if token, ok := s.tokens.AccessToken(); ok && token != "" {
			return token
		}
	}
	return s.apiKey
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(data) > 0 {
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(data)
		}
	}
	return apiErr
}

// filterQuery traduce los criterios a filtros PostgREST: columna=eq.valor.
func filterQuery(criteria sharedDomain.Criteria) (url.Values, error) {
	query := url.Values{}
	for _, cond := range sharedDomain.Conditions(criteria) {
		value := sharedDomain.ValueString(cond.Value)
		switch cond.Op {
		case sharedDomain.OpEq:
			if cond.Value == nil {
				query.Add(cond.Field, "is.null")
				continue
			}
			query.Add(cond.Field, "eq."+value)
		default:
			return nil, fmt.Errorf("unsupported operator %q", cond.Op)
		}
	}
	return query, nil
}
