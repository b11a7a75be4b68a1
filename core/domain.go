package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QueryRequest is built fresh per call and never mutated after construction.
type QueryRequest struct {
	endpoint       string
	params         string
	accountID      string
	limit          int
	dateLowerBound string
}

type QueryRequestInput struct {
	Endpoint       string
	Params         string
	AccountID      string
	Limit          int
	DateLowerBound string
}

func NewQueryRequest(in QueryRequestInput) (QueryRequest, error) {
	endpoint := strings.TrimSpace(in.Endpoint)
	if endpoint == "" {
		return QueryRequest{}, BadInputError("crmquery: query endpoint is required")
	}
	params := strings.TrimSpace(in.Params)
	if params == "" {
		return QueryRequest{}, BadInputError("crmquery: query params are required")
	}
	if in.Limit < 0 {
		return QueryRequest{}, BadInputError("crmquery: query limit must be >= 0")
	}
	return QueryRequest{
		endpoint:       endpoint,
		params:         params,
		accountID:      strings.TrimSpace(in.AccountID),
		limit:          in.Limit,
		dateLowerBound: strings.TrimSpace(in.DateLowerBound),
	}, nil
}

func (r QueryRequest) Endpoint() string       { return r.endpoint }
func (r QueryRequest) Params() string         { return r.params }
func (r QueryRequest) AccountID() string      { return r.accountID }
func (r QueryRequest) Limit() int             { return r.limit }
func (r QueryRequest) DateLowerBound() string { return r.dateLowerBound }

// URI appends the query params to the endpoint verbatim.
func (r QueryRequest) URI() string {
	return r.endpoint + r.params
}

type Record map[string]any

// String returns the field as a trimmed string, or "" when absent or not a
// string.
func (r Record) String(field string) string {
	if r == nil {
		return ""
	}
	value, ok := r[field].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

type RecordSet struct {
	Done      bool     `json:"done"`
	TotalSize int      `json:"totalSize"`
	Records   []Record `json:"records"`
}

type ErrorPayload struct {
	ErrorCode string   `json:"errorCode"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
}

type QueryResult struct {
	Raw       any
	RecordSet *RecordSet
	Errors    []ErrorPayload
}

// EmptyResult stands in for "nothing to show".
func EmptyResult() QueryResult {
	return QueryResult{Raw: []any{}}
}

func (r QueryResult) Empty() bool {
	if r.RecordSet != nil {
		return len(r.RecordSet.Records) == 0
	}
	if len(r.Errors) > 0 {
		return false
	}
	switch typed := r.Raw.(type) {
	case nil:
		return true
	case []any:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}

func (r QueryResult) Records() []Record {
	if r.RecordSet == nil {
		return nil
	}
	return r.RecordSet.Records
}

// ErrorCode returns the error code of the first error payload, if any.
func (r QueryResult) ErrorCode() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].ErrorCode
}

func (r QueryResult) SessionExpired() bool {
	return r.ErrorCode() == SessionExpiredCode
}

// HasRecords mirrors the lookup guard: done, a positive total and at least one
// record present.
func (r QueryResult) HasRecords() bool {
	return r.RecordSet != nil &&
		r.RecordSet.Done &&
		r.RecordSet.TotalSize > 0 &&
		len(r.RecordSet.Records) > 0
}

// DecodeQueryResult decodes a raw response body. Objects become record sets,
// arrays of objects carrying errorCode become error payloads; the decoded
// value is always kept in Raw.
func DecodeQueryResult(body []byte) (QueryResult, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return QueryResult{}, DecodeError(err, map[string]any{"body_bytes": len(body)})
	}
	result := QueryResult{Raw: raw}

	switch typed := raw.(type) {
	case map[string]any:
		if _, ok := typed["records"]; !ok {
			if _, ok := typed["done"]; !ok {
				return result, nil
			}
		}
		set := RecordSet{}
		if err := json.Unmarshal(body, &set); err != nil {
			return QueryResult{}, DecodeError(err, map[string]any{"shape": "record_set"})
		}
		if set.Records == nil {
			set.Records = []Record{}
		}
		result.RecordSet = &set
	case []any:
		if len(typed) == 0 {
			return result, nil
		}
		first, ok := typed[0].(map[string]any)
		if !ok {
			return result, nil
		}
		if _, ok := first["errorCode"]; !ok {
			return result, nil
		}
		payloads := []ErrorPayload{}
		if err := json.Unmarshal(body, &payloads); err != nil {
			return QueryResult{}, DecodeError(err, map[string]any{"shape": "error_payload"})
		}
		result.Errors = payloads
	}
	return result, nil
}

type ResolutionStatus string

const (
	ResolutionCached               ResolutionStatus = "cached"
	ResolutionResolved             ResolutionStatus = "resolved"
	ResolutionResolvedNotPersisted ResolutionStatus = "resolved_not_persisted"
	ResolutionNone                 ResolutionStatus = "none"
)

// Resolution is the outcome of an account number lookup. Err carries the
// swallowed persistence failure for ResolutionResolvedNotPersisted.
type Resolution struct {
	AccountID string
	Status    ResolutionStatus
	Err       error
}

func (r Resolution) Found() bool {
	return strings.TrimSpace(r.AccountID) != ""
}

func (r Resolution) Persisted() bool {
	return r.Status == ResolutionCached || r.Status == ResolutionResolved
}

func (r Resolution) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s(%s): %v", r.Status, r.AccountID, r.Err)
	}
	return fmt.Sprintf("%s(%s)", r.Status, r.AccountID)
}
