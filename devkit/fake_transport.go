// Package devkit provides scripted fakes of the CRM endpoints and the
// customer profile store for tests and host integration checks.
package devkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-crmquery/core"
)

const KindFake = "devkit"

const DefaultToken = "devkit-token"

type Script struct {
	StatusCode int
	Body       string
	Err        error
}

// FakeCRM answers form POSTs as credential grants and every other request as
// a query. Scripts are consumed in order; the last one repeats.
type FakeCRM struct {
	mu            sync.Mutex
	grants        []Script
	queries       []Script
	grantRequests []core.TransportRequest
	queryRequests []core.TransportRequest
}

func NewFakeCRM() *FakeCRM {
	return &FakeCRM{}
}

func (f *FakeCRM) ScriptGrants(scripts ...Script) *FakeCRM {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, scripts...)
	return f
}

func (f *FakeCRM) ScriptQueries(scripts ...Script) *FakeCRM {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, scripts...)
	return f
}

func (*FakeCRM) Kind() string {
	return KindFake
}

func (f *FakeCRM) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if f == nil {
		return core.TransportResponse{}, fmt.Errorf("devkit: fake crm is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if strings.EqualFold(req.Method, http.MethodPost) {
		f.grantRequests = append(f.grantRequests, cloneRequest(req))
		return respond(f.grants, len(f.grantRequests)-1, GrantBody(DefaultToken))
	}
	f.queryRequests = append(f.queryRequests, cloneRequest(req))
	return respond(f.queries, len(f.queryRequests)-1, RecordSetBody())
}

func (f *FakeCRM) GrantRequests() []core.TransportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRequests(f.grantRequests)
}

func (f *FakeCRM) QueryRequests() []core.TransportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRequests(f.queryRequests)
}

// Calls is the total number of requests seen.
func (f *FakeCRM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.grantRequests) + len(f.queryRequests)
}

func respond(scripts []Script, index int, fallback string) (core.TransportResponse, error) {
	script := Script{Body: fallback}
	if len(scripts) > 0 {
		if index >= len(scripts) {
			index = len(scripts) - 1
		}
		script = scripts[index]
	}
	if script.Err != nil {
		return core.TransportResponse{}, script.Err
	}
	status := script.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return core.TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(script.Body),
		Metadata:   map[string]any{"kind": KindFake},
	}, nil
}

func GrantBody(token string) string {
	return mustJSON(map[string]any{
		"access_token": token,
		"instance_url": "https://crm.devkit.local",
		"token_type":   "Bearer",
	})
}

func GrantFailureBody(code string, description string) string {
	return mustJSON(map[string]any{"error": code, "error_description": description})
}

func RecordSetBody(records ...map[string]any) string {
	if records == nil {
		records = []map[string]any{}
	}
	return mustJSON(map[string]any{
		"done":      true,
		"totalSize": len(records),
		"records":   records,
	})
}

func SessionExpiredBody() string {
	return mustJSON([]map[string]any{{
		"errorCode": core.SessionExpiredCode,
		"message":   "Session expired or invalid",
	}})
}

func Respond(body string) Script {
	return Script{Body: body}
}

func mustJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return string(encoded)
}

func cloneRequests(in []core.TransportRequest) []core.TransportRequest {
	out := make([]core.TransportRequest, 0, len(in))
	for _, item := range in {
		out = append(out, cloneRequest(item))
	}
	return out
}

func cloneRequest(in core.TransportRequest) core.TransportRequest {
	out := core.TransportRequest{
		Method:               in.Method,
		URL:                  in.URL,
		Headers:              map[string]string{},
		Query:                map[string]string{},
		Body:                 append([]byte(nil), in.Body...),
		Metadata:             map[string]any{},
		Timeout:              in.Timeout,
		MaxResponseBodyBytes: in.MaxResponseBodyBytes,
	}
	for key, value := range in.Headers {
		out.Headers[key] = value
	}
	for key, value := range in.Query {
		out.Query[key] = value
	}
	for key, value := range in.Metadata {
		out.Metadata[key] = value
	}
	return out
}

var _ core.TransportAdapter = (*FakeCRM)(nil)
