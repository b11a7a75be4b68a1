package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-crmquery/core"
)

func TestRESTAdapter_GetKeepsEncodedQueryVerbatim(t *testing.T) {
	var gotRawQuery, gotAuth, gotAccept, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotRawQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", ContentTypeJSON)
		_, _ = w.Write([]byte(`{"done":true,"totalSize":0,"records":[]}`))
	}))
	defer server.Close()

	encoded := "q=" + url.QueryEscape("SELECT Id FROM ccrz__E_Order__c WHERE ccrz__Account__c = 'A100' LIMIT 200")
	adapter := NewRESTAdapter(server.Client())
	res, err := adapter.Do(context.Background(), GetRequest(server.URL+"/query/?"+encoded, map[string]string{
		"Authorization": "Bearer tok",
	}))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotMethod != http.MethodGet {
		t.Fatalf("expected GET, got %s", gotMethod)
	}
	if gotRawQuery != encoded {
		t.Fatalf("expected raw query %q, got %q", encoded, gotRawQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotAccept != ContentTypeJSON {
		t.Fatalf("expected default accept header, got %q", gotAccept)
	}
	if res.StatusCode != http.StatusOK || res.Headers["Content-Type"] != ContentTypeJSON {
		t.Fatalf("unexpected response: %+v", res)
	}
	if res.Metadata["kind"] != KindREST {
		t.Fatalf("expected kind metadata, got %v", res.Metadata["kind"])
	}
}

func TestRESTAdapter_FormRequestEncodesBody(t *testing.T) {
	var form url.Values
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		_, _ = w.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), FormRequest(server.URL, url.Values{
		"grant_type": {"password"},
		"username":   {"api@example.com"},
	}))
	if err != nil {
		t.Fatalf("post form: %v", err)
	}
	if contentType != ContentTypeForm {
		t.Fatalf("expected form content type, got %q", contentType)
	}
	if form.Get("grant_type") != "password" || form.Get("username") != "api@example.com" {
		t.Fatalf("unexpected form: %v", form)
	}
}

func TestRESTAdapter_NonSuccessStatusStillReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`[{"errorCode":"INVALID_SESSION_ID","message":"Session expired"}]`))
	}))
	defer server.Close()

	res, err := NewRESTAdapter(server.Client()).Do(context.Background(), GetRequest(server.URL, nil))
	if err != nil {
		t.Fatalf("expected no transport error for 401, got %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized || len(res.Body) == 0 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestRESTAdapter_RequestQueryMergesParameters(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewRESTAdapter(server.Client()).Do(context.Background(), core.TransportRequest{
		URL:   server.URL + "?q=SELECT+Id",
		Query: map[string]string{"batch": " 10 "},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotQuery.Get("q") != "SELECT Id" || gotQuery.Get("batch") != "10" {
		t.Fatalf("unexpected query: %v", gotQuery)
	}
}

func TestNewRESTAdapter_DefaultClientTimeout(t *testing.T) {
	adapter := NewRESTAdapter(nil)
	client, ok := adapter.Client.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client default, got %T", adapter.Client)
	}
	if client.Timeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", client.Timeout)
	}
}

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorExternalFailure {
		t.Fatalf("expected %q text code, got %q", core.ErrorExternalFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_RequestLimitOverridesAdapterLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 2
	res, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL, MaxResponseBodyBytes: 8})
	if err != nil {
		t.Fatalf("expected request limit to win, got %v", err)
	}
	if string(res.Body) != "12345" {
		t.Fatalf("unexpected body %q", string(res.Body))
	}
}

func TestRESTAdapter_RelativeURLIsBadInput(t *testing.T) {
	_, err := NewRESTAdapter(nil).Do(context.Background(), core.TransportRequest{URL: "/query/?q=x"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryBadInput || rich.TextCode != core.ErrorBadInput {
		t.Fatalf("unexpected envelope: %q %q", rich.Category, rich.TextCode)
	}
}

func TestRESTAdapter_NilReturnsInternalError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), core.TransportRequest{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.ErrorInternal || rich.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected envelope: %q %d", rich.TextCode, rich.Code)
	}
}
