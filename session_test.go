package crmquery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/devkit"
	"github.com/goliatone/go-crmquery/transport"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []core.Resolution
}

func (r *recordingAudit) RecordResolution(_ context.Context, _ string, resolution core.Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, resolution)
	return nil
}

func (r *recordingAudit) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func testRuntimeConfig() Config {
	cfg := DefaultConfig()
	cfg.Auth.Endpoint = "https://crm.test/services/oauth2/token"
	cfg.Auth.ClientID = "client"
	cfg.Auth.ClientSecret = "secret"
	cfg.Auth.Username = "api@crm.test"
	cfg.Auth.Password = "pw"
	cfg.Query.Endpoint = "https://crm.test/services/data/v52.0/query/"
	return cfg
}

func newTestSession(t *testing.T, crm *devkit.FakeCRM, store *devkit.MemoryProfileStore, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithTransport(crm), WithProfileStore(store)}, opts...)
	session, err := NewSession(context.Background(), testRuntimeConfig(), opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session
}

func TestNewSession_RequiresProfileStore(t *testing.T) {
	_, err := NewSession(context.Background(), testRuntimeConfig(), WithTransport(devkit.NewFakeCRM()))
	if err == nil {
		t.Fatalf("expected missing profile store error")
	}
}

func TestNewSession_RejectsInvalidConfig(t *testing.T) {
	cfg := testRuntimeConfig()
	cfg.Query.Endpoint = "ftp://crm.test/query"
	_, err := NewSession(context.Background(), cfg,
		WithTransport(devkit.NewFakeCRM()),
		WithProfileStore(devkit.NewMemoryProfileStore()),
	)
	if err == nil {
		t.Fatalf("expected invalid query endpoint error")
	}
}

func TestSession_CatalogUsesStoredAccount(t *testing.T) {
	crm := devkit.NewFakeCRM().ScriptQueries(devkit.Respond(devkit.RecordSetBody(
		map[string]any{"Id": "o-1", "Name": "ORD-1"},
	)))
	store := devkit.NewMemoryProfileStore().Seed("cust-1", core.DefaultAccountAttribute, "A100")
	session := newTestSession(t, crm, store)

	reader, err := session.ForCustomer(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("for customer: %v", err)
	}
	result, err := reader.Orders(context.Background())
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(result.Records()) != 1 || result.Records()[0].String("Name") != "ORD-1" {
		t.Fatalf("unexpected orders result %#v", result.Raw)
	}
	if len(crm.GrantRequests()) != 1 {
		t.Fatalf("expected one grant, got %d", len(crm.GrantRequests()))
	}
	queries := crm.QueryRequests()
	if len(queries) != 1 || !strings.Contains(queries[0].URL, "A100") {
		t.Fatalf("expected account scoped query, got %#v", queries)
	}
	if got := queries[0].Headers["Authorization"]; got != "Bearer "+devkit.DefaultToken {
		t.Fatalf("unexpected authorization header %q", got)
	}
}

func TestSession_CatalogWithoutAccountSkipsNetwork(t *testing.T) {
	crm := devkit.NewFakeCRM()
	session := newTestSession(t, crm, devkit.NewMemoryProfileStore())

	reader, err := session.ForCustomer(context.Background(), "cust-unknown")
	if err != nil {
		t.Fatalf("for customer: %v", err)
	}
	result, err := reader.Invoices(context.Background())
	if err != nil {
		t.Fatalf("invoices: %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %#v", result.Raw)
	}
	if crm.Calls() != 0 {
		t.Fatalf("expected no crm calls, got %d", crm.Calls())
	}
}

func TestSession_ResolvePersistsAndAudits(t *testing.T) {
	crm := devkit.NewFakeCRM().ScriptQueries(devkit.Respond(devkit.RecordSetBody(
		map[string]any{"ccrz__Account__c": "A200"},
	)))
	store := devkit.NewMemoryProfileStore().Seed("cust-2", core.DefaultCompanyAttribute, "SAP-9")
	audit := &recordingAudit{}
	session := newTestSession(t, crm, store, WithResolutionRecorder(audit))

	resolution, err := session.Resolve(context.Background(), "cust-2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolution.Status != core.ResolutionResolved || resolution.AccountID != "A200" {
		t.Fatalf("unexpected resolution %s", resolution)
	}
	stored, _ := store.GetAttribute(context.Background(), "cust-2", core.DefaultAccountAttribute)
	if stored != "A200" {
		t.Fatalf("expected account persisted, got %q", stored)
	}

	again, err := session.Resolve(context.Background(), "cust-2")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if again.Status != core.ResolutionCached {
		t.Fatalf("expected cached resolution, got %s", again)
	}
	if audit.count() != 1 {
		t.Fatalf("expected one audited lookup, got %d", audit.count())
	}
	if len(crm.QueryRequests()) != 1 {
		t.Fatalf("expected a single lookup query, got %d", len(crm.QueryRequests()))
	}
}

func TestSession_RunQueryRenewsExpiredToken(t *testing.T) {
	crm := devkit.NewFakeCRM().
		ScriptGrants(devkit.Respond(devkit.GrantBody("tok-1")), devkit.Respond(devkit.GrantBody("tok-2"))).
		ScriptQueries(
			devkit.Respond(devkit.SessionExpiredBody()),
			devkit.Respond(devkit.RecordSetBody(map[string]any{"Id": "x"})),
		)
	session := newTestSession(t, crm, devkit.NewMemoryProfileStore())

	result, err := session.RunQuery(context.Background(), "?q=SELECT+Id+FROM+Account")
	if err != nil {
		t.Fatalf("run query: %v", err)
	}
	if !result.HasRecords() {
		t.Fatalf("expected records after renewal, got %#v", result.Raw)
	}
	queries := crm.QueryRequests()
	if len(queries) != 2 {
		t.Fatalf("expected original and retried query, got %d", len(queries))
	}
	if queries[0].URL != queries[1].URL {
		t.Fatalf("expected identical retry, got %q and %q", queries[0].URL, queries[1].URL)
	}
	if queries[1].Headers["Authorization"] != "Bearer tok-2" {
		t.Fatalf("expected renewed token on retry, got %q", queries[1].Headers["Authorization"])
	}
}

func TestSession_InvalidateForcesNewGrant(t *testing.T) {
	crm := devkit.NewFakeCRM()
	session := newTestSession(t, crm, devkit.NewMemoryProfileStore())
	ctx := context.Background()

	if _, err := session.Token(ctx); err != nil {
		t.Fatalf("token: %v", err)
	}
	if _, err := session.Token(ctx); err != nil {
		t.Fatalf("cached token: %v", err)
	}
	if len(crm.GrantRequests()) != 1 {
		t.Fatalf("expected cached token reuse, got %d grants", len(crm.GrantRequests()))
	}
	session.Invalidate()
	if _, err := session.Token(ctx); err != nil {
		t.Fatalf("token after invalidate: %v", err)
	}
	if len(crm.GrantRequests()) != 2 {
		t.Fatalf("expected a fresh grant after invalidate, got %d", len(crm.GrantRequests()))
	}
}

func TestSession_EmptyTokenIsUnauthenticated(t *testing.T) {
	crm := devkit.NewFakeCRM().ScriptGrants(devkit.Respond(devkit.GrantFailureBody("invalid_grant", "bad password")))
	session := newTestSession(t, crm, devkit.NewMemoryProfileStore())

	_, err := session.RunQuery(context.Background(), "?q=SELECT+Id+FROM+Account")
	if !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
	if len(crm.QueryRequests()) != 0 {
		t.Fatalf("expected no query without a token")
	}
}

func TestSession_ForCustomerRequiresID(t *testing.T) {
	session := newTestSession(t, devkit.NewFakeCRM(), devkit.NewMemoryProfileStore())
	if _, err := session.ForCustomer(context.Background(), "  "); err == nil {
		t.Fatalf("expected missing customer id error")
	}
}

func TestNewSession_WrapsTransportWithRateLimit(t *testing.T) {
	crm := devkit.NewFakeCRM().
		ScriptGrants(devkit.Respond(devkit.GrantBody("tok-1"))).
		ScriptQueries(devkit.Respond(devkit.RecordSetBody(map[string]any{"Id": "x"})))
	cfg := testRuntimeConfig()
	cfg.Query.RequestsPerSecond = 50

	session, err := NewSession(context.Background(), cfg, WithTransport(crm), WithProfileStore(devkit.NewMemoryProfileStore()))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok := session.Dependencies().Transport.(*transport.RateLimitedAdapter); !ok {
		t.Fatalf("expected rate limited transport, got %T", session.Dependencies().Transport)
	}
	if _, err := session.RunQuery(context.Background(), "?q=SELECT+Id+FROM+Account"); err != nil {
		t.Fatalf("run query: %v", err)
	}
	if crm.Calls() != 2 {
		t.Fatalf("expected grant and query through the limiter, got %d calls", crm.Calls())
	}

	plain := newTestSession(t, devkit.NewFakeCRM(), devkit.NewMemoryProfileStore())
	if _, ok := plain.Dependencies().Transport.(*transport.RateLimitedAdapter); ok {
		t.Fatalf("expected no limiter without requests_per_second")
	}
}

func TestSession_NilSessionReportsInternalError(t *testing.T) {
	var session *Session
	ctx := context.Background()
	_, tokenErr := session.Token(ctx)
	_, runErr := session.RunQuery(ctx, "?q=SELECT+Id+FROM+Account")
	_, resolveErr := session.Resolve(ctx, "cust-1")
	for name, err := range map[string]error{"token": tokenErr, "run": runErr, "resolve": resolveErr} {
		mapped := core.MapError(err)
		if mapped == nil || mapped.TextCode != core.ErrorInternal {
			t.Fatalf("%s: expected internal error envelope, got %v", name, err)
		}
	}
	session.Invalidate()
}
