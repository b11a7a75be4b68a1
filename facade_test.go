package crmquery

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-command"

	"github.com/goliatone/go-crmquery/adapters/gocommand"
	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/devkit"
	"github.com/goliatone/go-crmquery/query"
)

func TestNewFacade_WiresQueries(t *testing.T) {
	session := newTestSession(t, devkit.NewFakeCRM(), devkit.NewMemoryProfileStore())
	facade, err := NewFacade(session)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	queries := facade.Queries()
	if queries.Catalog == nil || queries.Resolve == nil || queries.Raw == nil {
		t.Fatalf("expected every query handler wired, got %#v", queries)
	}

	restricted, err := NewFacade(session, WithoutRawQuery())
	if err != nil {
		t.Fatalf("new restricted facade: %v", err)
	}
	if restricted.Queries().Raw != nil {
		t.Fatalf("expected raw query to be left off")
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

func TestFacade_CatalogQueryDelegation(t *testing.T) {
	crm := devkit.NewFakeCRM().ScriptQueries(devkit.Respond(devkit.RecordSetBody(
		map[string]any{"Id": "inv-1"},
	)))
	store := devkit.NewMemoryProfileStore().Seed("cust-1", core.DefaultAccountAttribute, "A100")
	facade, err := NewFacade(newTestSession(t, crm, store))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	result, err := facade.Queries().Catalog.Query(context.Background(), query.CatalogQueryMessage{
		CustomerID: "cust-1",
		Operation:  query.OperationSpecificInvoice,
		ID:         "inv-1",
	})
	if err != nil {
		t.Fatalf("catalog query: %v", err)
	}
	if !result.HasRecords() {
		t.Fatalf("expected invoice records, got %#v", result.Raw)
	}
	requests := crm.QueryRequests()
	if len(requests) != 1 || !strings.Contains(requests[0].URL, "inv-1") {
		t.Fatalf("expected invoice query, got %#v", requests)
	}
}

func TestFacade_RegisterAndInitialize(t *testing.T) {
	session := newTestSession(t, devkit.NewFakeCRM(), devkit.NewMemoryProfileStore())
	facade, err := NewFacade(session)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	subs, err := facade.Register(adapter)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer subs.Unsubscribe()

	if len(subs) != 3 {
		t.Fatalf("expected three subscriptions, got %d", len(subs))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	resolution, err := gocommand.Query[query.ResolveAccountMessage, core.Resolution](
		context.Background(),
		query.ResolveAccountMessage{CustomerID: "cust-none"},
	)
	if err != nil {
		t.Fatalf("resolve via bus: %v", err)
	}
	if resolution.Status != core.ResolutionNone {
		t.Fatalf("expected none resolution, got %s", resolution)
	}
}

func TestFacade_RegisterRequiresAdapter(t *testing.T) {
	session := newTestSession(t, devkit.NewFakeCRM(), devkit.NewMemoryProfileStore())
	facade, err := NewFacade(session)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	if _, err := facade.Register(nil); err == nil {
		t.Fatalf("expected missing adapter error")
	}
}
