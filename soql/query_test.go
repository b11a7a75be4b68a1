package soql

import (
	"net/url"
	"strings"
	"testing"
)

func TestQuery_StringRendersClausesInOrder(t *testing.T) {
	q := Select("Id", "WP_PONumber__c", "ccrz__OrderDate__c").
		From("ccrz__E_Order__c").
		Eq("ccrz__Account__c", "A100").
		Where("CreatedDate", ">", Literal("2022-01-01T00:00:00Z")).
		OrderBy("ccrz__OrderDate__c", Desc).
		Limit(5)

	want := "SELECT Id, WP_PONumber__c, ccrz__OrderDate__c FROM ccrz__E_Order__c " +
		"WHERE ccrz__Account__c = 'A100' AND CreatedDate > 2022-01-01T00:00:00Z " +
		"ORDER BY ccrz__OrderDate__c DESC LIMIT 5"
	if got := q.String(); got != want {
		t.Fatalf("unexpected statement:\n got %s\nwant %s", got, want)
	}
}

func TestQuery_BuilderReturnsCopies(t *testing.T) {
	base := SelectAll().From("ccrz__E_ContactAddr__c")
	withID := base.Eq("Id", "a1")
	if len(base.Conditions) != 0 {
		t.Fatalf("expected base query untouched, got %v", base.Conditions)
	}
	if !withID.AllFields() {
		t.Fatalf("expected FIELDS(ALL) selection")
	}
	if got := withID.String(); got != "SELECT FIELDS(ALL) FROM ccrz__E_ContactAddr__c WHERE Id = 'a1'" {
		t.Fatalf("unexpected statement %q", got)
	}
}

func TestQuery_EscapesLiterals(t *testing.T) {
	q := Select("Name").From("ccrz__E_Order__c").Eq("WP_SAP_Order_Number__c", `O'Brien\1`)
	if !strings.Contains(q.String(), `'O\'Brien\\1'`) {
		t.Fatalf("expected escaped literal, got %s", q.String())
	}
}

func TestQuery_ParamsEncodesStatement(t *testing.T) {
	q := Select("Id").From("ccrz__E_Order__c").Eq("ccrz__Account__c", "A 1&2").Limit(200)
	params := q.Params()
	if !strings.HasPrefix(params, "?q=") {
		t.Fatalf("expected ?q= prefix, got %q", params)
	}
	values, err := url.ParseQuery(strings.TrimPrefix(params, "?"))
	if err != nil {
		t.Fatalf("parse params: %v", err)
	}
	if values.Get("q") != q.String() {
		t.Fatalf("expected encoded statement to decode back, got %q", values.Get("q"))
	}
}

func TestParseParams_RoundTrip(t *testing.T) {
	q := Select("Id", "WP_PONumber__c").
		From("ccrz__E_Order__c").
		Eq("ccrz__Account__c", "A100").
		Where("CreatedDate", ">", Literal("2023-06-01T00:00:00Z")).
		OrderBy("ccrz__OrderDate__c", Desc).
		Limit(5)

	parsed, err := ParseParams(q.Params())
	if err != nil {
		t.Fatalf("parse params: %v", err)
	}
	if parsed.String() != q.String() {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", parsed.String(), q.String())
	}
	account, ok := parsed.Condition("ccrz__Account__c")
	if !ok || account != "A100" {
		t.Fatalf("expected account id A100, got %q", account)
	}
	if parsed.RowLimit != 5 {
		t.Fatalf("expected limit 5, got %d", parsed.RowLimit)
	}
	if parsed.Object != "ccrz__E_Order__c" {
		t.Fatalf("unexpected object %q", parsed.Object)
	}
}

func TestParse_KeywordsInsideLiteralsAreIgnored(t *testing.T) {
	q := Select("Name").
		From("ccrz__E_Invoice__c").
		Eq("ccrz__SoldTo__c", "A' AND LIMIT 3 FROM x").
		Eq("ccrz__Status__c", "Open")

	parsed, err := Parse(q.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %+v", parsed.Conditions)
	}
	soldTo, _ := parsed.Condition("ccrz__SoldTo__c")
	if soldTo != "A' AND LIMIT 3 FROM x" {
		t.Fatalf("unexpected sold to %q", soldTo)
	}
	if parsed.RowLimit != 0 {
		t.Fatalf("expected no limit, got %d", parsed.RowLimit)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []string{
		"",
		"DELETE FROM x",
		"SELECT Id",
		"SELECT FROM x",
		"SELECT Id FROM x LIMIT ten",
		"SELECT Id FROM x WHERE Id",
	}
	for _, statement := range cases {
		if _, err := Parse(statement); err == nil {
			t.Fatalf("expected error for %q", statement)
		}
	}
	if _, err := ParseParams("?batch=1"); err == nil {
		t.Fatalf("expected error for params without q")
	}
}

func TestUnescape_ReversesEscape(t *testing.T) {
	for _, value := range []string{"plain", `a'b`, `c\d`, "line\nbreak", `"quoted"`} {
		if got := Unescape(Escape(value)); got != value {
			t.Fatalf("escape round trip failed for %q: %q", value, got)
		}
	}
}
