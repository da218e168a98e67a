package directory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
)

func TestMatricolize(t *testing.T) {
	cases := []struct {
		query string
		want  string
		ok    bool
	}{
		{"123456", "s123456", true},
		{"s123456", "s123456", true},
		{"S123456", "S123456", true},
		{"d123456", "d123456", true},
		{"D9", "D9", true},
		{"", "", false},
		{"s", "", false},
		{"alice", "", false},
		{"s12a45", "", false},
		{"x123456", "", false},
		{"12 34", "", false},
	}
	for _, testCase := range cases {
		got, ok := Matricolize(testCase.query)
		if ok != testCase.ok || got != testCase.want {
			t.Errorf("Matricolize(%q) = %q, %v, want %q, %v",
				testCase.query, got, ok, testCase.want, testCase.ok)
		}
	}
}

func TestPassthroughTrustsTrimmedQuery(t *testing.T) {
	identity, err := Passthrough{}.Resolve(context.Background(), "  alice ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if identity.Username != "alice" {
		t.Fatalf("username = %q, want alice", identity.Username)
	}
	if !identity.SignedPolicy {
		t.Fatal("passthrough identities must not trigger the policy reminder")
	}
}

func TestPassthroughRejectsBlankQuery(t *testing.T) {
	_, err := Passthrough{}.Resolve(context.Background(), "   ")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchFiltersForIDStyleQuery(t *testing.T) {
	filters := searchFilters("123456")
	if len(filters) != 1 {
		t.Fatalf("filters = %v, want a single unique-code filter", filters)
	}
	want := "(&(objectClass=weeeOpenPerson)(schacpersonaluniquecode=s123456)(!(nsaccountlock=true)))"
	if filters[0] != want {
		t.Fatalf("filter = %q, want %q", filters[0], want)
	}
}

func TestSearchFiltersForFreeFormQuery(t *testing.T) {
	filters := searchFilters("alice")
	if len(filters) != 2 {
		t.Fatalf("filters = %v, want uid then nickname", filters)
	}
	if !strings.Contains(filters[0], "(uid=alice)") {
		t.Errorf("first filter %q should match uid", filters[0])
	}
	if !strings.Contains(filters[1], "(weeelabnickname=alice)") {
		t.Errorf("second filter %q should match nickname", filters[1])
	}
	for _, filter := range filters {
		if !strings.Contains(filter, "(!(nsaccountlock=true))") {
			t.Errorf("filter %q must exclude disabled accounts", filter)
		}
	}
}

func TestSearchFiltersEscapeMetacharacters(t *testing.T) {
	filters := searchFilters("al(ice)*")
	for _, filter := range filters {
		if strings.Contains(filter, "(al(ice)*") {
			t.Fatalf("filter %q carries unescaped metacharacters", filter)
		}
	}
}

func TestIdentityFromEntry(t *testing.T) {
	entry := ldap.NewEntry("uid=alice,ou=people,dc=example", map[string][]string{
		"uid":       {"alice"},
		"cn":        {"Alice Rossi"},
		"givenname": {"Alice"},
		"signedsir": {"TRUE"},
	})
	identity := identityFromEntry(entry)
	if identity.Username != "alice" || identity.FullName != "Alice Rossi" || identity.FirstName != "Alice" {
		t.Fatalf("identity = %+v", identity)
	}
	if !identity.SignedPolicy {
		t.Fatal("signedsir TRUE should count as signed")
	}
}

func TestServerHost(t *testing.T) {
	if got := serverHost("ldap://ldap.example.com:389"); got != "ldap.example.com" {
		t.Fatalf("host = %q, want ldap.example.com", got)
	}
	if got := serverHost("ldaps://directory.example.com"); got != "directory.example.com" {
		t.Fatalf("host = %q, want directory.example.com", got)
	}
}

func TestIdentityFromEntryWithoutSignature(t *testing.T) {
	entry := ldap.NewEntry("uid=bob,ou=people,dc=example", map[string][]string{
		"uid": {"bob"},
		"cn":  {"Bob Bianchi"},
	})
	if identityFromEntry(entry).SignedPolicy {
		t.Fatal("a missing signedsir attribute must read as unsigned")
	}
}
