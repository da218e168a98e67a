package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-ldap/ldap/v3"

	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
)

const personObjectClass = "weeeOpenPerson"

// LDAPResolver queries the lab's directory service. ID-style queries are
// matched against the personal unique code first; everything else falls
// back to uid and then nickname matching. Disabled accounts never match.
type LDAPResolver struct {
	Server     string
	BindDN     string
	Password   string
	SearchBase string
}

func (r *LDAPResolver) Resolve(ctx context.Context, query string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	connection, err := r.connect()
	if err != nil {
		return Identity{}, coreerrors.Wrap(
			fmt.Errorf("%w: %s", ErrUnavailable, err),
			coreerrors.CategoryDirectoryUnavailable, "directory_unreachable",
			"retry, or rerun with --no-ldap if you are sure about the username", true)
	}
	defer connection.Close()

	ambiguous := false
	for _, filter := range searchFilters(query) {
		request := ldap.NewSearchRequest(
			r.SearchBase,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
			filter,
			[]string{"uid", "cn", "givenname", "signedsir"},
			nil,
		)
		result, err := connection.Search(request)
		if err != nil {
			return Identity{}, coreerrors.Wrap(
				fmt.Errorf("%w: search: %s", ErrUnavailable, err),
				coreerrors.CategoryDirectoryUnavailable, "directory_search_failed",
				"retry, or rerun with --no-ldap if you are sure about the username", true)
		}
		if len(result.Entries) > 1 {
			ambiguous = true
			continue
		}
		if len(result.Entries) == 1 {
			return identityFromEntry(result.Entries[0]), nil
		}
	}

	if ambiguous {
		return Identity{}, coreerrors.Wrap(
			fmt.Errorf("%w: %q matched several accounts", ErrAmbiguous, query),
			coreerrors.CategoryIdentityAmbiguous, "identity_ambiguous",
			"try a more specific name, ID, or nickname", false)
	}
	return Identity{}, coreerrors.Wrap(
		fmt.Errorf("%w: %q", ErrNotFound, query),
		coreerrors.CategoryIdentityNotFound, "identity_not_found",
		"check the spelling, or ask an administrator", false)
}

func (r *LDAPResolver) connect() (*ldap.Conn, error) {
	connection, err := ldap.DialURL(r.Server)
	if err != nil {
		return nil, err
	}
	// Plaintext endpoints are upgraded before credentials travel.
	if strings.HasPrefix(r.Server, "ldap://") {
		tlsConfig := &tls.Config{ServerName: serverHost(r.Server)}
		if err := connection.StartTLS(tlsConfig); err != nil {
			connection.Close()
			return nil, err
		}
	}
	if err := connection.Bind(r.BindDN, r.Password); err != nil {
		connection.Close()
		return nil, err
	}
	return connection, nil
}

func serverHost(server string) string {
	parsed, err := url.Parse(server)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// searchFilters builds the filter cascade for a query: a single unique-code
// filter for ID-style input, otherwise uid then nickname. Free-form values
// are escaped; ID-style values are alphanumeric by construction.
func searchFilters(query string) []string {
	if matricolized, ok := Matricolize(query); ok {
		return []string{personFilter("schacpersonaluniquecode", matricolized)}
	}
	escaped := ldap.EscapeFilter(query)
	return []string{
		personFilter("uid", escaped),
		personFilter("weeelabnickname", escaped),
	}
}

func personFilter(attribute, value string) string {
	return fmt.Sprintf("(&(objectClass=%s)(%s=%s)(!(nsaccountlock=true)))",
		personObjectClass, attribute, value)
}

func identityFromEntry(entry *ldap.Entry) Identity {
	return Identity{
		Username:     entry.GetAttributeValue("uid"),
		FullName:     entry.GetAttributeValue("cn"),
		FirstName:    entry.GetAttributeValue("givenname"),
		SignedPolicy: strings.EqualFold(entry.GetAttributeValue("signedsir"), "true"),
	}
}
