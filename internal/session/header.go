package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
	"golang.org/x/mod/semver"
)

// HeaderName carries the session id and client API version, as an
// RFC 8941 dictionary: id="…", version="v1.0.0".
const HeaderName = "Storefront-Session"

// Header is the parsed Storefront-Session header. Both members are optional.
type Header struct {
	ID      string
	Version string
}

// ParseSessionHeader parses a Storefront-Session header value.
//
// Examples:
//   - id="3f1c…"                  → ID only
//   - id="3f1c…", version="v1.2.0" → both
//   - version="v1.0.0"            → new session at that version
func ParseSessionHeader(header string) (Header, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Header{}, errors.New("empty " + HeaderName + " header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Header{}, fmt.Errorf("invalid %s header: %w", HeaderName, err)
	}

	var h Header
	if h.ID, err = stringMember(dict, "id"); err != nil {
		return Header{}, err
	}
	if h.Version, err = stringMember(dict, "version"); err != nil {
		return Header{}, err
	}
	return h, nil
}

func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}
	s, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return s, nil
}

// FormatSessionHeader serializes h, omitting empty members.
func FormatSessionHeader(h Header) (string, error) {
	dict := httpsfv.NewDictionary()
	if h.ID != "" {
		dict.Add("id", httpsfv.NewItem(h.ID))
	}
	if h.Version != "" {
		dict.Add("version", httpsfv.NewItem(h.Version))
	}
	return httpsfv.Marshal(dict)
}

// VersionError is returned when a client asks for an API version the
// server cannot serve.
type VersionError struct {
	ClientVersion string
	ServerVersion string
	Message       string
}

func (e *VersionError) Error() string {
	return e.Message
}

// CompatibleVersion checks that a client speaking clientVersion can use a
// server at serverVersion: same major version, client not newer than server.
// An empty client version accepts whatever the server offers.
func CompatibleVersion(serverVersion, clientVersion string) error {
	if clientVersion == "" {
		return nil
	}
	sv := normalizeVersion(serverVersion)
	cv := normalizeVersion(clientVersion)

	if !semver.IsValid(cv) {
		return &VersionError{
			ClientVersion: clientVersion,
			ServerVersion: serverVersion,
			Message:       fmt.Sprintf("invalid version %q", clientVersion),
		}
	}
	if semver.Major(sv) != semver.Major(cv) || semver.Compare(cv, sv) > 0 {
		return &VersionError{
			ClientVersion: clientVersion,
			ServerVersion: serverVersion,
			Message:       fmt.Sprintf("client requires version %s, server supports %s", clientVersion, serverVersion),
		}
	}
	return nil
}

// normalizeVersion adds the "v" prefix semver expects.
func normalizeVersion(v string) string {
	if v == "" {
		return "v0.0.0"
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
