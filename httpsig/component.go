package httpsig

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// componentFunc returns the contribution of one covered header to the
// signing string. An empty contribution is valid.
type componentFunc func(in *ComposeInput, name HeaderName) (string, error)

var lineBreakStripper = strings.NewReplacer("\r\n", "", "\n", "", "\r", "")

// components maps the headers with dedicated composition rules to their
// strategy. Every other name falls back to headerComponentValue.
var components = map[HeaderName]componentFunc{
	HeaderRequestTarget: requestTargetComponentValue,
	HeaderCreated:       createdComponentValue,
	HeaderExpires:       expiresComponentValue,
	HeaderDate:          dateComponentValue,
	HeaderDigest:        digestComponentValue,
}

func componentFor(name HeaderName) componentFunc {
	if fn, ok := components[name]; ok {
		return fn
	}

	return headerComponentValue
}

// requestTargetComponentValue renders "<lower(method)> <path>". The query
// string is omitted and path characters are escaped per in.Escaping.
func requestTargetComponentValue(in *ComposeInput, _ HeaderName) (string, error) {
	u, err := in.Request.absoluteURL()
	if err != nil {
		return "", err
	}

	if in.Request.Method == "" {
		return "", fmt.Errorf("%w: method is empty", ErrInvalidRequest)
	}

	return strings.ToLower(in.Request.Method) + " " + escapePath(u, in.Escaping), nil
}

func createdComponentValue(in *ComposeInput, _ HeaderName) (string, error) {
	if !allowsCreatedAndExpires(in.Algorithm) {
		return "", fmt.Errorf("%w: %s", ErrCreatedNotAllowed, in.Algorithm)
	}

	return strconv.FormatInt(in.TimeOfComposing.Unix(), 10), nil
}

func expiresComponentValue(in *ComposeInput, _ HeaderName) (string, error) {
	if !allowsCreatedAndExpires(in.Algorithm) {
		return "", fmt.Errorf("%w: %s", ErrExpiresNotAllowed, in.Algorithm)
	}

	return strconv.FormatInt(in.TimeOfComposing.Add(in.Expires).Unix(), 10), nil
}

func dateComponentValue(in *ComposeInput, _ HeaderName) (string, error) {
	values := headerValues(in.Request.Header, HeaderDate)
	if len(values) == 0 {
		return "", nil
	}

	return values[0], nil
}

// digestComponentValue computes the body digest. Methods that carry no body
// contribute nothing; an empty body on other methods yields an empty value.
func digestComponentValue(in *ComposeInput, _ HeaderName) (string, error) {
	if !methodHasBody(in.Request.Method) || len(in.Request.Body) == 0 {
		return "", nil
	}

	hash := in.DigestAlgorithm
	if hash == "" {
		hash = HashSHA256
	}

	return ComputeDigest(in.Request.Body, hash)
}

// headerComponentValue looks the header up case-insensitively. Each value is
// trimmed and stripped of line breaks; multiple values are joined with ", ".
func headerComponentValue(in *ComposeInput, name HeaderName) (string, error) {
	values := headerValues(in.Request.Header, name)
	if len(values) == 0 {
		return "", nil
	}

	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = lineBreakStripper.Replace(v)
		cleaned = append(cleaned, strings.TrimSpace(v))
	}

	return strings.Join(cleaned, ", "), nil
}

// headerValues returns all values of the named header. Keys that are not in
// canonical form (e.g. set directly on the map) are matched too.
func headerValues(h http.Header, name HeaderName) []string {
	if h == nil {
		return nil
	}

	if values, ok := h[http.CanonicalHeaderKey(string(name))]; ok {
		return values
	}

	for k, values := range h {
		if strings.EqualFold(k, string(name)) {
			return values
		}
	}

	return nil
}

func hasHeader(h http.Header, name HeaderName) bool {
	return len(headerValues(h, name)) > 0
}

func methodHasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodTrace:
		return false
	default:
		return true
	}
}
