package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitalvas/sigauth/httpsig"
)

var errInvalidHeaderFlag = errors.New("header must be formatted as \"Name: value\"")

// requestFlags describe the request a command works on.
type requestFlags struct {
	method   string
	url      string
	headers  []string
	bodyFile string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.method, "method", "X", http.MethodGet, "request method")
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "absolute request URL")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "request header as \"Name: value\", repeatable")
	cmd.Flags().StringVar(&f.bodyFile, "body-file", "", "file holding the request body, - for stdin")
	_ = cmd.MarkFlagRequired("url")
}

func (f *requestFlags) build(ctx context.Context, stdin io.Reader) (*http.Request, error) {
	var body io.Reader

	switch f.bodyFile {
	case "":
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read body from stdin: %w", err)
		}
		body = bytes.NewReader(data)
	default:
		data, err := os.ReadFile(f.bodyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read body file: %w", err)
		}
		body = bytes.NewReader(data)
	}

	r, err := http.NewRequestWithContext(ctx, strings.ToUpper(f.method), f.url, body)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidHeaderFlag, h)
		}

		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if strings.EqualFold(name, "Host") {
			r.Host = value
			continue
		}

		r.Header.Add(name, value)
	}

	return r, nil
}

// parseHeaderList parses a comma separated list of covered headers.
func parseHeaderList(list string) ([]httpsig.HeaderName, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	var out []httpsig.HeaderName
	for _, part := range strings.Split(list, ",") {
		name, err := httpsig.ParseHeaderName(part)
		if err != nil {
			return nil, err
		}

		if name != httpsig.HeaderEmpty {
			out = append(out, name)
		}
	}

	return out, nil
}
