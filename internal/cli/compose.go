package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalvas/sigauth/httpsig"
)

type composeOptions struct {
	request   requestFlags
	headers   string
	created   int64
	expires   time.Duration
	algorithm string
	escaping  string
	digest    string
}

func newComposeCmd(a *app) *cobra.Command {
	opts := &composeOptions{}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Print the signing string for a request",
		Example: `  sigauth compose -X POST -u https://api.example.com/items \
    -H "Date: Tue, 07 Jun 2014 20:51:35 GMT" --headers "(request-target),date,digest" \
    --body-file body.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompose(cmd, a, opts)
		},
	}

	opts.request.register(cmd)
	cmd.Flags().StringVar(&opts.headers, "headers", "(request-target),(created),(expires)", "comma separated covered headers")
	cmd.Flags().Int64Var(&opts.created, "created", 0, "unix time rendered for (created), defaults to now")
	cmd.Flags().DurationVar(&opts.expires, "expires", httpsig.DefaultSignatureExpiry, "offset from created rendered for (expires)")
	cmd.Flags().StringVar(&opts.algorithm, "algorithm", httpsig.AlgorithmHS2019, "declared signature algorithm")
	cmd.Flags().StringVar(&opts.escaping, "escaping", httpsig.EscapingRFC3986.String(), "request target escaping: RFC3986, RFC2396, Unescaped, OriginalString")
	cmd.Flags().StringVar(&opts.digest, "digest-algorithm", string(httpsig.HashSHA256), "hash used when digest is covered and absent")

	return cmd
}

func runCompose(cmd *cobra.Command, a *app, opts *composeOptions) error {
	r, err := opts.request.build(cmd.Context(), cmd.InOrStdin())
	if err != nil {
		return err
	}

	req, err := httpsig.NewRequest(r)
	if err != nil {
		return err
	}

	headers, err := parseHeaderList(opts.headers)
	if err != nil {
		return err
	}

	escaping, err := httpsig.ParseRequestTargetEscaping(opts.escaping)
	if err != nil {
		return err
	}

	created := time.Now().Truncate(time.Second)
	if opts.created > 0 {
		created = time.Unix(opts.created, 0)
	}

	signingString, err := httpsig.ComposeSigningString(httpsig.ComposeInput{
		Request:         req,
		Headers:         headers,
		TimeOfComposing: created,
		Expires:         opts.expires,
		Escaping:        escaping,
		Algorithm:       opts.algorithm,
		DigestAlgorithm: httpsig.NormalizeHashName(opts.digest),
	})
	if err != nil {
		return err
	}

	a.logger.Debug().
		Str("method", req.Method).
		Int("headers", len(headers)).
		Msg("signing string composed")

	_, err = fmt.Fprintln(cmd.OutOrStdout(), signingString)
	return err
}
