package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalvas/sigauth/config"
	"github.com/vitalvas/sigauth/httpsig"
)

type signOptions struct {
	request  requestFlags
	client   string
	headers  string
	expires  time.Duration
	nonce    string
	newNonce bool
	legacy   bool
	digest   string
}

func newSignCmd(a *app) *cobra.Command {
	opts := &signOptions{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a request with a configured client key",
		Long: `sign signs the request described by the flags with the key of the
configured client and prints the headers to send with it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSign(cmd, a, opts)
		},
	}

	opts.request.register(cmd)
	cmd.Flags().StringVar(&opts.client, "client", "", "id of the configured client to sign as")
	cmd.Flags().StringVar(&opts.headers, "headers", "", "comma separated covered headers, defaults depend on the method")
	cmd.Flags().DurationVar(&opts.expires, "expires", httpsig.DefaultSignatureExpiry, "signature lifetime when (expires) is covered")
	cmd.Flags().StringVar(&opts.nonce, "nonce", "", "nonce to include")
	cmd.Flags().BoolVar(&opts.newNonce, "generate-nonce", false, "include a random nonce")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "declare the per-algorithm name instead of hs2019")
	cmd.Flags().StringVar(&opts.digest, "digest-algorithm", string(httpsig.HashSHA256), "hash used for the Digest header")
	_ = cmd.MarkFlagRequired("client")

	return cmd
}

func runSign(cmd *cobra.Command, a *app, opts *signOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	clientCfg, ok := cfg.Client(opts.client)
	if !ok {
		return fmt.Errorf("%w: %q", config.ErrUnknownClient, opts.client)
	}

	alg, err := clientCfg.SigningAlgorithm()
	if err != nil {
		return err
	}
	defer alg.Dispose()

	headers, err := parseHeaderList(opts.headers)
	if err != nil {
		return err
	}

	escaping := clientCfg.Escaping
	if escaping == "" {
		escaping = cfg.Defaults.Escaping
	}

	esc, err := httpsig.ParseRequestTargetEscaping(escaping)
	if err != nil {
		return err
	}

	r, err := opts.request.build(cmd.Context(), cmd.InOrStdin())
	if err != nil {
		return err
	}

	err = httpsig.SignRequest(r, httpsig.SignConfig{
		KeyID:               clientCfg.ID,
		Algorithm:           alg,
		Headers:             headers,
		Expires:             opts.expires,
		Nonce:               opts.nonce,
		GenerateNonce:       opts.newNonce,
		LegacyAlgorithmName: opts.legacy,
		Escaping:            esc,
		DigestAlgorithm:     httpsig.NormalizeHashName(opts.digest),
		Scheme:              cfg.Scheme,
	})
	if err != nil {
		return err
	}

	a.logger.Debug().
		Str("client", clientCfg.ID).
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Msg("request signed")

	return printSignedHeaders(cmd.OutOrStdout(), r)
}

func printSignedHeaders(w io.Writer, r *http.Request) error {
	for _, name := range []string{"Authorization", "Date", httpsig.DigestHeader} {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s: %s\n", name, value); err != nil {
			return err
		}
	}

	return nil
}
