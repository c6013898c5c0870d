package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitalvas/sigauth/httpsig"
)

var errVerificationFailed = errors.New("signature verification failed")

type verifyOptions struct {
	request       requestFlags
	authorization string
}

func newVerifyCmd(a *app) *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the signature of a request",
		Long: `verify runs the verification pipeline for the request described by
the flags against the configured clients. The Authorization value is taken
from --authorization or from an Authorization header flag.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, a, opts)
		},
	}

	opts.request.register(cmd)
	cmd.Flags().StringVar(&opts.authorization, "authorization", "", "Authorization header value")

	return cmd
}

func runVerify(cmd *cobra.Command, a *app, opts *verifyOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	verifier, closer, err := cfg.Verifier(&a.logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	r, err := opts.request.build(cmd.Context(), cmd.InOrStdin())
	if err != nil {
		return err
	}

	authorization := opts.authorization
	if authorization == "" {
		authorization = r.Header.Get("Authorization")
	}

	req, err := httpsig.NewRequest(r)
	if err != nil {
		return err
	}

	result, err := verifier.Authenticate(cmd.Context(), req, authorization)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !result.Succeeded() {
		fmt.Fprintf(out, "FAILED %s: %s\n", result.Failure.Code, result.Failure.Message)
		return fmt.Errorf("%w: %w", errVerificationFailed, result.Failure)
	}

	identity := result.Identity()
	fmt.Fprintf(out, "OK %s (%s)\n", identity.ClientID, identity.ClientName)

	for _, claim := range identity.Claims {
		fmt.Fprintf(out, "  %s=%s\n", claim.Type, claim.Value)
	}

	return nil
}
