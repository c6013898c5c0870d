// Package httpsig implements HTTP request signatures in the draft-cavage
// style, including the unified hs2019 algorithm.
//
// A signature covers an ordered list of headers. The signing string is
// composed from those headers and the pseudo-headers (request-target),
// (created) and (expires), then signed with the client's algorithm and
// sent in the Authorization header:
//
//	Authorization: SignedHttpRequest keyId="app1",algorithm="hs2019",
//	    created=1582539614,expires=1582539914,
//	    headers="(request-target) (created) (expires) digest",
//	    signature="..."
//
// # Supported Algorithms
//
//   - hmac with sha256, sha384 or sha512
//   - rsa (PKCS#1 v1.5, keys of at least 2048 bits)
//   - ecdsa (ASN.1 encoded signatures)
//   - custom families, for test doubles and in-house schemes
//
// # Signing Requests
//
// Use SignRequest to add the Authorization header, and the Date and Digest
// headers when they are covered but missing:
//
//	alg, err := httpsig.NewHMACAlgorithm(httpsig.HashSHA256, secret)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer alg.Dispose()
//
//	err = httpsig.SignRequest(req, httpsig.SignConfig{
//	    KeyID:         "app1",
//	    Algorithm:     alg,
//	    GenerateNonce: true,
//	})
//
// NewTransport wraps an http.RoundTripper and signs every outgoing request.
//
// # Verifying Requests
//
// A Verifier resolves the client named by keyId from a ClientStore and runs
// the verification tasks in order, stopping at the first failure. Rejections
// are reported as a *Failure carrying a FailureCode; a non-nil error means a
// store or other collaborator failed.
//
//	verifier, err := httpsig.NewVerifier(httpsig.VerifierConfig{
//	    Clients: clients,
//	    Nonces:  nonces,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req, err := httpsig.NewRequest(r)
//	result, err := verifier.Authenticate(ctx, req, r.Header.Get("Authorization"))
//
// # Server Middleware
//
// Middleware verifies incoming requests, answers rejected ones with a 401
// and a WWW-Authenticate challenge, and stores the Identity of accepted ones
// in the request context:
//
//	mw, err := httpsig.Middleware(httpsig.MiddlewareConfig{
//	    Verifier: verifier,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handler = mw(handler)
package httpsig
