package httpsig

// Claim types attached to every verified identity.
const (
	ClaimClientID   = "appid"
	ClaimClientName = "name"
)

// Result is the outcome of Verifier.Authenticate.
type Result struct {
	// Client is the matched client. It is set on success and on failures
	// that happen after the client was resolved.
	Client *Client

	// Signature is the parsed signature, if parsing succeeded.
	Signature *Signature

	// Failure is nil on success.
	Failure *Failure
}

// Succeeded reports whether the request was authenticated.
func (r *Result) Succeeded() bool {
	return r != nil && r.Failure == nil && r.Client != nil
}

// Identity returns the authenticated identity, or nil on failure.
func (r *Result) Identity() *Identity {
	if !r.Succeeded() {
		return nil
	}

	claims := make([]Claim, 0, len(r.Client.Claims)+2)
	claims = append(claims,
		Claim{Type: ClaimClientID, Value: r.Client.ID},
		Claim{Type: ClaimClientName, Value: r.Client.Name},
	)
	claims = append(claims, r.Client.Claims...)

	return &Identity{
		ClientID:   r.Client.ID,
		ClientName: r.Client.Name,
		Claims:     claims,
	}
}

// Identity is the authenticated party of a verified request.
type Identity struct {
	ClientID   string
	ClientName string
	Claims     []Claim
}

// Claim returns the value of the first claim of the given type.
func (i *Identity) Claim(claimType string) (string, bool) {
	for _, c := range i.Claims {
		if c.Type == claimType {
			return c.Value, true
		}
	}

	return "", false
}
