package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type lookupRequest struct {
	Email []string `json:"email"`
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
		DisplayName   string `json:"displayName"`
		PhotoURL      string `json:"photoUrl"`
	} `json:"users"`
}

// VerifyEmail asks the provider whether an account exists for email.
func (p *Provider) VerifyEmail(ctx context.Context, email string) (*Profile, error) {
	if p.config.LookupURL == "" {
		return nil, fmt.Errorf("%w: account lookup is not configured", ErrUnreachable)
	}
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	body, err := json.Marshal(lookupRequest{Email: []string{email}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.LookupURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.lookupClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: lookup returned %d: %s", ErrUnreachable, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode lookup response: %v", ErrUnreachable, err)
	}
	if len(out.Users) == 0 {
		return nil, ErrNotFound
	}

	u := out.Users[0]
	return &Profile{
		Email:         u.Email,
		Subject:       u.LocalID,
		EmailVerified: u.EmailVerified,
		Name:          u.DisplayName,
		PictureURL:    u.PhotoURL,
	}, nil
}
