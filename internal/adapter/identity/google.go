package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

type tokenInfo struct {
	Subject       string `json:"sub"`
	Audience      string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Expiry        string `json:"exp"`
	Error         string `json:"error_description"`
}

// GoogleVerifier checks Google ID tokens against the tokeninfo endpoint.
type GoogleVerifier struct {
	endpoint string
	clientID string
	client   *http.Client
	now      func() time.Time
}

// NewGoogleVerifier accepts tokens minted for clientID. An empty endpoint
// means DefaultTokenInfoURL; an empty clientID skips the audience check.
func NewGoogleVerifier(endpoint, clientID string, client *http.Client) *GoogleVerifier {
	if endpoint == "" {
		endpoint = DefaultTokenInfoURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleVerifier{endpoint: endpoint, clientID: clientID, client: client, now: time.Now}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*domain.FederatedProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	var info tokenInfo
	decodeErr := json.NewDecoder(resp.Body).Decode(&info)
	if resp.StatusCode != http.StatusOK {
		reason := info.Error
		if reason == "" {
			reason = resp.Status
		}
		return nil, &domain.AuthError{Reason: "google rejected the token: " + reason}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode tokeninfo: %w", decodeErr)
	}

	if v.clientID != "" && info.Audience != v.clientID {
		return nil, &domain.AuthError{Reason: "token was issued for another client"}
	}
	if exp, err := strconv.ParseInt(info.Expiry, 10, 64); err == nil && time.Unix(exp, 0).Before(v.now()) {
		return nil, &domain.AuthError{Reason: "token has expired"}
	}

	return &domain.FederatedProfile{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified == "true",
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}
