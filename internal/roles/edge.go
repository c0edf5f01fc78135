package roles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/verdantrx/verdantrx/internal/access"
)

// Edge function endpoints, relative to the configured base URL.
const (
	edgeAdminPath        = "/check-admin-status"
	edgePharmacistPath   = "/check-pharmacist-role"
	edgeVerificationPath = "/pharmacist-verification-status"
)

// EdgeClient queries the managed backend's edge functions. It is the fast
// primary probe; the direct-table repository is the fallback.
type EdgeClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewEdgeClient constructs an EdgeClient. client may be nil to use a default
// with a conservative per-call timeout.
func NewEdgeClient(baseURL, token string, client *http.Client) *EdgeClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &EdgeClient{baseURL: baseURL, token: token, client: client}
}

type edgeRequest struct {
	UserID string `json:"userId"`
}

type adminResponse struct {
	IsAdmin *bool `json:"isAdmin"`
}

type pharmacistResponse struct {
	IsPharmacist *bool `json:"isPharmacist"`
}

type verificationResponse struct {
	Status *string `json:"status"`
}

// CheckAdmin asks the edge function whether userID is an administrator.
func (c *EdgeClient) CheckAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var payload adminResponse
	if err := c.post(ctx, edgeAdminPath, userID, &payload); err != nil {
		return false, err
	}
	if payload.IsAdmin == nil {
		return false, fmt.Errorf("roles: edge admin response missing isAdmin: %w", access.ErrMalformedResponse)
	}
	return *payload.IsAdmin, nil
}

// CheckPharmacist asks the edge function whether userID holds the pharmacist role.
func (c *EdgeClient) CheckPharmacist(ctx context.Context, userID uuid.UUID) (bool, error) {
	var payload pharmacistResponse
	if err := c.post(ctx, edgePharmacistPath, userID, &payload); err != nil {
		return false, err
	}
	if payload.IsPharmacist == nil {
		return false, fmt.Errorf("roles: edge pharmacist response missing isPharmacist: %w", access.ErrMalformedResponse)
	}
	return *payload.IsPharmacist, nil
}

// FetchVerification returns the pharmacist verification status for userID.
// A JSON null status means no verification record exists.
func (c *EdgeClient) FetchVerification(ctx context.Context, userID uuid.UUID) (access.VerificationStatus, error) {
	var payload verificationResponse
	if err := c.post(ctx, edgeVerificationPath, userID, &payload); err != nil {
		return access.VerificationNone, err
	}
	if payload.Status == nil {
		return access.VerificationNone, nil
	}
	switch status := access.VerificationStatus(*payload.Status); status {
	case access.VerificationPending, access.VerificationApproved, access.VerificationRejected:
		return status, nil
	default:
		return access.VerificationNone, fmt.Errorf("roles: edge verification status %q: %w", *payload.Status, access.ErrMalformedResponse)
	}
}

func (c *EdgeClient) post(ctx context.Context, path string, userID uuid.UUID, dest any) error {
	body, err := json.Marshal(edgeRequest{UserID: userID.String()})
	if err != nil {
		return fmt.Errorf("roles: encode edge request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("roles: build edge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("roles: edge call %s: %w: %w", path, access.ErrBackendUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("roles: edge %s returned %d: %w", path, res.StatusCode, access.ErrBackendUnavailable)
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("roles: edge %s returned %d: %w", path, res.StatusCode, access.ErrBackendError)
	}

	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return fmt.Errorf("roles: decode edge %s response: %w", path, access.ErrMalformedResponse)
	}
	return nil
}
