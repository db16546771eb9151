package quandify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/quandify2mqtt/quandify2mqtt/internal/common"
	"github.com/quandify2mqtt/quandify2mqtt/internal/log"
)

// AuthError reports that the vendor rejected the supplied credentials or
// token.
type AuthError struct {
	Status int
	Reason string
}

func (e AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("quandify rejected credentials (http %d: %s)", e.Status, e.Reason)
	}
	return fmt.Sprintf("quandify rejected credentials (http %d)", e.Status)
}

// StatusError reports an unexpected HTTP status from the vendor API.
type StatusError struct {
	Status int
	Body   string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("quandify api http %d: %s", e.Status, e.Body)
}

// IsAuthError reports whether err is a credential rejection rather than a
// connectivity or server problem.
func IsAuthError(err error) bool {
	var authErr AuthError
	return errors.As(err, &authErr)
}

// Client talks to the Quandify partner API.
type Client struct {
	cfg     Config
	http    *http.Client
	session *session
}

func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:  cfg,
		http: common.HTTPClient(cfg.Timeout),
	}
	c.session = newSession(c.authenticate)
	return c, nil
}

// Validate performs a login round-trip with the configured credentials. A
// rejection surfaces as AuthError; anything else means the service could not
// be reached.
func (c *Client) Validate(ctx context.Context) error {
	_, err := c.session.bearer(ctx)
	return err
}

// DailyConsumption returns the total volume consumed between local midnight
// and now.
func (c *Client) DailyConsumption(ctx context.Context) (Reading, error) {
	from, to := dayWindow(time.Now())
	return c.Consumption(ctx, from, to, GranularityDay)
}

// HourlyConsumption returns the total volume consumed over the last hour.
func (c *Client) HourlyConsumption(ctx context.Context) (Reading, error) {
	from, to := hourWindow(time.Now())
	return c.Consumption(ctx, from, to, GranularityHour)
}

// Consumption fetches the aggregated volume for an arbitrary window. An
// expired or revoked token triggers one transparent re-login before the
// error is returned to the caller.
func (c *Client) Consumption(ctx context.Context, from, to time.Time, granularity Granularity) (Reading, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.session.bearer(ctx)
		if err != nil {
			return Reading{}, err
		}

		reading, err := c.fetchConsumption(ctx, token, from, to, granularity)
		if err == nil {
			return reading, nil
		}
		if !IsAuthError(err) || attempt > 0 {
			return Reading{}, err
		}

		log.Ctx(ctx).DebugContext(ctx, "token rejected, re-authenticating",
			"organization_id", c.cfg.OrganizationID)
		c.session.invalidate()
	}
	return Reading{}, fmt.Errorf("quandify consumption retries exhausted")
}

// authenticate exchanges the account credentials for a fresh id token. The
// vendor issues day-long tokens; the cached expiry is set an hour short.
func (c *Client) authenticate(ctx context.Context) (*oauth2.Token, error) {
	payload, err := json.Marshal(map[string]string{
		"account_id": c.cfg.AccountID,
		"password":   c.cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("encode login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var body struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if body.IDToken == "" {
		// Some credential rejections come back as a 200 with no token in
		// the body rather than a 401.
		return nil, AuthError{Status: resp.StatusCode, Reason: "login response missing id_token"}
	}

	return &oauth2.Token{
		AccessToken: body.IDToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(tokenLifetime),
	}, nil
}

func (c *Client) fetchConsumption(ctx context.Context, token string, from, to time.Time, granularity Granularity) (Reading, error) {
	endpoint := fmt.Sprintf("%s/organization/%s/nodes/detailed-consumption", c.cfg.APIURL, c.cfg.OrganizationID)
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return Reading{}, fmt.Errorf("parse url: %w", err)
	}
	query := reqURL.Query()
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))
	query.Set("truncate", string(granularity))
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Reading{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Reading{}, AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return Reading{}, StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var body struct {
		Aggregate *struct {
			Total *struct {
				// A window with no measurements comes back as null.
				TotalVolume *float64 `json:"totalVolume"`
			} `json:"total"`
		} `json:"aggregate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Reading{}, fmt.Errorf("decode response: %w", err)
	}
	if body.Aggregate == nil || body.Aggregate.Total == nil {
		return Reading{}, fmt.Errorf("consumption response missing aggregate total")
	}

	var volume float64
	if body.Aggregate.Total.TotalVolume != nil {
		volume = *body.Aggregate.Total.TotalVolume
	}

	return Reading{
		VolumeLiters: volume,
		From:         from,
		To:           to,
		Granularity:  granularity,
	}, nil
}
