// Package api is the command-line client of the authentication API. It keeps
// the session cookie in a local file between invocations.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	pathRegister = "/api/auth/register"
	pathLogin    = "/api/auth/login"
	pathStatus   = "/api/auth/status"
	pathLogout   = "/api/auth/logout"
	pathSetup    = "/api/auth/2fa/setup"
	pathVerify   = "/api/auth/2fa/verify"
	pathReset    = "/api/auth/2fa/reset"

	pngDataURLPrefix = "data:image/png;base64,"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Kind       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

// User mirrors the public user fields returned by login and status.
type User struct {
	Message    string `json:"message"`
	Username   string `json:"username"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

// MFASetup is the response of a 2FA setup.
type MFASetup struct {
	Message   string `json:"message"`
	QRCodeURL string `json:"qrCodeUrl"`
	Secret    string `json:"secret"`
}

// QRCodePNG decodes the PNG image carried by the data URL.
func (s *MFASetup) QRCodePNG() ([]byte, error) {
	if !strings.HasPrefix(s.QRCodeURL, pngDataURLPrefix) {
		return nil, errors.New("qr code is not a PNG data URL")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(s.QRCodeURL, pngDataURLPrefix))
}

type message struct {
	Message string `json:"message"`
}

// Client talks to the API on behalf of one user.
type Client struct {
	baseURL string
	http    *http.Client
	jar     *FileJar
}

// Options configure a Client.
type Options struct {
	// BaseURL is the server root, e.g. https://localhost:7002.
	BaseURL string
	// CAPath optionally names a PEM CA that signs the server certificate.
	CAPath string
	// SessionFile is where the session cookie is kept.
	SessionFile string
	Timeout     time.Duration
}

// New builds a client from opts, restoring a saved session if one exists.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", base.Scheme)
	}

	transport, err := newTransport(opts.CAPath)
	if err != nil {
		return nil, err
	}
	jar, err := NewFileJar(opts.SessionFile, base)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base.String(),
		http:    &http.Client{Transport: transport, Jar: jar, Timeout: timeout},
		jar:     jar,
	}, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var out message
	err := c.do(ctx, http.MethodPost, pathRegister, map[string]string{"username": username, "password": password}, &out)
	return out.Message, err
}

// Login opens a session and stores its cookie.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, pathLogin, map[string]string{"username": username, "password": password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status reports the user bound to the stored session.
func (c *Client) Status(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, pathStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the stored session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil)
}

// SetupMFA starts 2FA enrollment.
func (c *Client) SetupMFA(ctx context.Context) (*MFASetup, error) {
	var out MFASetup
	if err := c.do(ctx, http.MethodPost, pathSetup, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA submits a TOTP code to complete enrollment.
func (c *Client) VerifyMFA(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, pathVerify, map[string]string{"token": token}, nil)
}

// ResetMFA disables 2FA and forgets the secret.
func (c *Client) ResetMFA(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathReset, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := c.jar.Save(); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Kind = ""
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// LoggedIn reports whether a session cookie is stored locally. The server
// may still consider it expired.
func (c *Client) LoggedIn() bool {
	return c.jar.Len() > 0
}
