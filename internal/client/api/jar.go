package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync"
	"time"
)

// storedCookie is the on-disk form of a cookie set by the server.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

type jarFile struct {
	URL     string         `json:"url"`
	Cookies []storedCookie `json:"cookies"`
}

// FileJar is an http.CookieJar that remembers the cookies of a single
// server in a JSON file, so a session survives between CLI invocations.
type FileJar struct {
	mu      sync.Mutex
	path    string
	base    *url.URL
	inner   *cookiejar.Jar
	cookies map[string]storedCookie
	dirty   bool
	now     func() time.Time
}

// NewFileJar loads the jar stored at path. Cookies saved for a different
// server, or already expired, are discarded. A missing file yields an
// empty jar.
func NewFileJar(path string, base *url.URL) (*FileJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &FileJar{
		path:    path,
		base:    base,
		inner:   inner,
		cookies: make(map[string]storedCookie),
		now:     time.Now,
	}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *FileJar) load() error {
	raw, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}

	var f jarFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("decode session file: %w", err)
	}
	if f.URL != j.base.String() {
		return nil
	}

	var restored []*http.Cookie
	for _, c := range f.Cookies {
		if !c.Expires.IsZero() && !c.Expires.After(j.now()) {
			continue
		}
		j.cookies[c.Name] = c
		restored = append(restored, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	j.inner.SetCookies(j.base, restored)
	return nil
}

// SetCookies implements http.CookieJar.
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		if c.MaxAge < 0 || c.Value == "" || (!c.Expires.IsZero() && !c.Expires.After(j.now())) {
			delete(j.cookies, c.Name)
			j.dirty = true
			continue
		}
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = j.now().Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.cookies[c.Name] = storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		j.dirty = true
	}
}

// Cookies implements http.CookieJar.
func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// Save writes the jar to disk if it changed since the last save.
func (j *FileJar) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.dirty {
		return nil
	}

	f := jarFile{URL: j.base.String()}
	for _, c := range j.cookies {
		f.Cookies = append(f.Cookies, c)
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(j.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	j.dirty = false
	return nil
}

// Len reports how many cookies are currently held.
func (j *FileJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies)
}
