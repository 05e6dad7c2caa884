// Package httpclient builds the HTTP clients the in-process tools use.
// Lab targets sit on private addresses behind self-signed certificates,
// so the presets here lean permissive on TLS and strict on time.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

type Config struct {
	Timeout         time.Duration
	FollowRedirects bool

	// MaxRedirects caps a redirect chain when FollowRedirects is on.
	MaxRedirects int

	// InsecureTLS skips certificate verification. Lab gear rarely has
	// a cert a system trust store accepts.
	InsecureTLS bool
}

// DefaultConfig verifies TLS and follows a bounded redirect chain.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		FollowRedirects: true,
		MaxRedirects:    10,
	}
}

// SpiderConfig fits page crawling: short per-request timeout, a tight
// redirect cap and tolerance for self-signed certificates.
func SpiderConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		FollowRedirects: true,
		MaxRedirects:    5,
		InsecureTLS:     true,
	}
}

// ProbeConfig fits service checks that only care whether something
// answers: no redirects, a few seconds, any certificate.
func ProbeConfig() Config {
	return Config{
		Timeout:     5 * time.Second,
		InsecureTLS: true,
	}
}

// New builds a client from the config. Connection pooling and the
// handshake timeouts are fixed; they suit every caller here.
func New(cfg Config) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if cfg.MaxRedirects > 0 {
		max := cfg.MaxRedirects
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= max {
				return fmt.Errorf("stopped after %d redirects", max)
			}
			return nil
		}
	}

	return client
}
