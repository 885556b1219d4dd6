// Package proxy builds HTTP clients that route upstream API traffic through
// an optional SOCKS5 egress.
package proxy

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

const upstreamTimeout = 120 * time.Second

// HTTPClient returns the client for the OpenAI dialogue and transcription
// calls. The ElevenLabs SDK builds its own client and cannot take this one.
// With an empty socksAddr it is a plain client with the upstream timeout
// applied.
func HTTPClient(socksAddr string) (*http.Client, error) {
	if socksAddr == "" {
		return &http.Client{Timeout: upstreamTimeout}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   upstreamTimeout,
	}, nil
}
