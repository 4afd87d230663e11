// Package nodeapi is a client for the write API of borderless nodes.
//
// Transport-level failures and server errors are retried with exponential
// backoff, a bounded number of times.  Rejections (any 4xx answer) are
// terminal and never retried: a node that said no will keep saying no.
package nodeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/linkstore"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
	"github.com/borderless-technologies/borderless-cli/pkg/tracing"
)

const (
	headerRequestId = "X-Request-Id"
	headerPackageId = "X-Package-Id"

	defaultMaxRetries      = 4
	defaultInitialInterval = 250 * time.Millisecond
	defaultRequestTimeout  = 30 * time.Second
)

// NodeInfo is the answer of a node's info endpoint.
type NodeInfo struct {
	NodeId  string `json:"node_id"`
	Version string `json:"version"`
	Network string `json:"network,omitempty"`
}

// PeerCert describes one participant of the node's network.
type PeerCert struct {
	NodeId    string `json:"node_id"`
	PublicKey string `json:"public_key"`
	Url       string `json:"url"`
}

// Client talks to a single node.
type Client struct {
	base       *url.URL
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
	interval   time.Duration
}

// NewClient creates a client for the node a link points at.
//
// Errors:
//
//    - borderless-error-invalid-argument -- when the link address is not a valid URL
func NewClient(link linkstore.Link) (*Client, error) {
	if err := link.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(link.Addr)
	if err != nil {
		// Validate has already parsed this; unreachable in practice.
		return nil, bpapi.ErrorInternal("parsing link address", err)
	}
	return &Client{
		base:       base,
		apiKey:     link.APIKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		maxRetries: defaultMaxRetries,
		interval:   defaultInitialInterval,
	}, nil
}

// request describes one API call.  The body is held as bytes, not a stream,
// so retries can resend it.
type request struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
	// acceptStatus lists non-2xx statuses that are part of the protocol
	// and must be reported to the caller rather than treated as rejection.
	acceptStatus []int
}

// do performs a request with the retry policy applied.
//
// Errors:
//
//    - borderless-error-network -- when the node is unreachable or keeps answering with server errors
//    - borderless-error-remote-rejected -- when the node rejects the request
func (c *Client) do(ctx context.Context, req request) (respBody []byte, status int, err error) {
	u := *c.base
	u.Path = req.path
	if req.query != nil {
		u.RawQuery = req.query.Encode()
	}
	endpoint := u.String()
	log := logging.Ctx(ctx)

	ctx, span := tracing.Start(ctx, req.method+" "+req.path)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrKeyBorderlessEndpoint, endpoint))

	attempts := 0
	operation := func() error {
		attempts++
		httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, bytes.NewReader(req.body))
		if err != nil {
			return backoff.Permanent(bpapi.ErrorInternal("building request", err))
		}
		for k, vs := range req.header {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
		httpReq.Header.Set(headerRequestId, uuid.NewString())
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			log.Debug("net", "request to %s failed: %s", endpoint, err)
			return bpapi.ErrorNetwork(fmt.Sprintf("%s %s", req.method, endpoint), err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return bpapi.ErrorNetwork(fmt.Sprintf("reading response from %s", endpoint), err)
		}

		status = resp.StatusCode
		respBody = body
		switch {
		case status >= 200 && status < 300:
			return nil
		case statusIn(status, req.acceptStatus):
			return nil
		case status >= 500:
			log.Debug("net", "%s answered %d, retrying", endpoint, status)
			return bpapi.ErrorNetwork(fmt.Sprintf("%s %s", req.method, endpoint),
				fmt.Errorf("server error: status %d", status))
		default:
			return backoff.Permanent(bpapi.ErrorRemoteRejected(endpoint, status, string(body)))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.interval
	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	span.SetAttributes(
		attribute.Int(tracing.AttrKeyBorderlessRetryAttempts, attempts),
		attribute.Int(tracing.AttrKeyBorderlessHttpStatus, status),
	)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, status, err
	}
	return respBody, status, nil
}

func statusIn(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

// Info fetches the node's identity document.
//
// Errors:
//
//    - borderless-error-network -- when the node is unreachable
//    - borderless-error-remote-rejected -- when the node rejects the request
//    - borderless-error-serialization -- when the answer cannot be parsed
func (c *Client) Info(ctx context.Context) (NodeInfo, error) {
	body, _, err := c.do(ctx, request{method: http.MethodGet, path: "/v0/node/info"})
	if err != nil {
		return NodeInfo{}, err
	}
	var info NodeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return NodeInfo{}, bpapi.ErrorSerialization("parsing node info", err)
	}
	return info, nil
}

// NetworkPeers fetches the certificates of the node's network peers.
//
// Errors:
//
//    - borderless-error-network -- when the node is unreachable
//    - borderless-error-remote-rejected -- when the node rejects the request
//    - borderless-error-serialization -- when the answer cannot be parsed
func (c *Client) NetworkPeers(ctx context.Context) ([]PeerCert, error) {
	body, _, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/v0/node/cert",
		query:  url.Values{"node_type": []string{"contract"}},
	})
	if err != nil {
		return nil, err
	}
	var peers []PeerCert
	if err := json.Unmarshal(body, &peers); err != nil {
		return nil, bpapi.ErrorSerialization("parsing peer certificates", err)
	}
	return peers, nil
}

// WriteIntroduction submits an introduction document to the node.
//
// Errors:
//
//    - borderless-error-network -- when the node is unreachable
//    - borderless-error-remote-rejected -- when the node rejects the introduction
func (c *Client) WriteIntroduction(ctx context.Context, introduction []byte) error {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	_, _, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/v0/write/introduction",
		header: hdr,
		body:   introduction,
	})
	return err
}

// WritePackage uploads a package archive to the node.
//
// Errors:
//
//    - borderless-error-network -- when the node is unreachable
//    - borderless-error-remote-rejected -- when the node rejects the package
func (c *Client) WritePackage(ctx context.Context, id bpapi.PackageID, archive []byte) error {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/octet-stream")
	hdr.Set(headerPackageId, id.String())
	_, _, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/v0/write/package",
		header: hdr,
		body:   archive,
	})
	return err
}

// HasPackage reports whether the node already holds a package.
//
// Errors:
//
//    - borderless-error-network -- when the node is unreachable
//    - borderless-error-remote-rejected -- when the node rejects the request
func (c *Client) HasPackage(ctx context.Context, id bpapi.PackageID) (bool, error) {
	_, status, err := c.do(ctx, request{
		method:       http.MethodHead,
		path:         "/v0/node/package",
		query:        url.Values{"id": []string{id.String()}},
		acceptStatus: []int{http.StatusNotFound},
	})
	if err != nil {
		return false, err
	}
	return status != http.StatusNotFound, nil
}
