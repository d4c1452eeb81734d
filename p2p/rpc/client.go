// Package rpc implements the point-to-point peer request/response surface:
// a client that calls a selected peer's RPC listener (one port below its
// DHT listener, by contract), and the HTTP server every node runs to serve
// those calls.
package rpc

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"math/rand"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"slotbft/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RandomRequestCap is the global response cap for randomRequest,
// independent of the per-request HTTP timeout.
const RandomRequestCap = 4 * time.Second

// Client issues requests to a single peer's /peer/<method> endpoint.
type Client struct {
	Magic   string
	Version string
	HTTP    *http.Client
}

func NewClient(magic, version string, timeout time.Duration) *Client {
	return &Client{
		Magic:   magic,
		Version: version,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Request issues a request to contact's peer RPC listener, which sits on
// contact.Port-1, and decodes the JSON response body into result.
func (c *Client) Request(ctx context.Context, method string, params interface{}, contact types.Node, result interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "encoding rpc params")
	}

	url := fmt.Sprintf("http://%s:%d/peer/%s", contact.Host, contact.Port-1, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(ErrTransport, err.Error())
	}
	req.Header.Set("magic", c.Magic)
	req.Header.Set("version", c.Version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ErrTimeout, err.Error())
		}
		return errors.Wrap(ErrTransport, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(ErrTransport, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrHttpNon200, "status %d: %s", resp.StatusCode, string(respBody))
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return errors.Wrap(ErrTransport, err.Error())
	}
	return nil
}

// P2PHelper calls contact's self-IP discovery endpoint and returns the IP
// it reports observing the caller connect from.
func (c *Client) P2PHelper(ctx context.Context, contact types.Node) (string, error) {
	url := fmt.Sprintf("http://%s:%d/api/p2phelper", contact.Host, contact.Port-1)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", errors.Wrap(ErrTransport, err.Error())
	}
	req.Header.Set("magic", c.Magic)
	req.Header.Set("version", c.Version)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(ErrTimeout, err.Error())
		}
		return "", errors.Wrap(ErrTransport, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(ErrTransport, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(ErrHttpNon200, "status %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", errors.Wrap(ErrTransport, err.Error())
	}
	return out.IP, nil
}

// RandomRequest picks one healthy node at random from healthy and issues
// method against it, enforcing a 4-second cap regardless of the client's
// own per-request HTTP timeout.
func (c *Client) RandomRequest(ctx context.Context, method string, params interface{}, healthy []types.Node, result interface{}) error {
	if len(healthy) == 0 {
		return errors.Wrap(ErrTransport, "no healthy peers available")
	}
	target := healthy[rand.Intn(len(healthy))]

	capped, cancel := context.WithTimeout(ctx, RandomRequestCap)
	defer cancel()

	return c.Request(capped, method, params, target, result)
}
