package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrBadStatus = errors.New("unexpected catalog status")

// RemoteBackend talks to a real product API over HTTP. It is built on the
// request pipeline's client, so bearer attachment, busy accounting and
// failure translation happen underneath it.
type RemoteBackend struct {
	baseURL string
	client  *http.Client
}

func NewRemoteBackend(baseURL string, client *http.Client) *RemoteBackend {
	baseURL = strings.TrimRight(baseURL, "/")
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteBackend{baseURL: baseURL, client: client}
}

func (b *RemoteBackend) Ping(ctx context.Context) error {
	resp, err := b.do(ctx, http.MethodGet, "/products", nil)
	if err != nil {
		return err
	}
	return drainClose(resp)
}

func (b *RemoteBackend) List(ctx context.Context) ([]Product, error) {
	resp, err := b.do(ctx, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(resp)
	}

	var out []Product
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *RemoteBackend) Get(ctx context.Context, id int64) (Product, error) {
	resp, err := b.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil)
	if err != nil {
		return Product{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Product{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	default:
		return Product{}, statusErr(resp)
	}

	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (b *RemoteBackend) Create(ctx context.Context, p Product) error {
	resp, err := b.do(ctx, http.MethodPost, "/products", p)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		defer resp.Body.Close()
		return statusErr(resp)
	}
	return drainClose(resp)
}

func (b *RemoteBackend) Update(ctx context.Context, p Product) error {
	resp, err := b.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d", p.ID), p)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: id=%d", ErrNotFound, p.ID)
	default:
		return statusErr(resp)
	}
}

func (b *RemoteBackend) Delete(ctx context.Context, id int64) error {
	resp, err := b.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: id=%d", ErrNotFound, id)
	default:
		return statusErr(resp)
	}
}

func (b *RemoteBackend) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return b.client.Do(req)
}

func statusErr(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
}

func drainClose(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
