// Copyright 2024 bbaa
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package netfetch performs the outbound calls to the companion web services.
//
// Asynchronous calls hand their result back through a poster, normally the
// main-thread task queue, so callbacks never run on the network goroutine.
// Nothing here knows whether a response is still wanted when it arrives; the
// callback has to check that itself.
package netfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxBodySize = 16 << 20

var ErrTooLarge = errors.New("response too large")

type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	post      func(func()) bool
	UserAgent string
}

// NewFetcher allows a burst of 4 requests and 2 per second after that.
func NewFetcher(post func(func()) bool) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 4),
		post:      post,
		UserAgent: "wynn-inference",
	}
}

func (f *Fetcher) WithClient(client *http.Client) *Fetcher {
	f.client = client
	return f
}

// Fetch returns the body of source. Sources without a scheme are local files.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if !strings.Contains(source, "://") {
		return os.ReadFile(source)
	}
	if strings.HasPrefix(source, "file://") {
		return os.ReadFile(strings.TrimPrefix(source, "file://"))
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", source, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("fetch %s: %w", source, ErrTooLarge)
	}
	return data, nil
}

func (f *Fetcher) FetchJSON(ctx context.Context, source string, v any) error {
	data, err := f.Fetch(ctx, source)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}
	return nil
}

// FetchAsync fetches in the background and posts done with the result.
func (f *Fetcher) FetchAsync(ctx context.Context, source string, done func(data []byte, err error)) {
	go func() {
		data, err := f.Fetch(ctx, source)
		f.deliver(func() { done(data, err) })
	}()
}

// Go runs work in the background and posts done with its error.
func (f *Fetcher) Go(work func() error, done func(err error)) {
	f.GoOrElse(work, done, nil)
}

// GoOrElse is Go with a fallback: when the main thread queue refuses done,
// dropped runs on the worker goroutine instead.
func (f *Fetcher) GoOrElse(work func() error, done func(err error), dropped func(err error)) {
	go func() {
		err := work()
		if !f.deliver(func() { done(err) }) && dropped != nil {
			dropped(err)
		}
	}()
}

// deliver drops the result if the queue is full, same as a stale response.
func (f *Fetcher) deliver(task func()) bool {
	if f.post == nil {
		return false
	}
	return f.post(task)
}
