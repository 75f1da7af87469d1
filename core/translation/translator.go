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

package translation

import (
	"context"
	"errors"
	"net/url"

	"git.bbaa.fun/bbaa/wynn-inference/core/netfetch"
)

type Translator interface {
	Translate(ctx context.Context, text string, language string) (string, error)
}

var ErrEmptyTranslation = errors.New("empty translation")

// HTTPTranslator asks a JSON endpoint of the form
// GET <endpoint>?q=<text>&tl=<language> -> {"translation": "..."}.
type HTTPTranslator struct {
	Fetcher  *netfetch.Fetcher
	Endpoint string
}

func (t *HTTPTranslator) Translate(ctx context.Context, text string, language string) (string, error) {
	u, err := url.Parse(t.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("q", text)
	q.Set("tl", language)
	u.RawQuery = q.Encode()

	var resp struct {
		Translation string `json:"translation"`
	}
	if err := t.Fetcher.FetchJSON(ctx, u.String(), &resp); err != nil {
		return "", err
	}
	if resp.Translation == "" {
		return "", ErrEmptyTranslation
	}
	return resp.Translation, nil
}
