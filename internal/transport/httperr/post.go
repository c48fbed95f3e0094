package httperr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

const maxBodyBytes = 32 << 20

// PostJSON sends in as a JSON body and decodes a 2xx response into out.
// Non-2xx responses and transport failures come back classified.
func PostJSON(ctx context.Context, client *http.Client, url string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return FromTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return FromTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FromStatus(resp.StatusCode, resp.Header, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewError(domain.StageEmbed, domain.KindMalformed, "decode response", err)
	}
	return nil
}
