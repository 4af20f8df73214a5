package aidriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPOracle calls an external AI decision service over HTTP, POSTing the
// PublicView as JSON and decoding a Decision from the response body.
type HTTPOracle struct {
	url    string
	client *http.Client
}

// NewHTTPOracle constructs an Oracle backed by AI_ORACLE_URL. The client's
// own timeout is generous; the real deadline enforcement is Driver.decide's
// ctx (§4.6 step 4) — this timeout is a backstop bounding the whole request.
func NewHTTPOracle(url string) *HTTPOracle {
	return &HTTPOracle{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

func (o *HTTPOracle) Decide(ctx context.Context, view PublicView) (Decision, error) {
	body, err := json.Marshal(view)
	if err != nil {
		return Decision{}, fmt.Errorf("aidriver: encoding oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("aidriver: building oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("aidriver: oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Decision{}, fmt.Errorf("aidriver: oracle returned status %d", resp.StatusCode)
	}

	var decision Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return Decision{}, fmt.Errorf("aidriver: decoding oracle response: %w", err)
	}
	return decision, nil
}

// NopOracle always fails, driving every decision through the deterministic
// CHECK/CALL/FOLD fallback (§4.6 step 4) — used when no AI_ORACLE_URL is
// configured.
type NopOracle struct{}

func (NopOracle) Decide(ctx context.Context, view PublicView) (Decision, error) {
	return Decision{}, fmt.Errorf("aidriver: no oracle configured")
}
