package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// ReaderClient talks to /v1/rfid/tap the way a door reader does, using the
// protobuf encoding.
type ReaderClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewReaderClient(baseURL string) *ReaderClient {
	return &ReaderClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *ReaderClient) Tap(ctx context.Context, uid string) (types.AccessLogEntry, error) {
	body := EncodeTapRequest(types.TapRequest{UID: uid})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/rfid/tap", bytes.NewReader(body))
	if err != nil {
		return types.AccessLogEntry{}, err
	}
	req.Header.Set("Content-Type", "application/x-protobuf")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return types.AccessLogEntry{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBody))
	if err != nil {
		return types.AccessLogEntry{}, err
	}
	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error.Code != "" {
			return types.AccessLogEntry{}, fmt.Errorf("tap: %s: %s", eb.Error.Code, eb.Error.Message)
		}
		return types.AccessLogEntry{}, fmt.Errorf("tap: unexpected status %d", resp.StatusCode)
	}
	return DecodeTapResponse(data)
}
