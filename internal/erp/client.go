// Package erp implements the client for the ERP label printing service.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/domain"
)

// PrintRequest carries a label print job. The ERP keys are capitalized in
// its contract.
type PrintRequest struct {
	InvoiceNum     string `json:"InvoiceNum,omitempty"`
	OrderRef       string `json:"OrderRef"`
	User           string `json:"User,omitempty"`
	ForceNewLabel  bool   `json:"ForceNewLabel"`
	StationID      string `json:"StationID"`
	Courier        string `json:"Courier,omitempty"`
	CustomsDocType string `json:"CustomsDocType,omitempty"`
	Staging        bool   `json:"Staging,omitempty"`
	AdminMode      bool   `json:"AdminMode,omitempty"`
}

// PrintResult is the ERP reply. Error is set when the job was rejected.
type PrintResult struct {
	Error string `json:"error,omitempty"`
}

// Client talks to the ERP print service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an ERP client. baseURL must not end with a slash.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PrintLabel submits an escalation label print job.
func (c *Client) PrintLabel(ctx context.Context, req *PrintRequest) (*PrintResult, error) {
	return c.post(ctx, "print_label", "/PrintLabel", req)
}

// PrintMiscLabel prints a miscellaneous label. The ERP only consumes the
// order reference and station for this job type.
func (c *Client) PrintMiscLabel(ctx context.Context, req *PrintRequest) (*PrintResult, error) {
	body := map[string]string{
		"OrderRef":  req.OrderRef,
		"StationID": req.StationID,
	}
	return c.post(ctx, "print_misc_label", "/PrintMiscLabel", body)
}

func (c *Client) post(ctx context.Context, op, path string, body any) (*PrintResult, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewBackendError(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, domain.NewBackendError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("op", op).Msg("erp request failed")
		return nil, domain.NewBackendError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewStatusError(op, resp.StatusCode)
	}

	var result PrintResult
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&result); err != nil {
		return nil, domain.ErrInvalidResponse
	}
	return &result, nil
}
