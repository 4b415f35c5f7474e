// Package worldcat implements the WorldCat Metadata API client: control
// number lookup, bibliographic search, and institution holdings. All calls
// carry a bearer credential maintained by TokenSource and go through the
// shared quota-aware transport. Search and holdings operations are
// per-item; the Metadata API does not batch them.
package worldcat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/catalogops/oclcrecon/internal/transport"
	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/logging"
	"github.com/catalogops/oclcrecon/pkg/oclc"
)

// ServiceName identifies this service in errors and logs.
const ServiceName = "worldcat"

// Default API endpoints.
const (
	DefaultAPIURL       = "https://worldcat.org"
	DefaultSearchAPIURL = "https://americas.discovery.api.oclc.org/worldcat/search/v2"
)

// Client calls the WorldCat Metadata API.
type Client struct {
	transport   *transport.Client
	apiURL      string
	searchURL   string
	institution string
	principalID string
	transact    bool
	logger      *zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIURL overrides the Metadata API base URL.
func WithAPIURL(u string) ClientOption {
	return func(c *Client) { c.apiURL = u }
}

// WithSearchAPIURL overrides the search API base URL.
func WithSearchAPIURL(u string) ClientOption {
	return func(c *Client) { c.searchURL = u }
}

// WithTransactionIDs enables a per-request transaction ID query parameter,
// optionally suffixed with the institution's principal ID, for request
// tracing on the OCLC side.
func WithTransactionIDs(principalID string) ClientOption {
	return func(c *Client) {
		c.transact = true
		c.principalID = principalID
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a WorldCat client. institution is the OCLC institution
// symbol whose holdings are being reconciled.
func NewClient(t *transport.Client, institution string, opts ...ClientOption) *Client {
	c := &Client{
		transport:   t,
		apiURL:      DefaultAPIURL,
		searchURL:   DefaultSearchAPIURL,
		institution: institution,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ControlNumberResult reports whether a requested OCLC number is current.
type ControlNumberResult struct {
	Requested oclc.Number
	Current   oclc.Number
	Found     bool
	// Merged is true when the requested number has been merged into
	// another record, i.e. Current is the number to adopt.
	Merged bool
}

// controlNumberEntry mirrors one element of the checkcontrolnumbers
// response's "entry" array.
type controlNumberEntry struct {
	RequestedOclcNumber string `json:"requestedOclcNumber"`
	CurrentOclcNumber   string `json:"currentOclcNumber"`
	Found               bool   `json:"found"`
	Merged              bool   `json:"merged"`
}

type controlNumberResponse struct {
	Entries []controlNumberEntry `json:"entry"`
}

// CurrentControlNumber resolves the current OCLC number for the given one.
func (c *Client) CurrentControlNumber(ctx context.Context, n oclc.Number) (ControlNumberResult, error) {
	if !n.Valid {
		return ControlNumberResult{}, errors.NewValidationError("OCLC number", n.Raw, n.Reason)
	}

	endpoint := c.withTransaction(fmt.Sprintf("%s/bib/checkcontrolnumbers?oclcNumbers=%s", c.apiURL, url.QueryEscape(n.Digits)))
	payload, err := c.transport.Get(ctx, endpoint, nil)
	if err != nil {
		return ControlNumberResult{}, err
	}

	var resp controlNumberResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return ControlNumberResult{}, errors.WrapParse(ServiceName, "json", err)
	}
	if len(resp.Entries) == 0 {
		return ControlNumberResult{}, &errors.ParseError{
			Service: ServiceName,
			Format:  "json",
			Message: "checkcontrolnumbers response contained no entries",
		}
	}

	entry := resp.Entries[0]
	return ControlNumberResult{
		Requested: oclc.Parse(entry.RequestedOclcNumber),
		Current:   oclc.Parse(entry.CurrentOclcNumber),
		Found:     entry.Found,
		Merged:    entry.Merged,
	}, nil
}

// SearchResult is the outcome of one brief-bibs search.
type SearchResult struct {
	// Total is the number of matching records in WorldCat.
	Total int
	// Numbers holds the OCLC numbers of the returned brief records, in
	// response order.
	Numbers []oclc.Number
}

type briefBibsResponse struct {
	NumberOfRecords int `json:"numberOfRecords"`
	BriefRecords    []struct {
		OclcNumber string `json:"oclcNumber"`
	} `json:"briefRecords"`
}

// SearchBriefBibs searches WorldCat with the given query. When heldOnly is
// true the search is restricted to records held by the client's
// institution. At most two matches are requested; the caller only needs to
// distinguish zero, one, and more-than-one.
func (c *Client) SearchBriefBibs(ctx context.Context, query string, heldOnly bool) (SearchResult, error) {
	endpoint := fmt.Sprintf("%s/brief-bibs?q=%s&limit=2", c.searchURL, url.QueryEscape(query))
	if heldOnly {
		endpoint += "&heldBySymbol=" + url.QueryEscape(c.institution)
	}
	endpoint = c.withTransaction(endpoint)

	payload, err := c.transport.Get(ctx, endpoint, nil)
	if err != nil {
		return SearchResult{}, err
	}

	var resp briefBibsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return SearchResult{}, errors.WrapParse(ServiceName, "json", err)
	}

	result := SearchResult{Total: resp.NumberOfRecords}
	for _, record := range resp.BriefRecords {
		result.Numbers = append(result.Numbers, oclc.Parse(record.OclcNumber))
	}
	return result, nil
}

// HoldingResult is the outcome of a set or unset holding operation.
type HoldingResult struct {
	Requested oclc.Number
	Current   oclc.Number
	// Updated reports whether the requested number is stale: the holding
	// was registered under Current instead, and the local record should
	// be brought up to date.
	Updated bool
	Success bool
	Message string
}

type holdingEntry struct {
	RequestedOclcNumber string `json:"requestedOclcNumber"`
	CurrentOclcNumber   string `json:"currentOclcNumber"`
	HTTPStatusCode      string `json:"httpStatusCode"`
	ErrorDetail         string `json:"errorDetail"`
}

type holdingResponse struct {
	Entries []holdingEntry `json:"entry"`
}

// SetHolding registers the institution's holding on the given number.
func (c *Client) SetHolding(ctx context.Context, n oclc.Number) (HoldingResult, error) {
	return c.holding(ctx, "POST", n, "")
}

// UnsetHolding withdraws the institution's holding on the given number.
// cascade controls what happens to attached local holdings records: "0"
// blocks the unset when any exist, "1" removes them too.
func (c *Client) UnsetHolding(ctx context.Context, n oclc.Number, cascade string) (HoldingResult, error) {
	return c.holding(ctx, "DELETE", n, cascade)
}

func (c *Client) holding(ctx context.Context, method string, n oclc.Number, cascade string) (HoldingResult, error) {
	if !n.Valid {
		return HoldingResult{}, errors.NewValidationError("OCLC number", n.Raw, n.Reason)
	}

	endpoint := fmt.Sprintf("%s/ih/data?oclcNumber=%s", c.apiURL, url.QueryEscape(n.Digits))
	if cascade != "" {
		endpoint += "&cascade=" + url.QueryEscape(cascade)
	}
	endpoint = c.withTransaction(endpoint)

	payload, err := c.transport.Do(ctx, method, endpoint, nil, nil)
	if err != nil {
		return HoldingResult{}, err
	}

	var resp holdingResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return HoldingResult{}, errors.WrapParse(ServiceName, "json", err)
	}
	if len(resp.Entries) == 0 {
		return HoldingResult{}, &errors.ParseError{
			Service: ServiceName,
			Format:  "json",
			Message: "holdings response contained no entries",
		}
	}

	entry := resp.Entries[0]
	result := HoldingResult{
		Requested: oclc.Parse(entry.RequestedOclcNumber),
		Current:   oclc.Parse(entry.CurrentOclcNumber),
		Success:   entry.HTTPStatusCode == "" || entry.HTTPStatusCode == "HTTP 200 OK",
		Message:   entry.ErrorDetail,
	}
	result.Updated = result.Requested.Valid && result.Current.Valid && !result.Requested.Equal(result.Current)

	if result.Updated {
		c.logger.Warn().
			Str("requested", result.Requested.Digits).
			Str("current", result.Current.Digits).
			Msg("OCLC number has been superseded, consider updating the local record")
	}

	return result, nil
}

// withTransaction appends a transaction ID when enabled.
func (c *Client) withTransaction(endpoint string) string {
	if !c.transact {
		return endpoint
	}
	id := uuid.NewString()
	if c.principalID != "" {
		id += "_" + c.principalID
	}
	return endpoint + "&transactionID=" + url.QueryEscape(id)
}
