// Package alma implements the Ex Libris Alma BIBs API client: batched
// record reads and single-record updates, authenticated with an API key.
// Alma reports the institution's remaining daily request allowance on
// every response; the client feeds that back into the quota tracker.
package alma

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/catalogops/oclcrecon/internal/transport"
	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/logging"
)

// ServiceName identifies this service in errors and logs.
const ServiceName = "alma"

// QuotaHeader is the response header carrying Alma's count of remaining
// daily API requests.
const QuotaHeader = "X-Exl-Api-Remaining"

// MaxRecordsPerRead is the hard maximum number of records one GET request
// may retrieve; configured batch sizes are clamped to it.
const MaxRecordsPerRead = 100

// DefaultBibsPath is the BIBs API path under the regional base URL.
const DefaultBibsPath = "/almaws/v1/bibs"

// Record is one bibliographic record as returned by the BIBs API, with its
// identifier fields already extracted. Payload carries the record body for
// callers that modify and write the record back.
type Record struct {
	MMSID string

	// ControlNumbers are the record's 035 $a values, raw and in field
	// order. Only the first $a of each 035 field is taken; additional
	// $a values in the same field are a cataloging error and reported
	// via SubfieldAnomalies.
	ControlNumbers []string

	// FormerNumbers are the record's 019 $a values, raw and in order.
	FormerNumbers []string

	// SubfieldAnomalies describes 035 fields that could not be read
	// cleanly (no $a, or multiple $a values).
	SubfieldAnomalies []string

	// Payload is the record element's serialized form.
	Payload []byte
}

// Client calls the Alma BIBs API.
type Client struct {
	transport *transport.Client
	baseURL   string
	bibsPath  string
	logger    *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBibsPath overrides the BIBs API path.
func WithBibsPath(path string) Option {
	return func(c *Client) { c.bibsPath = path }
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates an Alma client against the given regional base URL.
func NewClient(t *transport.Client, baseURL string, opts ...Option) *Client {
	c := &Client{
		transport: t,
		baseURL:   strings.TrimRight(baseURL, "/"),
		bibsPath:  DefaultBibsPath,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBibs retrieves up to MaxRecordsPerRead records in one request. The
// returned records follow the response order, which may differ from the
// request order; callers match them back by MMS ID. A response that cannot
// be decoded fails the whole read, since a batched request is
// all-or-nothing.
func (c *Client) GetBibs(ctx context.Context, mmsIDs []string) ([]Record, error) {
	if len(mmsIDs) == 0 {
		return nil, errors.NewValidationError("mms_id", "", "no record IDs given")
	}
	if len(mmsIDs) > MaxRecordsPerRead {
		return nil, errors.NewValidationError("mms_id", "", "too many record IDs for one read")
	}

	endpoint := c.baseURL + c.bibsPath +
		"?view=full&mms_id=" + url.QueryEscape(strings.Join(mmsIDs, ","))

	header := http.Header{}
	header.Set("Accept", "application/xml")

	payload, err := c.transport.Get(ctx, endpoint, header)
	if err != nil {
		return nil, err
	}

	records, err := decodeBibs(payload)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("requested", len(mmsIDs)).
		Int("retrieved", len(records)).
		Msg("retrieved Alma records")

	return records, nil
}

// UpdateBib writes a modified record back. body is the serialized bib
// element produced by the caller from Record.Payload.
func (c *Client) UpdateBib(ctx context.Context, mmsID string, body []byte) error {
	endpoint := c.baseURL + c.bibsPath + "/" + url.PathEscape(mmsID)

	header := http.Header{}
	header.Set("Content-Type", "application/xml")
	header.Set("Accept", "application/xml")

	_, err := c.transport.Do(ctx, http.MethodPut, endpoint, header, body)
	return err
}

// BIBs API response shapes. Only the identifier fields the reconciliation
// workflow reads are modeled; Payload keeps the rest intact.

type bibsEnvelope struct {
	XMLName          xml.Name     `xml:"bibs"`
	TotalRecordCount int          `xml:"total_record_count,attr"`
	Bibs             []bibElement `xml:"bib"`
}

type bibElement struct {
	MMSID  string        `xml:"mms_id"`
	Record recordElement `xml:"record"`
}

type recordElement struct {
	Inner      []byte      `xml:",innerxml"`
	Datafields []datafield `xml:"datafield"`
}

type datafield struct {
	Tag       string     `xml:"tag,attr"`
	Subfields []subfield `xml:"subfield"`
}

type subfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

func decodeBibs(payload []byte) ([]Record, error) {
	var envelope bibsEnvelope
	if err := xml.Unmarshal(payload, &envelope); err != nil {
		return nil, errors.WrapParse(ServiceName, "xml", err)
	}

	records := make([]Record, 0, len(envelope.Bibs))
	for _, bib := range envelope.Bibs {
		record := Record{
			MMSID:   bib.MMSID,
			Payload: bib.Record.Inner,
		}
		for _, field := range bib.Record.Datafields {
			switch field.Tag {
			case "035":
				value, anomaly := firstSubfieldA(field)
				if anomaly != "" {
					record.SubfieldAnomalies = append(record.SubfieldAnomalies, anomaly)
				}
				if value != "" {
					record.ControlNumbers = append(record.ControlNumbers, value)
				}
			case "019":
				for _, sub := range field.Subfields {
					if sub.Code == "a" {
						record.FormerNumbers = append(record.FormerNumbers, sub.Value)
					}
				}
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// firstSubfieldA extracts the single $a value of an 035 field. Fields with
// no $a or more than one are anomalies the caller routes to the errors
// bucket rather than guessing which value to trust.
func firstSubfieldA(field datafield) (value, anomaly string) {
	var values []string
	for _, sub := range field.Subfields {
		if sub.Code == "a" {
			values = append(values, sub.Value)
		}
	}
	switch len(values) {
	case 0:
		return "", "035 field with no $a value"
	case 1:
		return values[0], ""
	default:
		return "", "035 field with multiple $a values: " + strings.Join(values, ", ")
	}
}
