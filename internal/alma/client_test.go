package alma

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogops/oclcrecon/internal/transport"
	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/quota"
)

const bibsResponse = `<?xml version="1.0" encoding="UTF-8"?>
<bibs total_record_count="2">
  <bib>
    <mms_id>991111111111</mms_id>
    <record>
      <datafield tag="035" ind1=" " ind2=" ">
        <subfield code="a">(OCoLC)ocm01234567</subfield>
      </datafield>
      <datafield tag="019" ind1=" " ind2=" ">
        <subfield code="a">222</subfield>
        <subfield code="a">333</subfield>
      </datafield>
    </record>
  </bib>
  <bib>
    <mms_id>992222222222</mms_id>
    <record>
      <datafield tag="035" ind1=" " ind2=" ">
        <subfield code="a">(OCoLC)111</subfield>
        <subfield code="a">(OCoLC)999</subfield>
      </datafield>
      <datafield tag="035" ind1=" " ind2=" ">
        <subfield code="z">cancelled</subfield>
      </datafield>
    </record>
  </bib>
</bibs>`

func newTestClient(serverURL string, tracker *quota.Tracker) *Client {
	t := transport.New(ServiceName, &transport.APIKeyAuth{Key: "test-key"}, tracker, time.Second,
		transport.WithSleep(func(time.Duration) {}),
		transport.WithQuotaHeader(QuotaHeader))
	return NewClient(t, serverURL)
}

func TestGetBibs(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("mms_id")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "full", r.URL.Query().Get("view"))
		w.Header().Set(QuotaHeader, "99500")
		_, _ = w.Write([]byte(bibsResponse))
	}))
	defer server.Close()

	tracker := quota.NewTracker(100000, 0)
	c := newTestClient(server.URL, tracker)

	records, err := c.GetBibs(context.Background(), []string{"991111111111", "992222222222"})
	require.NoError(t, err)

	assert.Equal(t, "991111111111,992222222222", gotQuery)
	assert.Equal(t, "apikey test-key", gotAuth)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "991111111111", first.MMSID)
	assert.Equal(t, []string{"(OCoLC)ocm01234567"}, first.ControlNumbers)
	assert.Equal(t, []string{"222", "333"}, first.FormerNumbers)
	assert.Empty(t, first.SubfieldAnomalies)
	assert.Contains(t, string(first.Payload), "(OCoLC)ocm01234567")

	second := records[1]
	assert.Empty(t, second.ControlNumbers)
	require.Len(t, second.SubfieldAnomalies, 2)
	assert.Contains(t, second.SubfieldAnomalies[0], "multiple $a values")
	assert.Contains(t, second.SubfieldAnomalies[1], "no $a value")

	// Alma's remaining-quota header was adopted.
	assert.Equal(t, 99500, tracker.Remaining())
}

func TestGetBibsMalformedResponseFailsWholeRead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<bibs><bib><unterminated"))
	}))
	defer server.Close()

	c := newTestClient(server.URL, quota.NewTracker(1000, 0))

	_, err := c.GetBibs(context.Background(), []string{"991111111111"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedResponse))
}

func TestGetBibsInputBounds(t *testing.T) {
	c := newTestClient("http://unused.invalid", quota.NewTracker(1000, 0))

	_, err := c.GetBibs(context.Background(), nil)
	assert.True(t, errors.IsInvalidIdentifier(err))

	tooMany := make([]string, MaxRecordsPerRead+1)
	_, err = c.GetBibs(context.Background(), tooMany)
	assert.True(t, errors.IsInvalidIdentifier(err))
}

func TestUpdateBib(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	c := newTestClient(server.URL, quota.NewTracker(1000, 0))

	err := c.UpdateBib(context.Background(), "991111111111", []byte("<bib>updated</bib>"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, DefaultBibsPath+"/991111111111", gotPath)
	assert.Equal(t, "application/xml", gotContentType)
	assert.Equal(t, "<bib>updated</bib>", string(gotBody))
}

func TestGetBibsQuotaGate(t *testing.T) {
	c := newTestClient("http://unused.invalid", quota.NewTracker(5, 5))

	_, err := c.GetBibs(context.Background(), []string{"991111111111"})
	require.Error(t, err)
	assert.True(t, errors.IsQuotaExhausted(err))
}
