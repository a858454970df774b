package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bibRecord = `<?xml version="1.0" encoding="UTF-8"?>
<record xmlns="http://www.loc.gov/MARC21/slim">
  <leader>00000cas a2200000 a 4500</leader>
  <controlfield tag="001">12345</controlfield>
  <datafield tag="022" ind1="0" ind2=" ">
    <subfield code="a">1234-5678</subfield>
    <subfield code="l">1234-5678</subfield>
    <subfield code="y">9999-9999</subfield>
  </datafield>
  <datafield tag="245" ind1="0" ind2="0">
    <subfield code="a">Journal of Tests</subfield>
  </datafield>
  <datafield tag="776" ind1="0" ind2="8">
    <subfield code="t">Journal of Tests (Online)</subfield>
    <subfield code="x"> 8765-4321 </subfield>
  </datafield>
</record>`

func testWorldCat(t *testing.T, handler http.HandlerFunc) *WorldCat {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewWorldCat("id", "secret",
		WithHTTPClient(server.Client()),
		WithEndpoint(server.URL),
		WithRateLimit(1000),
		WithRetryDelay(time.Millisecond),
	)
}

func TestWorldCatLookup(t *testing.T) {
	var captured *http.Request
	client := testWorldCat(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		if r.URL.Path != "/manage/bibs/12345" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/marcxml+xml")
		_, _ = w.Write([]byte(bibRecord))
	})

	ids, err := client.Lookup(context.Background(), " 12345 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"1234-5678", "8765-4321"}, ids)

	require.NotNil(t, captured)
	assert.Equal(t, "application/marcxml+xml", captured.Header.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, captured.Header.Get("User-Agent"))
}

func TestWorldCatNotFound(t *testing.T) {
	client := testWorldCat(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ids, err := client.Lookup(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestWorldCatRetries(t *testing.T) {
	var calls atomic.Int32
	client := testWorldCat(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(bibRecord))
	})

	ids, err := client.Lookup(context.Background(), "12345")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWorldCatGivesUp(t *testing.T) {
	var calls atomic.Int32
	client := testWorldCat(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Lookup(context.Background(), "12345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(MaxRetries+1), calls.Load())
}

func TestWorldCatClientError(t *testing.T) {
	client := testWorldCat(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Lookup(context.Background(), "12345")
	assert.ErrorContains(t, err, "unexpected status code 401")
}

func TestWorldCatEmptyKey(t *testing.T) {
	client := testWorldCat(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	ids, err := client.Lookup(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestParseMARCXMLCollection(t *testing.T) {
	doc := `<collection xmlns="http://www.loc.gov/MARC21/slim">
  <record>
    <datafield tag="022" ind1=" " ind2=" "><subfield code="a">1111-1111</subfield></datafield>
  </record>
  <record>
    <datafield tag="022" ind1=" " ind2=" "><subfield code="a">1111-1111</subfield><subfield code="">2222-2222</subfield></datafield>
    <datafield tag="776" ind1=" " ind2=" "><subfield code="x">3333-3333</subfield><subfield code="a">ignored</subfield></datafield>
  </record>
</collection>`

	ids, err := ParseMARCXML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"1111-1111", "3333-3333"}, ids)
}

func TestParseMARCXMLInvalid(t *testing.T) {
	_, err := ParseMARCXML(strings.NewReader("<record><datafield>"))
	assert.Error(t, err)
}
