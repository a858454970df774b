package lookup

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultWorldCatEndpoint is the WorldCat Metadata API base URL
	DefaultWorldCatEndpoint = "https://metadata.api.oclc.org/worldcat"
	// WorldCatTokenURL issues client-credential tokens
	WorldCatTokenURL = "https://oauth.oclc.org/token"
	// WorldCatScope grants read access to bibliographic records
	WorldCatScope = "WorldCatMetadataAPI"
)

// WorldCat reads bibliographic records from the WorldCat Metadata API and
// returns the ISSNs in 022$a, 022$l and 776$x. 022$y is never returned.
type WorldCat struct {
	*transport
}

// NewWorldCat creates a client authorized with OCLC client credentials.
// WithHTTPClient replaces the OAuth client entirely.
func NewWorldCat(clientID, clientSecret string, opts ...Option) *WorldCat {
	t := newTransport(DefaultWorldCatEndpoint)
	for _, opt := range opts {
		opt(t)
	}

	if t.httpClient == nil {
		cfg := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     WorldCatTokenURL,
			Scopes:       []string{WorldCatScope},
		}
		base := &http.Client{Timeout: t.timeout}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		t.httpClient = cfg.Client(ctx)
		t.httpClient.Timeout = t.timeout
	}

	return &WorldCat{transport: t}
}

// Lookup implements Client. An unknown OCLC number yields no identifiers.
func (w *WorldCat) Lookup(ctx context.Context, oclcNumber string) ([]string, error) {
	oclcNumber = strings.TrimSpace(oclcNumber)
	if oclcNumber == "" {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/manage/bibs/%s", strings.TrimRight(w.endpoint, "/"), url.PathEscape(oclcNumber))
	body, err := w.get(ctx, reqURL, "application/marcxml+xml")
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bib %s: %w", oclcNumber, err)
	}

	ids, err := ParseMARCXML(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bib %s: %w", oclcNumber, err)
	}
	return ids, nil
}

type marcRecord struct {
	DataFields []marcDataField `xml:"datafield"`
}

type marcDataField struct {
	Tag       string         `xml:"tag,attr"`
	Subfields []marcSubfield `xml:"subfield"`
}

type marcSubfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

// issnSubfields lists the subfields read per tag.
var issnSubfields = map[string]string{
	"776": "x",
	"022": "al",
}

// ParseMARCXML returns the distinct ISSNs from 776$x, 022$a and 022$l of
// every record in a MARCXML document, in document order. Both a bare
// <record> and a <collection> of records are accepted.
func ParseMARCXML(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	seen := make(map[string]struct{})
	var ids []string

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode MARCXML: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "record" {
			continue
		}

		var rec marcRecord
		if err := decoder.DecodeElement(&rec, &start); err != nil {
			return nil, fmt.Errorf("failed to decode MARCXML record: %w", err)
		}
		for _, field := range rec.DataFields {
			codes, ok := issnSubfields[field.Tag]
			if !ok {
				continue
			}
			for _, sf := range field.Subfields {
				value := strings.TrimSpace(sf.Value)
				if value == "" || len(sf.Code) != 1 || !strings.Contains(codes, sf.Code) {
					continue
				}
				if _, dup := seen[value]; dup {
					continue
				}
				seen[value] = struct{}{}
				ids = append(ids, value)
			}
		}
	}

	return ids, nil
}
