package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/scout/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonLDPage = `<!doctype html>
<html><head>
<title>Ignored title</title>
<script type="application/ld+json">{not json}</script>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"Organization","name":"Kartellrecht Forum e.V."},
  {"@type":["BusinessEvent"],
   "name":"Kartellrechtstag 2025",
   "startDate":"2025-11-20T09:00:00+01:00",
   "endDate":"2025-11-21",
   "location":{"@type":"Place","name":"Hotel Adlon",
     "address":{"@type":"PostalAddress","addressLocality":"Berlin","addressCountry":"Deutschland"}},
   "organizer":{"@type":"Organization","name":"Kartellrecht Forum e.V."},
   "performer":[
     {"@type":"Person","name":"Dr. Andrea Müller","jobTitle":"Partnerin","affiliation":{"@type":"Organization","name":"Gleiss Lutz"}},
     {"@type":"Person","name":"Hans Weber","worksFor":"Bundeskartellamt","url":"https://example.de/weber"},
     {"@type":"Organization","name":"Law Society"}
   ],
   "sponsor":[{"@type":"Organization","name":"PwC"},"KPMG"]}
]}
</script>
</head><body>
<a href="/referenten">Alle Referenten</a>
</body></html>`

const htmlPage = `<!doctype html>
<html><head>
<meta property="og:title" content="Legal Tech Summit Munich">
<meta property="og:site_name" content="Legal Tech Events GmbH">
</head><body>
<h1>Welcome</h1>
<p>When: <time datetime="2025-11-18">18</time> to <time datetime="2025-11-19">19 November</time></p>
<span itemprop="addressLocality">München</span><span itemprop="addressCountry">DE</span>
<div class="speakers"><ul>
  <li><h3>Anna Schmidt</h3><span class="position">General Counsel</span><span class="company">Siemens AG</span><a href="/speakers/anna">Profile</a></li>
  <li>Reserve Seat</li>
</ul></div>
<div class="speaker"><h3>Anna Schmidt</h3></div>
<div class="sponsors"><img src="a.png" alt="KPMG Logo"><img src="b.png" alt="KPMG"><img src="c.png" alt=""></div>
<div class="partners"><img src="d.png" alt="Bitkom"></div>
<a href="#top">Top</a>
<a href="/program/speakers">Speakers</a>
</body></html>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract_JSONLD(t *testing.T) {
	srv := serve(t, http.StatusOK, jsonLDPage)
	e := New(WithHTTPClient(srv.Client()))

	c, err := e.Extract(context.Background(), srv.URL+"/kartellrechtstag")
	require.NoError(t, err)

	assert.Equal(t, MethodJSONLD, c.ExtractionMethod)
	assert.Equal(t, jsonLDConfidence, c.Confidence)
	assert.Equal(t, srv.URL+"/kartellrechtstag", c.SourceURL)
	assert.Equal(t, "Kartellrechtstag 2025", c.Title)
	require.NotNil(t, c.StartDate)
	require.NotNil(t, c.EndDate)
	assert.Equal(t, time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), *c.StartDate)
	assert.Equal(t, time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC), *c.EndDate)
	assert.Equal(t, "Hotel Adlon", c.Venue)
	assert.Equal(t, "Berlin", c.City)
	assert.Equal(t, "DE", c.Country)
	assert.Equal(t, "Kartellrecht Forum e.V.", c.Organizer)

	require.Len(t, c.Speakers, 2)
	assert.Equal(t, core.Person{Name: "Dr. Andrea Müller", Title: "Partnerin", Organization: "Gleiss Lutz"}, c.Speakers[0])
	assert.Equal(t, "Bundeskartellamt", c.Speakers[1].Organization)
	assert.Equal(t, "https://example.de/weber", c.Speakers[1].ProfileURL)
	assert.Equal(t, []string{"Law Society"}, c.Partners)
	assert.Equal(t, []string{"PwC", "KPMG"}, c.Sponsors)
	assert.Equal(t, srv.URL+"/referenten", c.SpeakersPageURL)
}

func TestExtract_HTMLFallback(t *testing.T) {
	srv := serve(t, http.StatusOK, htmlPage)
	e := New(WithHTTPClient(srv.Client()))

	c, err := e.Extract(context.Background(), srv.URL+"/summit")
	require.NoError(t, err)

	assert.Equal(t, MethodHTML, c.ExtractionMethod)
	assert.Equal(t, htmlConfidence, c.Confidence)
	assert.Equal(t, "Legal Tech Summit Munich", c.Title)
	require.NotNil(t, c.StartDate)
	require.NotNil(t, c.EndDate)
	assert.Equal(t, 18, c.StartDate.Day())
	assert.Equal(t, 19, c.EndDate.Day())
	assert.Equal(t, "München", c.City)
	assert.Equal(t, "DE", c.Country)
	assert.Equal(t, "Legal Tech Events GmbH", c.Organizer)

	// Validation is left to the extraction.Validator: "Reserve Seat" survives here.
	require.Len(t, c.Speakers, 2)
	assert.Equal(t, "Anna Schmidt", c.Speakers[0].Name)
	assert.Equal(t, "General Counsel", c.Speakers[0].Title)
	assert.Equal(t, "Siemens AG", c.Speakers[0].Organization)
	assert.Equal(t, srv.URL+"/speakers/anna", c.Speakers[0].ProfileURL)
	assert.Equal(t, "Reserve Seat", c.Speakers[1].Name)

	assert.Equal(t, []string{"KPMG"}, c.Sponsors)
	assert.Equal(t, []string{"Bitkom"}, c.Partners)
	assert.Equal(t, srv.URL+"/speakers/anna", c.SpeakersPageURL)
}

func TestExtract_MinimalPage(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><head><title>Hello</title></head><body></body></html>`)
	c, err := New(WithHTTPClient(srv.Client())).Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Hello", c.Title)
	assert.Nil(t, c.StartDate)
	assert.Equal(t, minimalConfidence, c.Confidence)
}

func TestExtract_RequestOptions(t *testing.T) {
	var gotUA string
	page := `<html><head><title>Hello</title></head><body>` + strings.Repeat(" ", 512) + `<h1>Late</h1></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	e := New(WithHTTPClient(srv.Client()), WithUserAgent("scout-test/1.0"), WithMaxBodyBytes(64))
	c, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "scout-test/1.0", gotUA)
	assert.Equal(t, "Hello", c.Title)
	assert.NotContains(t, c.Title, "Late")

	_, err = New(WithHTTPClient(srv.Client())).Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, defaultUserAgent, gotUA)
}

func TestExtract_Failures(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "gone")
	e := New(WithHTTPClient(srv.Client()))

	_, err := e.Extract(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, core.ErrExtractionFailed)

	_, err = e.Extract(context.Background(), "not a url")
	assert.ErrorIs(t, err, core.ErrExtractionFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Extract(ctx, srv.URL)
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-11-20", "2025-11-20"},
		{"2025-11-20T09:00", "2025-11-20"},
		{"2025-11-20T23:30:00-05:00", "2025-11-20"},
		{"2025-11-20T09:00:00+0100", "2025-11-20"},
		{"20.11.2025", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseDate(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}
