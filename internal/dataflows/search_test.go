package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerpAPISearchFormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "AAPL stock news", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{
			"answer_box": {"answer": "Apple closed higher"},
			"organic_results": [
				{"title": "Apple beats estimates", "snippet": "Revenue   rose\n 8%"},
				{"title": "Analysts upgrade AAPL", "snippet": ""},
				{"title": "Third", "snippet": "three"},
				{"title": "Fourth", "snippet": "dropped by max results"}
			]
		}`))
	}))
	defer srv.Close()

	out, err := NewSerpAPIClient(testConfig(t, srv.URL)).Search(context.Background(), "AAPL stock news")
	require.NoError(t, err)
	assert.Equal(t, "Apple closed higher\nApple beats estimates: Revenue rose 8%\nAnalysts upgrade AAPL\nThird: three", out)
}

func TestSerpAPIErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Invalid API key."}`))
	}))
	defer srv.Close()

	_, err := NewSerpAPIClient(testConfig(t, srv.URL)).Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

const ddgFixture = `<html><body>
<div class="result result--ad"><a class="result__a">Sponsored</a><a class="result__snippet">buy now</a></div>
<div class="result"><h2><a class="result__a" href="#">MSFT shares rise</a></h2><a class="result__snippet">Microsoft gained 2% on cloud growth.</a></div>
<div class="result"><h2><a class="result__a" href="#">Microsoft earnings preview</a></h2><a class="result__snippet">What to expect.</a></div>
</body></html>`

func TestDuckDuckGoParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/html/", r.URL.Path)
		assert.Equal(t, "MSFT news", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(ddgFixture))
	}))
	defer srv.Close()

	out, err := NewDuckDuckGoClient(testConfig(t, srv.URL)).Search(context.Background(), "MSFT news")
	require.NoError(t, err)
	assert.Equal(t, "MSFT shares rise: Microsoft gained 2% on cloud growth.\nMicrosoft earnings preview: What to expect.", out)
}

func TestNewSearcherFallsBackToDuckDuckGo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search.json" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "boom"}`))
			return
		}
		_, _ = w.Write([]byte(ddgFixture))
	}))
	defer srv.Close()

	out, err := NewSearcher(testConfig(t, srv.URL), nil).Search(context.Background(), "MSFT news")
	require.NoError(t, err)
	assert.Contains(t, out, "MSFT shares rise")
}

func TestExtractHeadlines(t *testing.T) {
	text := "\n first \n\n second\nthird\n  \nfourth\nfifth\nsixth\n"
	assert.Equal(t, []string{"first", "second", "third", "fourth", "fifth"}, ExtractHeadlines(text, 5))
	assert.Equal(t, []string{"first", "second"}, ExtractHeadlines(text, 2))
	assert.Empty(t, ExtractHeadlines("   \n\n", 5))
	assert.Nil(t, ExtractHeadlines(text, 0))
}
