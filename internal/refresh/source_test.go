package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("**Combo** `X-Y`\r\n"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.Client())
	ctx := context.Background()

	text, err := src.Fetch(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	require.Equal(t, "**Combo** `X-Y`", trimContent(text))

	_, err = src.Fetch(ctx, srv.URL+"/missing")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.Status)

	src.Timeout = 20 * time.Millisecond
	_, err = src.Fetch(ctx, srv.URL+"/slow")
	require.Error(t, err)
}

func TestHTTPSourceCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.Client())
	src.MaxBodyBytes = 10
	text, err := src.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, text, 10)
}

const cardsPage = `<html><body>
<div class="grid">
  <div class="card daily"><h3> Card   one </h3><p>text</p><code>A-B-C</code></div>
  <div class="card"><span class="title">Second</span><div><span class="code">D-E</span></div></div>
  <div class="card"><h2>Third**</h2><code>F` + "`" + `G</code></div>
  <div class="card"><h2>Fourth</h2><code>H</code></div>
</div>
</body></html>`

func TestParseCards(t *testing.T) {
	cards, err := ParseCards([]byte(cardsPage), "", 0)
	require.NoError(t, err)
	require.Equal(t, []Card{
		{Title: "Card one", Code: "A-B-C"},
		{Title: "Second", Code: "D-E"},
		{Title: "Third**", Code: "F`G"},
	}, cards)
}

func TestFormatCardsProducesAuthoredMarkup(t *testing.T) {
	out := FormatCards([]Card{{Title: "Third**", Code: "F`G"}, {Code: "Z"}})
	require.Equal(t, "**Third**\n`F'G`\n\n**Card 2**\n`Z`", out)
}

func TestCardsSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(cardsPage))
	}))
	defer srv.Close()

	src := NewCardsSource(NewHTTPSource(srv.Client()))
	src.Limit = 1
	text, err := src.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "**Card one**\n`A-B-C`", text)
}
