package refresh

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

const (
	// DefaultCardClass is the class attribute marking one combo card.
	DefaultCardClass = "card"
	// DefaultCardLimit is the number of cards published per day.
	DefaultCardLimit = 3
)

// CardsSource scrapes an HTML page and turns its cards into authored markup:
// one "**title**" line followed by a "`code`" line per card.
type CardsSource struct {
	HTTP      *HTTPSource
	CardClass string
	Limit     int
}

// NewCardsSource returns a cards scraper reusing the HTTP fetch settings.
func NewCardsSource(httpSource *HTTPSource) *CardsSource {
	return &CardsSource{HTTP: httpSource, CardClass: DefaultCardClass, Limit: DefaultCardLimit}
}

// Card is one scraped entry.
type Card struct {
	Title string
	Code  string
}

func (s *CardsSource) Fetch(ctx context.Context, url string) (string, error) {
	body, err := s.HTTP.get(ctx, url)
	if err != nil {
		return "", err
	}
	cards, err := ParseCards(body, s.CardClass, s.Limit)
	if err != nil {
		return "", err
	}
	return FormatCards(cards), nil
}

// ParseCards extracts up to limit cards. Inside a card the first heading or
// element with class "title" is the title and the first <code> element, or
// element with class "code", is the code.
func ParseCards(page []byte, class string, limit int) ([]Card, error) {
	if class == "" {
		class = DefaultCardClass
	}
	if limit <= 0 {
		limit = DefaultCardLimit
	}
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("refresh: parse html: %w", err)
	}
	var cards []Card
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(cards) >= limit {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, class) {
			card := Card{}
			fillCard(n, &card)
			if card.Title != "" || card.Code != "" {
				cards = append(cards, card)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return cards, nil
}

func fillCard(n *html.Node, card *Card) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch {
		case card.Title == "" && (isHeading(c.Data) || hasClass(c, "title")):
			card.Title = collapse(textOf(c))
		case card.Code == "" && (c.Data == "code" || hasClass(c, "code")):
			card.Code = collapse(textOf(c))
		default:
			fillCard(c, card)
		}
	}
}

// FormatCards renders cards as authored markup.
func FormatCards(cards []Card) string {
	var b strings.Builder
	for i, card := range cards {
		if i > 0 {
			b.WriteString("\n\n")
		}
		title := strings.ReplaceAll(card.Title, "**", "")
		if title == "" {
			title = fmt.Sprintf("Card %d", i+1)
		}
		b.WriteString("**" + title + "**")
		if code := strings.ReplaceAll(card.Code, "`", "'"); code != "" {
			b.WriteString("\n`" + code + "`")
		}
	}
	return b.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(a.Val) {
			if f == class {
				return true
			}
		}
	}
	return false
}

func isHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
