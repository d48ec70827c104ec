package scrape

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"catalogrecon/internal/sqlgen"
)

// Page holds what a product page exposes through its meta tags.
type Page struct {
	Title       string
	Description string
	Images      []string
	Price       string
}

func (p Page) Empty() bool {
	return p.Description == "" && len(p.Images) == 0 && p.Price == ""
}

// ParsePage reads og:description (falling back to description), every og:image and
// product:price:amount from an HTML document.
func ParsePage(r io.Reader) (Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Page{}, errors.Wrap(err, "parse html")
	}
	var (
		page     Page
		fallback string
		seen     = map[string]bool{}
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				key := strings.ToLower(attr(n, "property"))
				if key == "" {
					key = strings.ToLower(attr(n, "name"))
				}
				content := strings.TrimSpace(attr(n, "content"))
				if content == "" {
					break
				}
				switch key {
				case "og:description":
					if page.Description == "" {
						page.Description = content
					}
				case "description":
					if fallback == "" {
						fallback = content
					}
				case "og:image", "og:image:url":
					if !seen[content] {
						seen[content] = true
						page.Images = append(page.Images, content)
					}
				case "product:price:amount", "og:price:amount":
					if page.Price == "" {
						page.Price = content
					}
				case "og:title":
					if page.Title == "" {
						page.Title = content
					}
				}
			case "title":
				if page.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					page.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if page.Description == "" {
		page.Description = fallback
	}
	return page, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// normalizePrice turns a meta price such as "1299.9" or "129,90" into a two-place
// decimal string. Negative prices are rejected.
func normalizePrice(s string) (string, bool) {
	d, ok := sqlgen.NormalizeDecimal(s)
	if !ok || d.IsNegative() {
		return "", false
	}
	return d.StringFixed(2), true
}
