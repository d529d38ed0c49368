package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// Awesome fetches a curated HTML link list ("awesome list" style page):
// section headings become categories, anchors become artifact records with
// the href as identity and the anchor text as name.
type Awesome struct {
	endpoint string
	client   *http.Client
}

func NewAwesome(endpoint string, client *http.Client) *Awesome {
	if client == nil {
		client = defaultClient()
	}
	return &Awesome{endpoint: endpoint, client: client}
}

func (a *Awesome) Key() string { return "awesome" }

func (a *Awesome) Fetch(ctx context.Context) ([]map[string]any, error) {
	body, err := get(ctx, a.client, a.endpoint)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing awesome list html: %w", err)
	}

	var records []map[string]any
	category := ""

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h2", "h3":
				category = strings.TrimSpace(textContent(n))
			case "a":
				if href := attr(n, "href"); strings.HasPrefix(href, "http") {
					name := strings.TrimSpace(textContent(n))
					if name != "" {
						rec := map[string]any{
							"id":          href,
							"name":        name,
							"description": listItemText(n),
						}
						if category != "" {
							rec["category"] = category
						}
						records = append(records, rec)
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return records, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// listItemText returns the whole surrounding <li> text so the link's trailing
// description ends up in the record summary.
func listItemText(anchor *html.Node) string {
	for p := anchor.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "li" {
			return strings.TrimSpace(strings.Join(strings.Fields(textContent(p)), " "))
		}
	}
	return ""
}
