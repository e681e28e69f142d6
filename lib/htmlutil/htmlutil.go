package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText trims a scraped string down to a single line of
// printable characters with collapsed inner whitespace.
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// StripNoise removes elements that carry no product information and
// only waste matching (and vision model) effort.
func StripNoise(doc *goquery.Document) {
	doc.Find("script, style, noscript, header, footer, nav, iframe").Each(
		func(i int, s *goquery.Selection) {
			s.Remove()
		},
	)
}

// BodyText returns the cleaned visible text of the document body, one
// line per text run.
func BodyText(doc *goquery.Document) string {
	StripNoise(doc)

	raw := doc.Find("body").Text()
	lines := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = NormalizeText(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
