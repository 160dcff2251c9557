package extract

import (
	"errors"
	"fmt"
	"io"

	"github.com/antchfx/xmlquery"

	"github.com/joseph-ayodele/cte-extractor/internal/common"
)

var (
	errNoRoot    = errors.New("no root element")
	errExtraRoot = errors.New("junk after document element")
)

// Document is a parsed document tree plus its display name. It is never mutated
// after ParseDocument returns.
type Document struct {
	Name string
	root *xmlquery.Node
}

// ParseDocument reads r fully and builds the document tree. Malformed XML, empty
// input and content without exactly one root element fail with a CodeParse
// AppError wrapping common.ErrParse.
func ParseDocument(r io.Reader, name string) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, parseError(err)
	}
	el := rootElement(root)
	if el == nil {
		return nil, parseError(errNoRoot)
	}
	for c := el.NextSibling; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return nil, parseError(errExtraRoot)
		}
	}
	return &Document{Name: name, root: root}, nil
}

func parseError(err error) error {
	return common.NewAppError(common.CodeParse, "parse document", fmt.Errorf("%w: %v", common.ErrParse, err))
}

// RootName returns the local name of the document element.
func (d *Document) RootName() string {
	if el := rootElement(d.root); el != nil {
		return el.Data
	}
	return ""
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	if doc == nil {
		return nil
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}
