package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/joseph-ayodele/cte-extractor/internal/common"
)

func TestParseDocument_Valid(t *testing.T) {
	doc := mustParse(t, buildCTE(icms00, destCPF), "a.xml")
	if doc.Name != "a.xml" {
		t.Errorf("expected name %q, got %q", "a.xml", doc.Name)
	}
	if got := doc.RootName(); got != "cteProc" {
		t.Errorf("expected root %q, got %q", "cteProc", got)
	}
}

func TestParseDocument_Rejects(t *testing.T) {
	cases := map[string]string{
		"truncated":  buildCTE(icms00)[:200],
		"plain text": "this is not xml at all",
		"empty":      "",
		"mismatched": "<a><b></a>",
		"two roots":  "<a/><b/>",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := ParseDocument(strings.NewReader(input), name+".xml")
			if err == nil {
				t.Fatalf("expected error, got document with root %q", doc.RootName())
			}
			if !errors.Is(err, common.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
			var appErr *common.AppError
			if !errors.As(err, &appErr) || appErr.Code != common.CodeParse {
				t.Errorf("expected %s app error, got %#v", common.CodeParse, err)
			}
		})
	}
}
