package extract

import (
	"errors"
	"testing"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
)

func newCTEExtractor(t *testing.T) *Extractor {
	t.Helper()
	ex, err := NewExtractor(fields.CTE(), nil)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return ex
}

func TestExtract_RecordKeysEqualSelection(t *testing.T) {
	ex := newCTEExtractor(t)
	docs := []*Document{
		mustParse(t, buildCTE(icms00, destCPF), "full.xml"),
		mustParse(t, `<cteProc xmlns="http://www.portalfiscal.inf.br/cte"/>`, "bare.xml"),
	}
	selections := [][]string{
		fields.CTE().Names(),
		{"vBC", constants.FieldFileName},
		{constants.FieldReceiverRegion},
		{},
	}
	for _, doc := range docs {
		for _, names := range selections {
			sel, err := ex.Table().Select(names)
			if err != nil {
				t.Fatalf("select %v: %v", names, err)
			}
			rec, trace := ex.Extract(doc, sel, true)
			if len(rec) != len(names) {
				t.Errorf("%s: expected %d keys, got %d (%v)", doc.Name, len(names), len(rec), rec)
			}
			for _, n := range names {
				if _, ok := rec[n]; !ok {
					t.Errorf("%s: missing key %q", doc.Name, n)
				}
				if _, ok := trace[n]; !ok {
					t.Errorf("%s: missing trace key %q", doc.Name, n)
				}
			}
		}
	}
}

func TestExtract_FullDocument(t *testing.T) {
	ex := newCTEExtractor(t)
	doc := mustParse(t, buildCTE(icms00, destCPF, `<exped><enderExped><UF>RJ</UF></enderExped></exped>`), "cte-1001.xml")
	rec, trace := ex.Extract(doc, ex.Table().SelectAll(), true)

	want := map[string]string{
		constants.FieldFileName:         "cte-1001.xml",
		"Chave NFe":                     "31240599888777000166550010000123451000123456",
		"cUF":                           "31",
		"CFOP":                          "6353",
		"nCT":                           "1001",
		"Emitente":                      "TRANSPORTADORA EXEMPLO LTDA",
		"CNPJ Emitente":                 "11222333000181",
		constants.FieldIssuerRegion:     "SP",
		"Destinatario":                  "CLIENTE FINAL",
		"CNPJ Destinatario":             "12345678909",
		constants.FieldServiceValue:     "1500.00",
		"vBC":                           "1500.00",
		"pICMS":                         "12.00",
		"vICMS":                         "180.00",
		"CST":                           "00",
		"Toma":                          "0",
		constants.FieldOriginRegion:     "MG",
		"UF de Fim (UFFim)":             "SP",
		"UF toma4":                      constants.NotFound,
		constants.FieldReceiverRegion:   "RJ - exped",
		"Município de Início (xMunIni)": "BELO HORIZONTE",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, rec[k])
		}
	}

	if p := trace[constants.FieldFileName].Path; p != nil {
		t.Errorf("derived field must not record a path, got %q", *p)
	}
	if !trace[constants.FieldFileName].OK {
		t.Error("derived field must be marked ok")
	}
	if got := trace["vBC"].PathOrEmpty(); got != ".//cte:imp/cte:ICMS/cte:ICMS00/cte:vBC" {
		t.Errorf("vBC path: got %q", got)
	}
	if got := trace["UF toma4"]; got.OK || got.PathOrEmpty() != ".//cte:toma4/cte:enderToma/cte:UF" {
		t.Errorf("single-path miss must keep its path and be not ok, got %+v", got)
	}
}

func TestExtract_TraceOKMatchesSentinel(t *testing.T) {
	ex := newCTEExtractor(t)
	docs := []*Document{
		mustParse(t, buildCTE(icms00, destCPF), "a.xml"),
		mustParse(t, buildCTE(icmsOutraUF), "b.xml"),
		mustParse(t, buildCTE(), "c.xml"),
		mustParse(t, `<root/>`, "d.xml"),
	}
	for _, doc := range docs {
		rec, trace := ex.Extract(doc, ex.Table().SelectAll(), true)
		for name, v := range rec {
			entry := trace[name]
			if entry.OK != (v != constants.NotFound) {
				t.Errorf("%s/%s: ok=%v but value %q", doc.Name, name, entry.OK, v)
			}
			if entry.Value != v {
				t.Errorf("%s/%s: trace value %q differs from record %q", doc.Name, name, entry.Value, v)
			}
		}
	}
}

func TestExtract_FallbackMiss(t *testing.T) {
	ex := newCTEExtractor(t)
	doc := mustParse(t, buildCTE(), "a.xml")
	sel, _ := ex.Table().Select([]string{"vBC", "pICMS", "vICMS", "CST"})
	rec, trace := ex.Extract(doc, sel, true)
	for _, n := range sel.Names() {
		if rec[n] != constants.NotFound {
			t.Errorf("%s: expected sentinel, got %q", n, rec[n])
		}
		if trace[n].Path != nil {
			t.Errorf("%s: expected no path, got %q", n, *trace[n].Path)
		}
	}
}

func TestExtract_TaggedUsesMatchingPath(t *testing.T) {
	ex := newCTEExtractor(t)
	doc := mustParse(t, buildCTE(`<exped><enderExped><UF>RJ</UF></enderExped></exped>`), "a.xml")
	sel, _ := ex.Table().Select([]string{constants.FieldReceiverRegion})
	rec, trace := ex.Extract(doc, sel, true)
	if rec[constants.FieldReceiverRegion] != "RJ - exped" {
		t.Fatalf("expected %q, got %q", "RJ - exped", rec[constants.FieldReceiverRegion])
	}
	if got := trace[constants.FieldReceiverRegion].PathOrEmpty(); got != ".//cte:enderExped/cte:UF" {
		t.Errorf("expected exped path, got %q", got)
	}
}

func TestExtract_AbsentAndDerived(t *testing.T) {
	table := fields.MustNewTable(fields.CTENamespaces,
		fields.Field{Name: "name", Rule: fields.Derived(func(m fields.Meta) string { return "doc:" + m.Name })},
		fields.Field{Name: "unmapped", Rule: fields.Absent()},
		fields.Field{Name: "cUF", Rule: fields.Single(".//cte:ide/cte:cUF")},
	)
	ex, err := NewExtractor(table, nil)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	doc := mustParse(t, buildCTE(icms00, destCPF), "x.xml")
	rec, trace := ex.Extract(doc, table.SelectAll(), true)

	if rec["unmapped"] != constants.NotFound {
		t.Errorf("absent field: expected sentinel, got %q", rec["unmapped"])
	}
	if e := trace["unmapped"]; e.OK || e.Path != nil {
		t.Errorf("absent field trace: got %+v", e)
	}
	if rec["name"] != "doc:x.xml" {
		t.Errorf("derived field: got %q", rec["name"])
	}
}

func TestExtract_NoTraceWithoutDebug(t *testing.T) {
	ex := newCTEExtractor(t)
	doc := mustParse(t, buildCTE(icms00), "a.xml")
	_, trace := ex.Extract(doc, ex.Table().SelectAll(), false)
	if trace != nil {
		t.Errorf("expected nil trace, got %d entries", len(trace))
	}
}

func TestExtract_UnnamedDocument(t *testing.T) {
	ex := newCTEExtractor(t)
	doc := mustParse(t, buildCTE(), "")
	sel, _ := ex.Table().Select([]string{constants.FieldFileName})
	rec, _ := ex.Extract(doc, sel, false)
	if rec[constants.FieldFileName] != constants.UnknownDocumentName {
		t.Errorf("expected %q, got %q", constants.UnknownDocumentName, rec[constants.FieldFileName])
	}
}

func TestNewExtractor_RejectsBadPath(t *testing.T) {
	table := fields.MustNewTable(fields.CTENamespaces,
		fields.Field{Name: "broken", Rule: fields.Single("//cte:ide[[")},
	)
	_, err := NewExtractor(table, nil)
	if !errors.Is(err, common.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
