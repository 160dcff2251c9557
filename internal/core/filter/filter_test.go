package filter

import (
	"testing"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

func table(rows ...entity.Record) *entity.Table {
	t := entity.NewTable([]string{constants.FieldFileName, constants.FieldIssuerRegion, constants.FieldOriginRegion})
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func row(name, issuer, origin string) entity.Record {
	return entity.Record{
		constants.FieldFileName:     name,
		constants.FieldIssuerRegion: issuer,
		constants.FieldOriginRegion: origin,
	}
}

func TestApply_ExcludeIssuerRegion(t *testing.T) {
	in := table(row("a", "MG", "MG"), row("b", "SP", "MG"), row("c", "MG", "RJ"))
	out := Apply(in, Options{ExcludeIssuerRegion: true})
	if out.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", out.Len())
	}
	if out.Rows[0][constants.FieldFileName] != "b" {
		t.Errorf("expected row b at index 0, got %q", out.Rows[0][constants.FieldFileName])
	}
	if in.Len() != 3 {
		t.Errorf("input table must not change, has %d rows", in.Len())
	}
}

func TestApply_OriginRegionOnly(t *testing.T) {
	in := table(row("a", "SP", "MG"), row("b", "SP", "RJ"), row("c", "RJ", "MG"), row("d", "SP", constants.NotFound))
	out := Apply(in, Options{OriginRegionOnly: true})
	var got []string
	for _, r := range out.Rows {
		got = append(got, r[constants.FieldFileName])
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("expected [a c], got %v", got)
	}
}

func TestApply_Combined(t *testing.T) {
	in := table(row("a", "MG", "MG"), row("b", "SP", "MG"), row("c", "SP", "SP"))
	out := Apply(in, Options{ExcludeIssuerRegion: true, OriginRegionOnly: true})
	if out.Len() != 1 || out.Rows[0][constants.FieldFileName] != "b" {
		t.Errorf("expected only b, got %+v", out.Rows)
	}
}

func TestApply_OtherRegion(t *testing.T) {
	in := table(row("a", "SP", "MG"), row("b", "RJ", "SP"))
	out := Apply(in, Options{ExcludeIssuerRegion: true, Region: constants.SP})
	if out.Len() != 1 || out.Rows[0][constants.FieldFileName] != "b" {
		t.Errorf("expected only b, got %+v", out.Rows)
	}
}

func TestApply_MissingColumnSkipsFilter(t *testing.T) {
	in := entity.NewTable([]string{constants.FieldFileName})
	in.Append(entity.Record{constants.FieldFileName: "a"})
	out := Apply(in, Options{ExcludeIssuerRegion: true, OriginRegionOnly: true})
	if out.Len() != 1 {
		t.Errorf("expected filters to be skipped, got %d rows", out.Len())
	}
}
