package tax

import (
	"testing"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

func rec(value, issuer, origin string) entity.Record {
	return entity.Record{
		constants.FieldServiceValue: value,
		constants.FieldIssuerRegion: issuer,
		constants.FieldOriginRegion: origin,
	}
}

func TestComputeICMS(t *testing.T) {
	tests := []struct {
		name string
		row  entity.Record
		want float64
	}{
		{"out of region issuer, origin MG", rec("1500.00", "SP", "MG"), 270},
		{"rounds to cents", rec("100.555", "RJ", "MG"), 18.1},
		{"issuer MG", rec("1500.00", "MG", "MG"), 0},
		{"origin elsewhere", rec("1500.00", "SP", "SP"), 0},
		{"sentinel value", rec(constants.NotFound, "SP", "MG"), 0},
		{"empty value", rec("", "SP", "MG"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeICMS(tt.row, constants.MG); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tbl := entity.NewTable([]string{constants.FieldServiceValue, constants.FieldIssuerRegion, constants.FieldOriginRegion})
	tbl.Append(rec("1000", "SP", "MG"))
	tbl.Append(rec("1000", "MG", "MG"))
	if !Apply(tbl, "") {
		t.Fatal("expected column to be added")
	}
	if !tbl.HasColumn(constants.FieldComputedICMS) {
		t.Fatal("missing computed column")
	}
	if got := tbl.Rows[0][constants.FieldComputedICMS]; got != "180.00" {
		t.Errorf("row 0: expected 180.00, got %q", got)
	}
	if got := tbl.Rows[1][constants.FieldComputedICMS]; got != "0.00" {
		t.Errorf("row 1: expected 0.00, got %q", got)
	}
}

func TestApply_MissingColumns(t *testing.T) {
	tbl := entity.NewTable([]string{constants.FieldServiceValue})
	if Apply(tbl, constants.MG) {
		t.Error("expected no column without region columns")
	}
}
