package fields

import (
	"github.com/joseph-ayodele/cte-extractor/constants"
)

// CTENamespace is the XML namespace of CT-e documents, bound to the "cte" prefix.
const CTENamespace = "http://www.portalfiscal.inf.br/cte"

// CTENamespaces is the prefix binding used by every CT-e path.
var CTENamespaces = map[string]string{"cte": CTENamespace}

func icms(leaf string) Rule {
	return Fallback(
		".//cte:imp/cte:ICMS/cte:ICMS00/cte:"+leaf,
		".//cte:imp/cte:ICMS/cte:ICMSOutraUF/cte:"+leaf,
	)
}

func documentName(m Meta) string {
	if m.Name == "" {
		return constants.UnknownDocumentName
	}
	return m.Name
}

var cteTable = MustNewTable(CTENamespaces,
	Field{constants.FieldFileName, Derived(documentName)},
	Field{"Chave NFe", Single(".//cte:infDoc/cte:infNFe/cte:chave")},
	Field{"cUF", Single(".//cte:ide/cte:cUF")},
	Field{"cCT", Single(".//cte:ide/cte:cCT")},
	Field{"CFOP", Single(".//cte:ide/cte:CFOP")},
	Field{"Natureza da Operação", Single(".//cte:ide/cte:natOp")},
	Field{"nCT", Single(".//cte:ide/cte:nCT")},
	Field{"dhEmi", Single(".//cte:ide/cte:dhEmi")},
	Field{"Emitente", Single(".//cte:emit/cte:xNome")},
	Field{"CNPJ Emitente", Single(".//cte:emit/cte:CNPJ")},
	Field{constants.FieldIssuerRegion, Single(".//cte:emit/cte:enderEmit/cte:UF")},
	Field{"Destinatario", Single(".//cte:dest/cte:xNome")},
	// Reads dest/CPF although the column says CNPJ; kept as configured until the
	// mapping is confirmed against the schema. Recipients identified by CNPJ resolve
	// to the sentinel.
	Field{"CNPJ Destinatario", Single(".//cte:dest/cte:CPF")},
	Field{constants.FieldServiceValue, Single(".//cte:vPrest/cte:vTPrest")},
	Field{"vBC", icms("vBC")},
	Field{"pICMS", icms("pICMS")},
	Field{"vICMS", icms("vICMS")},
	Field{"CST", icms("CST")},
	Field{"Toma", Single(".//cte:ide/cte:toma3/cte:toma")},
	Field{"Município de Início (xMunIni)", Single(".//cte:ide/cte:xMunIni")},
	Field{"Município de Fim (xMunFim)", Single(".//cte:ide/cte:xMunFim")},
	Field{constants.FieldOriginRegion, Single(".//cte:ide/cte:UFIni")},
	Field{"UF de Fim (UFFim)", Single(".//cte:ide/cte:UFFim")},
	Field{"UF toma4", Single(".//cte:toma4/cte:enderToma/cte:UF")},
	Field{constants.FieldReceiverRegion, Tagged(
		Location{Path: ".//cte:enderReceb/cte:UF", Tag: "receb"},
		Location{Path: ".//cte:enderExped/cte:UF", Tag: "exped"},
	)},
)

// CTE returns the lookup-path table for CT-e documents.
func CTE() *Table {
	return cteTable
}
