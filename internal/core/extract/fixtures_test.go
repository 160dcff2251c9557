package extract

import (
	"strings"
	"testing"
)

const cteHeader = `<?xml version="1.0" encoding="UTF-8"?>
<cteProc xmlns="http://www.portalfiscal.inf.br/cte" versao="4.00">
<CTe xmlns="http://www.portalfiscal.inf.br/cte">
<infCte Id="CTe31240511222333000181570010000010011123456780" versao="4.00">
<ide><cUF>31</cUF><cCT>12345678</cCT><CFOP>6353</CFOP><natOp>PRESTACAO DE SERVICO DE TRANSPORTE</natOp><nCT>1001</nCT><dhEmi>2024-05-10T08:30:00-03:00</dhEmi><xMunIni>BELO HORIZONTE</xMunIni><UFIni>MG</UFIni><xMunFim>SAO PAULO</xMunFim><UFFim>SP</UFFim><toma3><toma>0</toma></toma3></ide>
<emit><CNPJ>11222333000181</CNPJ><xNome>TRANSPORTADORA EXEMPLO LTDA</xNome><enderEmit><UF>SP</UF></enderEmit></emit>
`

const cteFooter = `<vPrest><vTPrest>1500.00</vTPrest></vPrest>
<infCTeNorm><infDoc><infNFe><chave>31240599888777000166550010000123451000123456</chave></infNFe></infDoc></infCTeNorm>
</infCte>
</CTe>
</cteProc>`

const icms00 = `<imp><ICMS><ICMS00><CST>00</CST><vBC>1500.00</vBC><pICMS>12.00</pICMS><vICMS>180.00</vICMS></ICMS00></ICMS></imp>`
const icmsOutraUF = `<imp><ICMS><ICMSOutraUF><CST>90</CST><vBC>900.00</vBC><pICMS>7.00</pICMS><vICMS>63.00</vICMS></ICMSOutraUF></ICMS></imp>`
const destCPF = `<dest><CPF>12345678909</CPF><xNome>CLIENTE FINAL</xNome></dest>`

// buildCTE assembles a CT-e document with the given middle sections.
func buildCTE(sections ...string) string {
	return cteHeader + strings.Join(sections, "\n") + "\n" + cteFooter
}

func mustParse(t *testing.T, xml, name string) *Document {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(xml), name)
	if err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	return doc
}
