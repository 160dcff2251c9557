package constants

// NotFound is the sentinel written for any field without an extracted value.
const NotFound = "Não encontrado"

// GeneralErrorField is the reserved trace key carrying a document-fatal error.
const GeneralErrorField = "_erro_geral"

// UnknownDocumentName is used when a document arrives without a display name.
const UnknownDocumentName = "desconhecido"

// Column names the filters and the tax rule read from.
const (
	FieldFileName       = "Nome do Arquivo"
	FieldIssuerRegion   = "UF Emitente"
	FieldOriginRegion   = "UF de Início (UFIni)"
	FieldServiceValue   = "vPrest"
	FieldComputedICMS   = "ICMS Calculado"
	FieldReceiverRegion = "UF Receb_Exped"
)

// Debug table column naming.
const (
	DebugDocumentColumn = "arquivo"
	DebugValueSuffix    = "__valor"
	DebugOKSuffix       = "__ok"
	DebugPathSuffix     = "__xpath"
)

// Error table column naming.
const (
	ErrorDocumentColumn = "arquivo"
	ErrorMessageColumn  = "erro"
)
