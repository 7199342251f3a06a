package containers

// ExtractionWarning is a non-fatal diagnostic produced by a parser or plugin
// when it encounters input it cannot fully decode. Warnings are metadata
// about processing, not facts about the examined system: a parser appends a
// warning and continues rather than aborting the run.
type ExtractionWarning struct {
	identifier

	// Message describes what could not be decoded.
	Message string `cbor:"message" json:"message"`
	// ParserChain identifies the parser/plugin chain the warning applies to.
	ParserChain string `cbor:"parser_chain" json:"parser_chain"`
	// Path locates the evidence the warning applies to.
	Path string `cbor:"path" json:"path"`
}

// ContainerKind implements Container.
func (w *ExtractionWarning) ContainerKind() Kind { return KindExtractionWarning }
