package containers

import "time"

// AnalysisReport is the compiled output of one analysis plugin run over the
// events in a store.
type AnalysisReport struct {
	identifier

	// PluginName names the analysis plugin that compiled the report.
	PluginName string `cbor:"plugin_name" json:"plugin_name"`
	// Text is the human-readable report body.
	Text string `cbor:"text" json:"text"`
	// CompiledAt is when the report was compiled, in UTC.
	CompiledAt time.Time `cbor:"compiled_at" json:"compiled_at"`
}

// ContainerKind implements Container.
func (r *AnalysisReport) ContainerKind() Kind { return KindAnalysisReport }
