// Package parserfrequency counts extracted events per data type and parser
// chain, reporting which decoders contributed what share of the timeline.
package parserfrequency

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sifterlab/sifter/pkg/analysis"
	"github.com/sifterlab/sifter/pkg/containers"
)

// Name is the registry name of the plugin.
const Name = "parser_frequency"

// Plugin tallies events by data type.
type Plugin struct {
	byDataType map[string]int
	byChain    map[string]int
	total      int
}

// New returns an empty parser frequency plugin.
func New() *Plugin {
	return &Plugin{
		byDataType: make(map[string]int),
		byChain:    make(map[string]int),
	}
}

// Name implements analysis.Plugin.
func (p *Plugin) Name() string { return Name }

// ExamineEvent implements analysis.Plugin.
func (p *Plugin) ExamineEvent(_ *containers.Event, data *containers.EventData) {
	p.byDataType[data.DataType]++
	p.byChain[data.ParserChain]++
	p.total++
}

// CompileReport implements analysis.Plugin.
func (p *Plugin) CompileReport() *containers.AnalysisReport {
	var b strings.Builder

	fmt.Fprintf(&b, "Examined %d events.\n\n", p.total)

	b.WriteString("Events per data type:\n")
	writeSortedCounts(&b, p.byDataType)

	b.WriteString("\nEvents per parser chain:\n")
	writeSortedCounts(&b, p.byChain)

	return &containers.AnalysisReport{
		PluginName: Name,
		Text:       b.String(),
		CompiledAt: time.Now().UTC(),
	}
}

// writeSortedCounts renders a count map in descending count order, then by
// key for stable output.
func writeSortedCounts(b *strings.Builder, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}

		return keys[i] < keys[j]
	})

	for _, key := range keys {
		fmt.Fprintf(b, "  %s: %d\n", key, counts[key])
	}
}

func init() {
	analysis.MustRegister(Name, func() analysis.Plugin { return New() })
}
