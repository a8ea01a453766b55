// Package chartmenu builds the header menu shown on a dashboard chart and
// routes menu clicks to the actions they trigger.
package chartmenu

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Behavior is a capability a chart type declares in the chart registry.
type Behavior string

const (
	InteractiveChart Behavior = "INTERACTIVE_CHART"
	NativeFilter     Behavior = "NATIVE_FILTER"
)

// Registry is a read-only lookup of chart metadata by viz type.
type Registry interface {
	Behaviors(vizType string) []Behavior
}

// ChartMeta is one registry entry.
type ChartMeta struct {
	VizType   string     `yaml:"viz_type" json:"viz_type"`
	Name      string     `yaml:"name" json:"name"`
	Behaviors []Behavior `yaml:"behaviors" json:"behaviors"`
}

// StaticRegistry is a Registry backed by a fixed set of entries.
type StaticRegistry struct {
	charts map[string]ChartMeta
}

// NewStaticRegistry indexes charts by viz type. Later entries replace
// earlier ones with the same viz type.
func NewStaticRegistry(charts ...ChartMeta) *StaticRegistry {
	r := &StaticRegistry{charts: make(map[string]ChartMeta, len(charts))}
	for _, c := range charts {
		r.charts[c.VizType] = c
	}
	return r
}

// Behaviors returns the behaviors declared for vizType, or nil when the
// type is unknown.
func (r *StaticRegistry) Behaviors(vizType string) []Behavior {
	return r.charts[vizType].Behaviors
}

// Charts returns every entry sorted by viz type.
func (r *StaticRegistry) Charts() []ChartMeta {
	out := make([]ChartMeta, 0, len(r.charts))
	for _, c := range r.charts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VizType < out[j].VizType })
	return out
}

// HasBehavior reports whether reg declares b for vizType.
func HasBehavior(reg Registry, vizType string, b Behavior) bool {
	if reg == nil {
		return false
	}
	for _, have := range reg.Behaviors(vizType) {
		if have == b {
			return true
		}
	}
	return false
}

type registryFile struct {
	Charts []ChartMeta `yaml:"charts"`
}

// LoadRegistry reads a registry from a YAML file of the form:
//
//	charts:
//	  - viz_type: table
//	    name: Table
//	    behaviors: [INTERACTIVE_CHART]
func LoadRegistry(path string) (*StaticRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chart registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes registry YAML.
func ParseRegistry(data []byte) (*StaticRegistry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing chart registry: %w", err)
	}
	for i, c := range f.Charts {
		if c.VizType == "" {
			return nil, fmt.Errorf("chart registry entry %d: viz_type is required", i+1)
		}
	}
	return NewStaticRegistry(f.Charts...), nil
}

// DefaultRegistry lists the built-in chart types that support cross-filtering.
func DefaultRegistry() *StaticRegistry {
	interactive := []Behavior{InteractiveChart}
	return NewStaticRegistry(
		ChartMeta{VizType: "table", Name: "Table", Behaviors: interactive},
		ChartMeta{VizType: "pie", Name: "Pie Chart", Behaviors: interactive},
		ChartMeta{VizType: "echarts_timeseries", Name: "Time-series Chart", Behaviors: interactive},
		ChartMeta{VizType: "echarts_timeseries_bar", Name: "Time-series Bar Chart", Behaviors: interactive},
		ChartMeta{VizType: "echarts_timeseries_line", Name: "Time-series Line Chart", Behaviors: interactive},
		ChartMeta{VizType: "world_map", Name: "World Map", Behaviors: interactive},
		ChartMeta{VizType: "filter_select", Name: "Select filter", Behaviors: []Behavior{InteractiveChart, NativeFilter}},
		ChartMeta{VizType: "pivot_table_v2", Name: "Pivot Table"},
		ChartMeta{VizType: "big_number", Name: "Big Number"},
		ChartMeta{VizType: "time_table", Name: "Time-series Table"},
	)
}
