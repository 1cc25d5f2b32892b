package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harun/cortex/pkg/provider"
	"github.com/xeipuuv/gojsonschema"
)

// ToolDescriptor is a registered tool and its owning connection
type ToolDescriptor struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	UsageTemplate string `json:"usage"`
	ConnectionID  string `json:"connection_id"`

	schema    *gojsonschema.Schema
	schemaErr error
}

// CatalogEntry is what the oracle sees of a tool
type CatalogEntry struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	UsageTemplate string `json:"usage"`
}

// Registry is the merged, immutable tool index
type Registry struct {
	tools map[string]*ToolDescriptor
	names []string
}

type providerTools struct {
	connectionID string
	specs        []provider.ToolSpec
}

func buildRegistry(sets []providerTools) (*Registry, error) {
	r := &Registry{tools: make(map[string]*ToolDescriptor)}
	for _, set := range sets {
		for _, spec := range set.specs {
			name := strings.TrimSpace(spec.Name)
			if name == "" {
				return nil, fmt.Errorf("provider %s advertised a tool without a name", set.connectionID)
			}
			if existing, ok := r.tools[name]; ok {
				return nil, fmt.Errorf("%w: %q advertised by %s and %s",
					ErrDuplicateTool, name, existing.ConnectionID, set.connectionID)
			}

			desc := &ToolDescriptor{
				Name:          name,
				Description:   spec.Description,
				UsageTemplate: provider.UsageTemplate(spec),
				ConnectionID:  set.connectionID,
			}
			desc.schema, desc.schemaErr = compileSchema(spec.InputSchema)
			r.tools[name] = desc
			r.names = append(r.names, name)
		}
	}
	sort.Strings(r.names)
	return r, nil
}

// compileSchema returns nil for tools without a schema
func compileSchema(raw json.RawMessage) (*gojsonschema.Schema, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}

	var schemaMap map[string]interface{}
	if err := json.Unmarshal(raw, &schemaMap); err != nil {
		return nil, err
	}
	// drafts newer than 7 are declared but the keywords we need are shared
	delete(schemaMap, "$schema")

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}

// Lookup returns the descriptor for name
func (r *Registry) Lookup(name string) (ToolDescriptor, bool) {
	d, ok := r.tools[name]
	if !ok {
		return ToolDescriptor{}, false
	}
	return *d, true
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns registered names, sorted
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of tools
func (r *Registry) Len() int { return len(r.names) }

// Catalog returns the oracle-facing tool list, sorted by name
func (r *Registry) Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(r.names))
	for _, name := range r.names {
		d := r.tools[name]
		out = append(out, CatalogEntry{Name: d.Name, Description: d.Description, UsageTemplate: d.UsageTemplate})
	}
	return out
}

// ValidateArgs checks args against the tool's advertised schema.
// A schema that failed to compile rejects every call.
func (d ToolDescriptor) ValidateArgs(args map[string]any) error {
	if d.schemaErr != nil {
		return fmt.Errorf("%w: tool %s has an unusable schema: %v", ErrInvalidArguments, d.Name, d.schemaErr)
	}
	if d.schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := d.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(errs, "; "))
	}
	return nil
}
