package graph

import (
	"encoding/json"
	"path"
	"regexp"
	"strings"

	"github.com/BaSui01/fabricflow/types"
)

// Extractor maps an artifact's parts to the identities it references. The
// candidates may include identities that do not exist locally; the
// Resolver filters them. Extractors must be pure.
type Extractor interface {
	// Type is the artifact type this extractor handles.
	Type() string
	// References returns candidate referenced identities.
	References(parts []types.Part) []types.Identity
}

// DefaultExtractors returns the built-in extractor set.
func DefaultExtractors() []Extractor {
	return []Extractor{
		NotebookExtractor{},
		SemanticModelExtractor{},
		ReportExtractor{},
	}
}

// NotebookExtractor reads the structural "# META" marker blocks of
// notebook script parts. A block is a run of consecutive lines prefixed
// "# META "; stripped and joined they form a JSON object whose
// dependencies section names the default lakehouse the notebook is bound
// to.
type NotebookExtractor struct{}

func (NotebookExtractor) Type() string { return "Notebook" }

type notebookMeta struct {
	Dependencies struct {
		Lakehouse struct {
			DefaultLakehouseName string `json:"default_lakehouse_name"`
		} `json:"lakehouse"`
		Warehouse struct {
			DefaultWarehouseName string `json:"default_warehouse_name"`
		} `json:"warehouse"`
	} `json:"dependencies"`
}

// The trailing space matters: "# METADATA ****" section markers must not
// match.
const notebookMetaPrefix = "# META "

func (NotebookExtractor) References(parts []types.Part) []types.Identity {
	var refs []types.Identity
	for _, p := range parts {
		if p.Kind != types.PartKindText || !strings.HasSuffix(p.Path, ".py") {
			continue
		}
		for _, block := range notebookMetaBlocks(string(p.Payload)) {
			var meta notebookMeta
			if err := json.Unmarshal([]byte(block), &meta); err != nil {
				continue // non-dependency META blocks are free-form
			}
			if name := meta.Dependencies.Lakehouse.DefaultLakehouseName; name != "" {
				refs = append(refs, types.Identity{Name: name, Type: "Lakehouse"})
			}
			if name := meta.Dependencies.Warehouse.DefaultWarehouseName; name != "" {
				refs = append(refs, types.Identity{Name: name, Type: "Warehouse"})
			}
		}
	}
	return refs
}

// notebookMetaBlocks collects each run of "# META" lines as one JSON blob.
func notebookMetaBlocks(content string) []string {
	var blocks []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(trimmed, notebookMetaPrefix) {
			current = append(current, strings.TrimPrefix(trimmed, notebookMetaPrefix))
			continue
		}
		flush()
	}
	flush()
	return blocks
}

// SemanticModelExtractor scans modeling-language parts (.tmdl, .bim) for
// declarative source references: Lakehouse.Contents("Name") expressions
// and the database argument of Sql.Database(server, "Name"). The database
// name is offered under both Lakehouse and Warehouse types; the Resolver
// keeps whichever exists locally.
type SemanticModelExtractor struct{}

func (SemanticModelExtractor) Type() string { return "SemanticModel" }

var (
	lakehouseContentsRe = regexp.MustCompile(`Lakehouse\.Contents\s*\(\s*"([^"]+)"`)
	sqlDatabaseRe       = regexp.MustCompile(`Sql\.Database\s*\(\s*[^,)]+,\s*"([^"]+)"`)
)

func (SemanticModelExtractor) References(parts []types.Part) []types.Identity {
	var refs []types.Identity
	for _, p := range parts {
		ext := path.Ext(p.Path)
		if p.Kind != types.PartKindText || (ext != ".tmdl" && ext != ".bim") {
			continue
		}
		content := string(p.Payload)
		for _, m := range lakehouseContentsRe.FindAllStringSubmatch(content, -1) {
			refs = append(refs, types.Identity{Name: m[1], Type: "Lakehouse"})
		}
		for _, m := range sqlDatabaseRe.FindAllStringSubmatch(content, -1) {
			refs = append(refs,
				types.Identity{Name: m[1], Type: "Lakehouse"},
				types.Identity{Name: m[1], Type: "Warehouse"},
			)
		}
	}
	return refs
}

// ReportExtractor reads the structured dataset reference of report
// definition parts: definition.pbir carries a by-path pointer to the
// semantic model folder the report renders.
type ReportExtractor struct{}

func (ReportExtractor) Type() string { return "Report" }

type reportDefinition struct {
	DatasetReference struct {
		ByPath struct {
			Path string `json:"path"`
		} `json:"byPath"`
		ByConnection struct {
			DatabaseName string `json:"databaseName"`
		} `json:"byConnection"`
	} `json:"datasetReference"`
}

func (ReportExtractor) References(parts []types.Part) []types.Identity {
	var refs []types.Identity
	for _, p := range parts {
		if path.Base(p.Path) != "definition.pbir" {
			continue
		}
		var def reportDefinition
		if err := json.Unmarshal(p.Payload, &def); err != nil {
			continue
		}
		if rel := def.DatasetReference.ByPath.Path; rel != "" {
			folder := path.Base(path.Clean(rel))
			if id, err := types.ParseIdentity(folder); err == nil {
				refs = append(refs, id)
			}
		}
		if name := def.DatasetReference.ByConnection.DatabaseName; name != "" {
			refs = append(refs, types.Identity{Name: name, Type: "SemanticModel"})
		}
	}
	return refs
}
