package capflow

// YAML entity file loader, grounded on storage/yaml_loader.py's directory
// convention: one file per entity, optionally grouped into a subdirectory
// per kind, loaded with a per-file try-and-continue so one bad file never
// aborts a directory load.

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// entityDoc is the generic YAML shape every entity file decodes into
// before being dispatched onto a concrete struct by kind.
type entityDoc struct {
	Type      string            `yaml:"type"`
	Name      string            `yaml:"name"`
	StartDate string            `yaml:"start_date"`
	EndDate   string            `yaml:"end_date"`
	Tags      []string          `yaml:"tags"`
	Notes     string            `yaml:"notes"`
	Fields    map[string]any    `yaml:",inline"`
}

const yamlDateLayout = "2006-01-02"

// LoadFile loads a single entity from a YAML file. Returns (nil, nil) if
// the document is empty or lacks a type or name; YAML that does not parse
// and unparseable dates return an error. Callers doing a directory walk log
// and skip either case, matching load_file's behavior.
func LoadFile(path string) (Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errInternal("reading %s: %v", path, err)
	}

	var doc entityDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errValidationFailed("", "parsing YAML in %s: %v", path, err)
	}
	if doc.Type == "" || doc.Name == "" {
		return nil, nil
	}

	start, err := time.Parse(yamlDateLayout, doc.StartDate)
	if err != nil {
		return nil, errInvalidField("start_date", "invalid date %q in %s", doc.StartDate, path)
	}

	e, err := NewEntity(EntityKind(doc.Type), doc.Name, start)
	if err != nil {
		return nil, err
	}
	base := e.Base()
	base.Tags = doc.Tags
	base.Notes = doc.Notes
	if doc.EndDate != "" {
		end, err := time.Parse(yamlDateLayout, doc.EndDate)
		if err != nil {
			return nil, errInvalidField("end_date", "invalid date %q in %s", doc.EndDate, path)
		}
		base.EndDate = &end
	}

	applyYAMLFields(e, doc.Fields)
	return e, e.Validate()
}

// applyYAMLFields assigns every field this module's entity kinds know how
// to hold, trying progressively more specialized handlers — plain scalars
// (assignField, fields.go), date fields, payment/disbursement schedules,
// and Project's budget_categories map. A field none of those recognize is
// preserved verbatim on the entity's Extras map rather than dropped, so an
// entity file round-trips losslessly through the store even when it
// carries fields this module doesn't interpret (SPEC_FULL.md's open-schema
// requirement).
func applyYAMLFields(e Entity, fields map[string]any) {
	for field, value := range fields {
		if assignField(e, field, value) {
			continue
		}
		if s, ok := value.(string); ok && assignDateField(e, field, s) {
			continue
		}
		if assignPaymentSchedule(e, field, value) {
			continue
		}
		if assignBudgetCategories(e, field, value) {
			continue
		}
		base := e.Base()
		if base.Extras == nil {
			base.Extras = make(map[string]any)
		}
		base.Extras[field] = value
	}
}

// LoadDirectory walks dir recursively loading every *.yaml file, mirroring
// load_all: a file that fails to parse is logged and skipped rather than
// aborting the whole walk.
func LoadDirectory(dir string) ([]Entity, error) {
	var entities []Entity
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return nil
		}
		e, loadErr := LoadFile(path)
		if loadErr != nil {
			Log.Warn().Str("file", path).Err(loadErr).Msg("skipping unreadable entity file")
			return nil
		}
		if e != nil {
			entities = append(entities, e)
		}
		return nil
	})
	if err != nil {
		return nil, errInternal("walking %s: %v", dir, err)
	}
	return entities, nil
}
