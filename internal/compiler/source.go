package compiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/formstep/internal/form"
)

// SupportedExtensions lists the definition file types CompileSource reads.
var SupportedExtensions = map[string]bool{
	".cue":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
}

// CompileSource compiles the form definitions in one source file.
// The extension of filename selects the format.
//
// A source either is a single form or holds several under a top-level
// "form" struct keyed by id:
//
//	form: signup:   { title: "Sign up" }
//	form: feedback: { title: "Feedback" }
//
// A single form without an id takes the file's base name.
func CompileSource(filename string, data []byte) ([]*form.Form, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExtensions[ext] {
		return nil, &CompileError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported definition format %q", ext),
		}
	}

	if ext == ".yaml" || ext == ".yml" {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &CompileError{Field: "yaml", Message: fmt.Sprintf("%s: %v", filename, err)}
		}
		data = converted
	}

	// JSON is valid CUE, so every format ends up here.
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	formsVal := v.LookupPath(cue.ParsePath("form"))
	if !formsVal.Exists() {
		f, err := CompileForm(v)
		if err != nil {
			return nil, err
		}
		if f.ID == "" {
			f.ID = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		}
		return []*form.Form{f}, nil
	}

	iter, err := formsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var forms []*form.Form
	for iter.Next() {
		f, err := CompileForm(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("form %s: %w", iter.Label(), err)
		}
		forms = append(forms, f)
	}
	return forms, nil
}

// LoadFile reads and compiles one definition file.
func LoadFile(path string) ([]*form.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return CompileSource(path, data)
}

// LoadDir walks dir and compiles every supported definition file in
// lexical path order. Errors are collected per file; forms from files
// that compiled are still returned.
func LoadDir(dir string) ([]*form.Form, []error) {
	files, err := FindDefinitionFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scan %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no form definitions found in %s", dir)}
	}

	var forms []*form.Form
	var errs []error
	for _, path := range files {
		fs, err := LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		forms = append(forms, fs...)
	}
	return forms, errs
}

// FindDefinitionFiles walks the directory and returns all supported
// definition file paths.
func FindDefinitionFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// yamlToJSON re-encodes a YAML document as JSON.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	normalized, err := normalizeYAML(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalizeYAML makes decoded YAML encodable as JSON: mapping keys must
// be strings.
func normalizeYAML(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("mapping key %v is not a string", k)
			}
			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return v, nil
	}
}
