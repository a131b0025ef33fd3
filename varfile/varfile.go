package varfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"

	"github.com/byte4ever/latemplate/fsys"
	"github.com/byte4ever/latemplate/templating"
)

// ErrAssignment is returned for a NAME=VALUE entry without "=" or
// with an empty name.
var ErrAssignment = errors.New("malformed assignment")

// ErrTrailingData is returned when a JSON variable file holds more
// than one value.
var ErrTrailingData = errors.New("trailing data after json value")

// Format selects the decoder used by Load.
type Format int

const (
	// KV is one "KEY VALUE" pair per line, split at the first space.
	KV Format = iota
	// JSON is a single JSON object.
	JSON
	// YAML is a stream of YAML documents, each an object.
	YAML
)

func (f Format) String() string {
	switch f {
	case KV:
		return "kv"
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON
	case ".yaml", ".yml":
		return YAML
	default:
		return KV
	}
}

// Load decodes every variable set held in r. JSON and KV inputs
// yield exactly one set; YAML yields one per non-empty document.
func Load(r io.Reader, format Format) ([]templating.Variables, error) {
	const errCtx = "loading variables"

	var (
		sets []templating.Variables
		err  error
	)

	switch format {
	case JSON:
		sets, err = loadJSON(r)
	case YAML:
		sets, err = loadYAML(r)
	case KV:
		sets, err = loadKV(r)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return sets, nil
}

// LoadFile opens path on fileSys and loads it with the format implied
// by its extension.
func LoadFile(
	fileSys fsys.FS,
	path string,
) (result []templating.Variables, retErr error) {
	errCtx := "loading variable file " + path

	fi, err := fileSys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	sets, err := Load(fi, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return sets, nil
}

func loadJSON(r io.Reader) ([]templating.Variables, error) {
	var doc any

	decoder := json.NewDecoder(r)

	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}

	// A variable file holds exactly one JSON value.
	var trailing json.RawMessage

	if err := decoder.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			err = ErrTrailingData
		}

		return nil, fmt.Errorf("decoding json: %w", err)
	}

	vars, err := templating.Document(doc)
	if err != nil {
		return nil, err
	}

	return []templating.Variables{vars}, nil
}

func loadYAML(r io.Reader) ([]templating.Variables, error) {
	var sets []templating.Variables

	decoder := yaml.NewDecoder(r)

	for idx := 0; ; idx++ {
		var obj map[string]interface{}

		err := decoder.Decode(&obj)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf(
				"decoding yaml document %d: %w",
				idx, err,
			)
		}

		if obj == nil {
			continue
		}

		vars, err := templating.Document(obj)
		if err != nil {
			return nil, fmt.Errorf("yaml document %d: %w", idx, err)
		}

		sets = append(sets, vars)
	}

	return sets, nil
}

// loadKV reads "KEY VALUE" lines. Lines without a space are
// silently skipped; later keys override earlier ones.
func loadKV(r io.Reader) ([]templating.Variables, error) {
	values := make(map[string]string)

	sc := bufio.NewScanner(r)
	sc.Buffer(nil, 1<<20)

	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), " ")
		if ok {
			values[key] = value
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading key/value lines: %w", err)
	}

	return []templating.Variables{templating.StringMap(values)}, nil
}

// ParseAssignments turns NAME=VALUE entries into a map. VALUE may
// itself contain "=". Later entries override earlier ones.
func ParseAssignments(entries []string) (map[string]string, error) {
	const errCtx = "parsing assignments"

	out := make(map[string]string, len(entries))

	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf(
				"%s: %q: %w", errCtx, entry, ErrAssignment,
			)
		}

		out[name] = value
	}

	return out, nil
}
