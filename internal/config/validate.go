package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Validate checks a Document for structural issues. It returns a list of
// human-readable issue descriptions so the user can fix everything in one
// pass; an empty list means the document is valid.
//
// Structural checks include:
//   - working_directory is required
//   - run must list at least one stage name, without blanks or duplicates
//   - processes (when present) must be an integer >= 1
//   - sampling_rate (when present) must be a number in (0, 1]
//   - random_seed (when present) must be an integer
//   - hts (when present) must be a known survey source
//   - java_memory (when present) must parse as a byte size such as "14G"
//   - path-valued and list-valued keys must carry the right shape
//
// Whether a parameter is required at all is decided later, when the stage
// graph is resolved: a stage that declares a key without a default makes
// that key mandatory.
func Validate(doc *Document) []string {
	var issues []string

	if doc.WorkingDirectory == "" {
		issues = append(issues, "working_directory is required")
	}

	if len(doc.Run) == 0 {
		issues = append(issues, "run must list at least one stage to materialize")
	}
	seen := make(map[string]bool, len(doc.Run))
	for index, name := range doc.Run {
		if name == "" {
			issues = append(issues, fmt.Sprintf("run[%d]: stage name is empty", index))
			continue
		}
		if seen[name] {
			issues = append(issues, fmt.Sprintf("run[%d]: stage %q is listed twice", index, name))
		}
		seen[name] = true
	}

	if v, ok := doc.Param(KeyProcesses); ok {
		if n, ok := AsInt(v); !ok || n < 1 {
			issues = append(issues, fmt.Sprintf("config.processes must be an integer >= 1, got %v", v))
		}
	}

	if v, ok := doc.Param(KeySamplingRate); ok {
		if rate, ok := AsFloat(v); !ok || rate <= 0 || rate > 1 {
			issues = append(issues, fmt.Sprintf("config.sampling_rate must be in (0, 1], got %v", v))
		}
	}

	if v, ok := doc.Param(KeyRandomSeed); ok {
		if _, ok := AsInt(v); !ok {
			issues = append(issues, fmt.Sprintf("config.random_seed must be an integer, got %v", v))
		}
	}

	if v, ok := doc.Param(KeyHTS); ok {
		s, isString := AsString(v)
		if !isString || !knownHTSSources[s] {
			issues = append(issues, fmt.Sprintf("config.hts must be one of %v, got %v", htsSourceNames(), v))
		}
	}

	if v, ok := doc.Param(KeyJavaMemory); ok {
		s, isString := AsString(v)
		if !isString {
			issues = append(issues, fmt.Sprintf("config.java_memory must be a size string such as \"14G\", got %v", v))
		} else if _, err := humanize.ParseBytes(s); err != nil {
			issues = append(issues, fmt.Sprintf("config.java_memory: cannot parse %q as a byte size: %v", s, err))
		}
	}

	for _, key := range []string{KeyDataPath, KeyOutputPath, KeyOutputPrefix, KeyCensusPath} {
		if v, ok := doc.Param(key); ok {
			if _, isString := AsString(v); !isString {
				issues = append(issues, fmt.Sprintf("config.%s must be a string, got %v", key, v))
			}
		}
	}

	for _, key := range []string{KeyRegions, KeyDepartments} {
		if v, ok := doc.Param(key); ok {
			if _, isList := AsStrings(v); !isList {
				issues = append(issues, fmt.Sprintf("config.%s must be a sequence of codes, got %v", key, v))
			}
		}
	}

	return issues
}

// knownHTSSources enumerates the household travel survey selectors the
// pipeline ships readers for.
var knownHTSSources = map[string]bool{
	"entd": true,
	"egt":  true,
}

func htsSourceNames() []string {
	return []string{"entd", "egt"}
}
