package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/arachne/internal/ir"
)

// LoadResult contains a model loaded from CUE files.
type LoadResult struct {
	Model     *ir.Model
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModel loads and compiles a model. path is either a directory, whose
// .cue files are unified into one model, or a single .cue file.
//
// All returned errors are *LoadError. Validation is left to the caller.
func LoadModel(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model path: %v", err)}
	}

	dir, args := path, []string{"."}
	fileCount := 1
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		fileCount = len(cueFiles)
		// Files are named explicitly so that package-less model files load
		// as one instance.
		args = make([]string, len(cueFiles))
		for i, f := range cueFiles {
			args[i] = filepath.Base(f)
		}
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}
		}
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	model, err := CompileModel(value)
	if err != nil {
		return nil, convertCompileError(err, path)
	}
	if model.Name == "" {
		model.Name = defaultModelName(path)
	}

	return &LoadResult{
		Model:     model,
		CUEValue:  value,
		FileCount: fileCount,
	}, nil
}

// LoadValidModel loads the model at path and rejects it on the first
// validation error.
func LoadValidModel(path string) (*ir.Model, error) {
	loaded, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	if verrs := Validate(loaded.Model); len(verrs) > 0 {
		return nil, verrs[0]
	}
	return loaded.Model, nil
}

// defaultModelName names an unnamed model after its file or directory.
func defaultModelName(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return base[:len(base)-len(filepath.Ext(base))]
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories
// are separate CUE packages and are not part of the model.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Load error codes (E001-E099). Validation codes (E101-E119) are in validate.go.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Model structure errors
	ErrCodeInvalidTerm    = "E010" // Term does not parse
	ErrCodeInvalidEvent   = "E011" // Event is neither send nor read
	ErrCodeInvalidInverse = "E012" // Inverse pair malformed
	ErrCodeInvalidRun     = "E013" // Setup run incomplete
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "protocol":
		return ErrNoProtocols
	case "term":
		return ErrCodeInvalidTerm
	case "event":
		return ErrCodeInvalidEvent
	case "intruder.inverses":
		return ErrCodeInvalidInverse
	case "setup.runs":
		return ErrCodeInvalidRun
	case "cue":
		return ErrCodeBuildFailed
	default:
		if strings.HasPrefix(field, "protocol.") {
			return ErrRoleNoEvents
		}
		return ErrCodeGeneric
	}
}
