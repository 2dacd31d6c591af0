//go:build purego || !cgo_sqlite
// +build purego !cgo_sqlite

package sqlexec

// This file is compiled when building without CGO or with the purego tag.
// It uses the pure Go SQLite implementation.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	"database/sql/driver"
	"fmt"
	"regexp"

	sqlite "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

func init() {
	// SQLite resolves `X REGEXP Y` to regexp(Y, X)
	if err := sqlite.RegisterDeterministicScalarFunction("regexp", 2, regexpFunc); err != nil {
		panic(fmt.Sprintf("register regexp function: %v", err))
	}
}

func regexpFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	pattern, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("regexp: pattern must be text, got %T", args[0])
	}
	subject, ok := args[1].(string)
	if !ok {
		return int64(0), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regexp: invalid pattern %q: %w", pattern, err)
	}
	if re.MatchString(subject) {
		return int64(1), nil
	}
	return int64(0), nil
}
