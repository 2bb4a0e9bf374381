package sql

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	"modernc.org/sqlite"
)

// patterns caches compiled REGEXP patterns by source.
var patterns sync.Map

func init() {
	// SQLite parses "X REGEXP Y" but ships no regexp function.
	if err := sqlite.RegisterDeterministicScalarFunction("regexp", 2, sqliteRegexp); err != nil {
		panic(fmt.Sprintf("dialect/sql: register regexp: %v", err))
	}
}

func sqliteRegexp(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	source := str(args[0])
	re, ok := patterns.Load(source)
	if !ok {
		compiled, err := regexp.Compile(source)
		if err != nil {
			return nil, err
		}
		re, _ = patterns.LoadOrStore(source, compiled)
	}
	if re.(*regexp.Regexp).MatchString(str(args[1])) {
		return int64(1), nil
	}
	return int64(0), nil
}
