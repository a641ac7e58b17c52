package engine

import (
	"database/sql/driver"
	"fmt"

	sqlite "modernc.org/sqlite"

	"github.com/semhist/semhist/vector"
)

// RegisterVectorFunctions registers hist_cosine and hist_l2 with the driver.
// Call once at process start, before opening connections; connections opened
// earlier will not see the functions. Registration is idempotent (duplicate
// registrations are ignored).
//
// Both functions take two embedding BLOBs (see vector.Encode) and return
// NULL when either argument is NULL. hist_cosine follows vector.Cosine's
// total-function semantics: mismatched dimensions or zero magnitude yield 0,
// which sorts such rows to the bottom of a similarity ordering instead of
// failing the query.
func RegisterVectorFunctions() {
	_ = sqlite.RegisterDeterministicScalarFunction("hist_cosine", 2, histCosine)
	_ = sqlite.RegisterDeterministicScalarFunction("hist_l2", 2, histL2)
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.Decode(v)
	default:
		return nil, fmt.Errorf("engine: unsupported embedding argument type %T; want BLOB", arg)
	}
}

func histCosine(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := embeddingPair("hist_cosine", args)
	if err != nil || a == nil || b == nil {
		return nil, err
	}
	return vector.Cosine(a, b), nil
}

func histL2(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := embeddingPair("hist_l2", args)
	if err != nil || a == nil || b == nil {
		return nil, err
	}
	return vector.Euclidean(a, b), nil
}

func embeddingPair(fn string, args []driver.Value) ([]float32, []float32, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("engine: %s expects 2 arguments, got %d", fn, len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
