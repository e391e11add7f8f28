package dispatch

import (
	"go/token"

	"github.com/gogpu/shadersim/cache"
	"github.com/gogpu/shadersim/transform"
)

// programCache memoizes compiled shader programs by source text, so a
// caller that repeatedly dispatches the same shader (e.g. once per frame)
// doesn't re-run the AST rewrite on every call.
var programCache = cache.NewSharded[string, *transform.Program](cache.DefaultCapacity, cache.StringHasher)

// CompileCached compiles src via [transform.Compile], returning a
// previously cached *transform.Program if the exact same source text was
// compiled before. Compile errors are never cached: a transient failure
// (e.g. an unrelated file descriptor limit) must not poison every later
// call with the same source.
func CompileCached(fset *token.FileSet, src []byte) (*transform.Program, error) {
	key := string(src)
	if p, ok := programCache.Get(key); ok {
		return p, nil
	}
	prog, err := transform.Compile(fset, src)
	if err != nil {
		return nil, err
	}
	return programCache.GetOrCreate(key, func() *transform.Program { return prog }), nil
}
