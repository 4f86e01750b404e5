package adapter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jensroland/rebasebot/internal/model"
)

// structuralDiff produces add/remove/replace ops by recursive key-set
// comparison of two decoded documents. Keys are visited in sorted
// order so extraction is deterministic.
func structuralDiff(a, b any, basePath string) []model.Op {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok && bok {
		var ops []model.Op
		for _, k := range sortedMapKeys(am) {
			if _, ok := bm[k]; !ok {
				ops = append(ops, model.Op{Op: model.OpRemove, Path: basePath + "/" + k})
			}
		}
		for _, k := range sortedMapKeys(bm) {
			if _, ok := am[k]; !ok {
				ops = append(ops, model.Op{Op: model.OpAdd, Path: basePath + "/" + k, Value: bm[k]})
			}
		}
		for _, k := range sortedMapKeys(am) {
			if _, ok := bm[k]; ok {
				ops = append(ops, structuralDiff(am[k], bm[k], basePath+"/"+k)...)
			}
		}
		return ops
	}
	if !reflect.DeepEqual(a, b) {
		path := basePath
		if path == "" {
			path = "/"
		}
		return []model.Op{{Op: model.OpReplace, Path: path, Value: b}}
	}
	return nil
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// errPathTooDeep signals a structural path beyond the supported two
// levels; callers map it to a partial apply.
type errPathTooDeep struct{ path string }

func (e errPathTooDeep) Error() string {
	return fmt.Sprintf("unsupported path depth: %s", e.path)
}

// applyStructuralOp mutates doc in place for one add/remove/replace
// op. Paths are depth-limited: one or two segments, or the bare root
// path for whole-document replacement.
func applyStructuralOp(doc map[string]any, op model.Op) error {
	segs := splitPath(op.Path)
	switch len(segs) {
	case 0:
		return errPathTooDeep{op.Path} // root replace handled by caller
	case 1:
		if op.Op == model.OpRemove {
			delete(doc, segs[0])
		} else {
			doc[segs[0]] = op.Value
		}
		return nil
	case 2:
		child, ok := doc[segs[0]].(map[string]any)
		if !ok {
			child = map[string]any{}
			doc[segs[0]] = child
		}
		if op.Op == model.OpRemove {
			delete(child, segs[1])
		} else {
			child[segs[1]] = op.Value
		}
		return nil
	default:
		return errPathTooDeep{op.Path}
	}
}

func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
