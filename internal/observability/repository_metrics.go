package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

var repoOps sync.Map // "resource.op.outcome" -> *atomic.Int64

// RecordRepositoryOperation counts a repository call by resource, operation
// and outcome. Snapshots feed the ops dashboard health endpoint.
func RecordRepositoryOperation(ctx context.Context, resource, op, outcome string) {
	key := resource + "." + op + "." + outcome
	v, _ := repoOps.LoadOrStore(key, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
	if outcome == "error" {
		slog.WarnContext(ctx, "repository operation failed", "resource", resource, "operation", op)
	}
}

// RepositoryOperationSnapshot returns counters as sorted "key=count" lines.
func RepositoryOperationSnapshot() []string {
	var out []string
	repoOps.Range(func(k, v any) bool {
		out = append(out, fmt.Sprintf("%s=%d", k.(string), v.(*atomic.Int64).Load()))
		return true
	})
	sort.Strings(out)
	return out
}
