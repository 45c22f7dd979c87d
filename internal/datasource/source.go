// Package datasource defines the fact-family contract every source
// implements and the shared cache/history plumbing behind it.
package datasource

import (
	"context"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/refresh"
)

// Source wraps one fact family (index price, breadth, margin, ...).
//
// BuildBlock never returns an error and never panics across the boundary:
// provider failure degrades to a MISSING/ERROR block with warnings.
// ⭐ SSOT: 스냅샷에 들어가는 모든 블록은 이 계약을 통해서만 생산된다
type Source interface {
	Name() string
	BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock
}
