package storage

import (
	"context"

	"github.com/fruitsalade/mediakit/internal/apierr"
	"github.com/fruitsalade/mediakit/internal/logging"
	"github.com/fruitsalade/mediakit/internal/metrics"
)

// CheckDestination refuses to overwrite an existing target unless overwrite
// is set. Adapters without an ExistenceChecker are not consulted. A failing
// existence check lets the operation proceed.
func CheckDestination(ctx context.Context, adapter any, root, relPath string, overwrite bool) error {
	if overwrite {
		metrics.RecordDestinationCheck(metrics.DestSkipped)
		return nil
	}

	checker, ok := adapter.(ExistenceChecker)
	if !ok {
		metrics.RecordDestinationCheck(metrics.DestUnknown)
		return nil
	}

	exists, err := checker.Exists(ctx, root, relPath)
	if err != nil {
		metrics.RecordDestinationCheck(metrics.DestError)
		logging.WithContext(ctx).Warn("destination check failed, proceeding",
			logging.String("root", root),
			logging.String("path", relPath),
			logging.Err(err))
		return nil
	}
	if exists {
		metrics.RecordDestinationCheck(metrics.DestConflict)
		return apierr.Newf(apierr.CodeConflict, "destination %s already exists", relPath)
	}

	metrics.RecordDestinationCheck(metrics.DestAbsent)
	return nil
}
