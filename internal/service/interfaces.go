package service

import (
	"context"

	"rutosms/internal/archive"
	"rutosms/pkg/rutos/types"
)

// MessageArchive is the audit-trail surface consumed by the poller and the
// dispatcher. *archive.Archive implements it; a nil archive disables
// archiving entirely.
type MessageArchive interface {
	SaveReceived(ctx context.Context, msg types.Message) error
	SaveResult(ctx context.Context, direction archive.Direction, index, peer, body, detail string, success bool) error
}
