package notify

import (
	"context"
	"log/slog"

	"github.com/roach88/catalog/internal/model"
)

// LogHook writes one Info line per committed entity.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook returns a LogHook writing to logger, or slog.Default when nil.
func NewLogHook(logger *slog.Logger) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHook{logger: logger}
}

func (h *LogHook) Name() string { return "log" }

func (h *LogHook) EntityCommitted(ctx context.Context, v *model.EntityView) error {
	h.logger.InfoContext(ctx, "entity committed",
		"bbid", v.BBID,
		"type", string(v.Type),
		"revision", v.RevisionID,
		"name", v.Name(),
		"deleted", v.Deleted,
	)
	return nil
}
