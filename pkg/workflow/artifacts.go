package workflow

import (
	"bytes"
	"context"
	"fmt"

	"github.com/helmcode/arqv30-client/pkg/artifact"
	"github.com/helmcode/arqv30-client/pkg/render"
)

// SaveArtifacts writes every artifact of report to sink and returns their
// locations in order. It stops at the first failure.
func SaveArtifacts(ctx context.Context, sink artifact.Sink, report *render.Report) ([]string, error) {
	locations := make([]string, 0, len(report.Artifacts))
	for _, a := range report.Artifacts {
		loc, err := sink.Save(ctx, a.Name, a.ContentType, bytes.NewReader(a.Data))
		if err != nil {
			return locations, fmt.Errorf("save %s: %w", a.Name, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}
