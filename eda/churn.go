package eda

import (
	"context"

	"github.com/YuminosukeSato/churnkit/etl"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

// ChurnColumn is the label column of a churn dataset.
const ChurnColumn = "Churn"

// PlotChurnDistribution shows a count plot of the Churn column with the
// default viewer and returns once the viewer exits.
func PlotChurnDistribution(frame *etl.Frame) error {
	return PlotChurnDistributionContext(context.Background(), frame, DefaultViewer())
}

// PlotChurnDistributionContext is PlotChurnDistribution with an explicit
// context and viewer. A frame without a Churn column is an error.
func PlotChurnDistributionContext(ctx context.Context, frame *etl.Frame, viewer Viewer) (err error) {
	defer errors.Recover(&err, "PlotChurnDistribution")

	if viewer == nil {
		return errors.NewValueError("PlotChurnDistribution", "nil viewer")
	}
	p, err := CountPlot(frame, ChurnColumn)
	if err != nil {
		return err
	}

	log.GetLoggerWithName("eda").Debug("Showing churn distribution",
		log.OperationKey, log.OperationPlot,
		log.PhaseKey, log.PhaseExploration,
		log.ColumnKey, ChurnColumn,
		log.SamplesKey, frame.Len(),
	)
	return viewer.View(ctx, p)
}
