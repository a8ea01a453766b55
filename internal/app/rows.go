package app

import (
	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/timerange"
)

// TimeRangeRow builds the reported row for expr and its resolution.
func TimeRangeRow(expr string, res timerange.ResolvedRange) model.TimeRangeRow {
	label := timerange.Present(expr, res)
	return model.TimeRangeRow{
		Expression: expr,
		Frame:      string(timerange.Classify(expr)),
		Since:      res.Since,
		Until:      res.Until,
		Control:    label.Control,
		Tooltip:    label.Tooltip,
		Error:      res.Error,
		CacheHit:   res.CacheHit,
	}
}

// FrameRow classifies expr. Custom expressions carry their decoded form.
func FrameRow(expr string) model.FrameRow {
	frame := timerange.Classify(expr)
	row := model.FrameRow{
		Expression: expr,
		Frame:      string(frame),
		Label:      frame.Label(),
	}
	if frame == timerange.FrameCustom {
		if cr, ok := timerange.DecodeCustom(expr); ok {
			row.Custom = cr
		}
	}
	return row
}
