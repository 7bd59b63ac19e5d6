package timeline

import (
	"sort"
	"time"
)

type TripInfo struct {
	ID          string
	Title       string
	Description string
}

// AggregateTrip composes assembled stint timelines into the trip view.
// A stint continues from the previous one when its first stop sits at the
// same location as the previous stint's last stop and, if both times are
// known, the gap between them is within tolerance.
func AggregateTrip(info TripInfo, stints []StintTimelineModel, tolerance time.Duration) TripTimelineModel {
	ordered := append([]StintTimelineModel(nil), stints...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SequenceNumber < ordered[j].SequenceNumber })

	out := TripTimelineModel{
		TripID:      info.ID,
		Title:       info.Title,
		Description: info.Description,
		Stints:      ordered,
	}
	for i := range ordered {
		if i > 0 {
			ordered[i].ContinuesFromPrevious = continues(ordered[i-1], ordered[i], tolerance)
		}
		out.TotalDistance += ordered[i].Distance
		out.TotalDuration += ordered[i].EstimatedDuration
	}
	if out.Stints == nil {
		out.Stints = []StintTimelineModel{}
		return out
	}
	out.StartDate = copyTime(ordered[0].StartTime)
	out.EndDate = copyTime(ordered[len(ordered)-1].EndTime)
	return out
}

func continues(prev, cur StintTimelineModel, tolerance time.Duration) bool {
	if prev.lastLocationID == "" || prev.lastLocationID != cur.firstLocationID {
		return false
	}
	if prev.EndTime == nil || cur.StartTime == nil {
		return true
	}
	gap := cur.StartTime.Sub(*prev.EndTime)
	if gap < 0 {
		gap = -gap
	}
	return gap <= tolerance
}
