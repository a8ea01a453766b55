package chartmenu

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownKey is returned by Dispatch for keys no menu produces.
var ErrUnknownKey = errors.New("unknown menu key")

// Actions receives the effects of menu clicks.
type Actions interface {
	ForceRefresh(sliceID, dashboardID int) error
	ToggleExpand(sliceID int) error
	Explore(sliceID int) error
	CopyURL(url string) error
	ShareByEmail(mailto string) error
	ToggleFullSize(sliceID int) error
	DownloadImage(sliceID int, name string) error
	ExportCSV(sliceID int) error
	OpenCrossFilterScoping(sliceID int) error
}

// Dispatch runs the action behind key. Force refresh is a no-op for a chart
// that has never been fetched. Keys of disabled or absent items are
// rejected.
func Dispatch(key string, s Slice, perms Permissions, reg Registry, baseURL string, a Actions) error {
	if !offered(key, s, perms, reg) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	switch key {
	case KeyForceRefresh:
		if s.UpdatedAt.IsZero() {
			return nil
		}
		return a.ForceRefresh(s.ID, s.DashboardID)
	case KeyToggleDescription:
		return a.ToggleExpand(s.ID)
	case KeyExploreChart:
		return a.Explore(s.ID)
	case KeyCopyURL:
		return a.CopyURL(ChartURL(baseURL, s))
	case KeyShareEmail:
		return a.ShareByEmail(ShareEmailURL(ChartURL(baseURL, s)))
	case KeyResize:
		return a.ToggleFullSize(s.ID)
	case KeyDownloadAsImage:
		return a.DownloadImage(s.ID, s.Name)
	case KeyExportCSV:
		return a.ExportCSV(s.ID)
	case KeyCrossFilterScoping:
		return a.OpenCrossFilterScoping(s.ID)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func offered(key string, s Slice, perms Permissions, reg Registry) bool {
	if key == KeyDivider {
		return false
	}
	for _, it := range Build(s, perms, reg, time.Time{}) {
		if it.Key == key {
			return !it.Disabled
		}
	}
	return false
}
