package color

import (
	"fmt"

	"scout/scout/utils/types"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	searchColor  = color.New(color.FgCyan, color.Bold)
	pickColor    = color.New(color.FgHiYellow, color.Bold)
	storedColor  = color.New(color.FgGreen, color.Bold)
	doneColor    = color.New(color.FgMagenta, color.Bold)
)

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorWarning(s string) string {
	return warningColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

// FormatEvent renders one crawl event as a single terminal line.
func FormatEvent(ev types.CrawlEvent) string {
	switch ev.Type {
	case types.EventSearch:
		return searchColor.Sprint("search  ") + ev.Detail
	case types.EventFetched:
		return infoColor.Sprint("fetched ") + ev.URL
	case types.EventFailed:
		return errorColor.Sprint("failed  ") + ev.URL
	case types.EventSkipped:
		return warningColor.Sprint("skipped ") + ev.URL
	case types.EventPicked:
		return pickColor.Sprint("follow  ") + ev.Detail
	case types.EventStored:
		return storedColor.Sprint("stored  ") + ev.URL
	case types.EventDone:
		return doneColor.Sprint("done")
	default:
		return fmt.Sprintf("%s %s %s", ev.Type, ev.URL, ev.Detail)
	}
}
