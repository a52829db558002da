package cli

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDate accepts YYYY-MM-DD or natural language such as "yesterday" or
// "last friday", resolved against now.
func parseDate(text string, now time.Time) (civil.Date, error) {
	text = strings.TrimSpace(text)
	if d, err := civil.ParseDate(text); err == nil {
		return d, nil
	}
	r, err := dateParser.Parse(text, now)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: %w", text, err)
	}
	if r == nil {
		return civil.Date{}, fmt.Errorf("invalid date %q", text)
	}
	return civil.DateOf(r.Time.In(now.Location())), nil
}

// parseClock accepts HH:MM or HH:MM:SS.
func parseClock(text string) (civil.Time, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, text); err == nil {
			return civil.TimeOf(t), nil
		}
	}
	return civil.Time{}, fmt.Errorf("invalid time %q, want HH:MM", text)
}
