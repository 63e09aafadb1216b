package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const DateLayout = "2006-01-02"

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseDate accepts YYYY-MM-DD or a phrase such as "yesterday" or "last
// monday", resolved relative to now. Empty input means now's date.
func ParseDate(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return now.Format(DateLayout), nil
	}
	if t, err := time.ParseInLocation(DateLayout, input, now.Location()); err == nil {
		return t.Format(DateLayout), nil
	}
	r, err := dateParser.Parse(input, now)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD or a phrase like \"yesterday\")", input)
	}
	return r.Time.Format(DateLayout), nil
}
