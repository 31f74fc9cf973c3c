package webex

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownResource is returned by URLFor for a name not in the catalog.
var ErrUnknownResource = errors.New("unknown resource")

// resourceURIs maps logical resource names to paths relative to the API root.
var resourceURIs = map[string]string{
	"people":                   "people",
	"pmr":                      "meetingPreferences/personalMeetingRoom",
	"reports":                  "reports",
	"recording_report_summary": "recordingReport/accessSummary",
	"recording_report_detail":  "recordingReport/accessDetail",
	"scim_users":               "identity/scim",
}

// URLFor returns the relative URL for a named resource, appending any extra
// path segments. Unknown names are an explicit error rather than a malformed
// URL.
func URLFor(resource string, parts ...string) (string, error) {
	uri, ok := resourceURIs[resource]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}
	if len(parts) == 0 {
		return uri, nil
	}
	return uri + "/" + strings.Join(parts, "/"), nil
}
