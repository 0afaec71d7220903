package orders

import "strings"

// StatusNew is the tag carried by freshly created orders. Any other value is
// treated as an update.
const StatusNew = "new"

// IsNew reports whether status belongs to the "created" view.
func IsNew(status string) bool {
	return strings.EqualFold(status, StatusNew)
}
