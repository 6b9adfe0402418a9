package entity

// PermissionState is the notification permission of the audience
type PermissionState string

const (
	PermissionDefault PermissionState = "default"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// ParsePermission maps free text onto a permission state
func ParsePermission(s string) (PermissionState, bool) {
	switch PermissionState(s) {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return PermissionState(s), true
	}
	return PermissionDefault, false
}

// Notification is a user-facing milestone ping
type Notification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}
