// Package platform contains OS integration: well-known user directories and
// revealing a downloaded file in the system file manager.
package platform
