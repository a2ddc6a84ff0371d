package tbman

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values for New.
// These constants are exported so callers can reference the defaults when
// building custom configurations relative to them.
const (
	// DefaultHost is the address new TensorBoard instances bind to.
	DefaultHost = "localhost"

	// DefaultPortLow and DefaultPortHigh bound the port allocation range
	// [DefaultPortLow, DefaultPortHigh). Ports are probed at random within
	// the range until a free one is found.
	DefaultPortLow  = 8000
	DefaultPortHigh = 9000

	// DefaultPortAttempts is the number of random probes made per
	// allocation before giving up with ErrPortExhausted.
	DefaultPortAttempts = 100

	// DefaultWebPort is the port the control web interface listens on.
	DefaultWebPort = 8093

	// DefaultTensorBoardBinary is the binary name used to locate
	// TensorBoard in PATH.
	DefaultTensorBoardBinary = "tensorboard"

	// DefaultSessionFileName is the session file name placed in the user's
	// home directory. The full path is computed by DefaultSessionPath.
	DefaultSessionFileName = ".tbman.json"

	// DefaultStopTimeout is the maximum time allowed for an instance's
	// TensorBoard process to stop. SIGTERM is sent first; SIGKILL follows
	// if the process does not exit within the grace period.
	DefaultStopTimeout = 10 * time.Second
)

// DefaultSessionPath returns the default session file location,
// DefaultSessionFileName under the user's home directory. If the home
// directory cannot be determined it falls back to the current directory.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultSessionFileName
	}
	return filepath.Join(home, DefaultSessionFileName)
}
