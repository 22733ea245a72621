package shipcad

import "fmt"

// Version is a file format version. Fields added to the binary format
// are only present in files whose version is at least the version
// they were introduced in.
type Version int

const (
	V100 Version = iota + 1
	V110
	V120
	V130
	V140
	V150
	V160
	V165
	V170
	V180
	V190
	V191
	V195
	V198
	V200
	V201
	V210
	V220
	V230
	V240
	V250
	V260
)

// CurrentVersion is the version written by this package.
const CurrentVersion = V260

var versionNames = [...]string{
	V100: "1.0", V110: "1.1", V120: "1.2", V130: "1.3", V140: "1.4",
	V150: "1.5", V160: "1.6", V165: "1.65", V170: "1.7", V180: "1.8",
	V190: "1.9", V191: "1.91", V195: "1.95", V198: "1.98", V200: "2.0",
	V201: "2.01", V210: "2.1", V220: "2.2", V230: "2.3", V240: "2.4",
	V250: "2.5", V260: "2.6",
}

// String returns the human readable version number.
func (v Version) String() string {
	if !v.Valid() {
		return fmt.Sprintf("Version(%d)", int(v))
	}
	return versionNames[v]
}

// Valid reports whether v is a known file version.
func (v Version) Valid() bool {
	return v >= V100 && v <= CurrentVersion
}
