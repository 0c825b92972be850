package console

import "strings"

// Level is the severity of a log entry.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]struct{ long, short string }{
	LevelTrace: {"TRACE", "TRC"},
	LevelDebug: {"DEBUG", "DBG"},
	LevelInfo:  {"INFO", "INF"},
	LevelWarn:  {"WARN", "WRN"},
	LevelError: {"ERROR", "ERR"},
	LevelFatal: {"FATAL", "FTL"},
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l].long
	}
	return levelNames[LevelInfo].long
}

// Short returns the three letter label printed in entries.
func (l Level) Short() string {
	if int(l) < len(levelNames) {
		return levelNames[l].short
	}
	return levelNames[LevelInfo].short
}

// ParseLevel maps a config value such as "warn" onto a Level. Unknown values
// report false and LevelInfo.
func ParseLevel(value string) (Level, bool) {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "":
		return LevelInfo, true
	case "WARNING":
		return LevelWarn, true
	}
	for lvl, names := range levelNames {
		if value == names.long {
			return Level(lvl), true
		}
	}
	return LevelInfo, false
}
