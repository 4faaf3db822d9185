package runlog

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// ContextKeys are written right after the timestamp, in this order, so that
// every line starts with where it came from.
var ContextKeys = []string{"worker", "segment", "start", "day", "chunk"}

// LineFormatter writes one logfmt line per entry:
//
//	time=... worker=... segment=... start=... level=... msg=... <other fields>
type LineFormatter struct {
	TimestampFormat string
}

// Format implements `logrus.Formatter`.
func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}

	var buffer bytes.Buffer
	writeField(&buffer, "time", entry.Time.Format(timestampFormat))

	written := map[string]bool{}
	for _, key := range ContextKeys {
		if value, ok := entry.Data[key]; ok {
			writeField(&buffer, key, value)
			written[key] = true
		}
	}

	writeField(&buffer, "level", entry.Level.String())
	writeField(&buffer, "msg", entry.Message)

	keys := []string{}
	for key := range entry.Data {
		if !written[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		writeField(&buffer, key, entry.Data[key])
	}

	buffer.WriteByte('\n')
	return buffer.Bytes(), nil
}

func writeField(buffer *bytes.Buffer, key string, value interface{}) {
	if buffer.Len() > 0 {
		buffer.WriteByte(' ')
	}
	buffer.WriteString(key)
	buffer.WriteByte('=')

	var text string
	switch v := value.(type) {
	case string:
		text = v
	case error:
		text = v.Error()
	default:
		text = fmt.Sprint(v)
	}
	if needsQuoting(text) {
		text = strconv.Quote(text)
	}
	buffer.WriteString(text)
}

// needsQuoting follows the same character set as logrus's text formatter.
func needsQuoting(text string) bool {
	if len(text) == 0 {
		return true
	}
	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.' || ch == '_' || ch == '/' || ch == '@' || ch == '^' || ch == '+') {
			return true
		}
	}
	return false
}
