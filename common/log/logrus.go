package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	logrus.AddHook(new(TaggedHook))
}

func NewLogger(tag string) *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger()).WithField("tag", tag)
}

// SetVerbose switches the standard logger to trace output with colors forced,
// the mode the command line tools use for -v.
func SetVerbose(verbose bool) {
	if !verbose {
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetLevel(logrus.TraceLevel)
	if formatter, isText := logrus.StandardLogger().Formatter.(*logrus.TextFormatter); isText {
		formatter.ForceColors = true
	}
}

type TaggedHook struct{}

func (h *TaggedHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *TaggedHook) Fire(entry *logrus.Entry) error {
	if tagObj, loaded := entry.Data["tag"]; loaded {
		tag, isString := tagObj.(string)
		if !isString {
			return nil
		}
		delete(entry.Data, "tag")
		entry.Message = strings.ReplaceAll(entry.Message, tag+": ", "")
		entry.Message = "[" + tag + "]: " + entry.Message
	}
	return nil
}
