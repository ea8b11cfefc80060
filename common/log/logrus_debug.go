//go:build debug

package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	basePath, _ := filepath.Abs(".")
	logrus.StandardLogger().SetReportCaller(true)
	formatter, isText := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	if !isText {
		return
	}
	formatter.CallerPrettyfier = func(frame *runtime.Frame) (function string, file string) {
		file = strings.TrimPrefix(frame.File, basePath+string(filepath.Separator))
		file = " " + file + ":" + strconv.Itoa(frame.Line)
		return
	}
}
