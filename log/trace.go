// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package log

import "fmt"

// Correlation marks prefixed to runtime trace lines. They tell at a glance
// in which direction a message travelled through a port.
const (
	MarkSend      = "->"
	MarkReceive   = "<-"
	MarkPostInput = "PostInput"
	MarkConnect   = "Connect"
	MarkCatalog   = "Catalog"
	MarkInfo      = "Info"
	MarkWarning   = "Warn"
	MarkError     = "Error"
)

// Trace writes a runtime trace line made of a correlation mark and a text.
// Lines with an error or warning mark are emitted at the matching level, all
// others at debug level so that tracing costs nothing in production.
func Trace(logger Logger, mark, format string, args ...any) {
	if logger == nil {
		return
	}

	switch mark {
	case MarkError:
		logger.Errorf("%-9s %s", mark, fmt.Sprintf(format, args...))
	case MarkWarning:
		logger.Warnf("%-9s %s", mark, fmt.Sprintf(format, args...))
	case MarkInfo:
		logger.Infof("%-9s %s", mark, fmt.Sprintf(format, args...))
	default:
		if logger.Enabled(DebugLevel) {
			logger.Debugf("%-9s %s", mark, fmt.Sprintf(format, args...))
		}
	}
}
