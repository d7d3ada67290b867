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

package validation

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// errNoMatch is returned by Matches when the caller supplies no error
var errNoMatch = errors.New("value does not match the expected format")

// Required fails when value is blank
func Required(field, value string) Validator {
	return Func(func() error {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("the [%s] is required", field)
		}
		return nil
	})
}

// Matches fails with err when value does not match pattern. A pattern that does
// not compile is reported as such rather than as a mismatch.
func Matches(pattern, value string, err error) Validator {
	return Func(func() error {
		re, cerr := regexp.Compile(pattern)
		if cerr != nil {
			return fmt.Errorf("pattern %q: %w", pattern, cerr)
		}
		if re.MatchString(value) {
			return nil
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %q", errNoMatch, value)
	})
}

// HostPort fails unless hostPort is a host followed by a port in [0, 65535].
// Port 0 is accepted for listeners letting the OS pick.
func HostPort(hostPort string) Validator {
	return Func(func() error {
		host, port, err := net.SplitHostPort(strings.TrimSpace(hostPort))
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", hostPort, err)
		}
		if host == "" {
			return fmt.Errorf("invalid address %q: missing host", hostPort)
		}
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return fmt.Errorf("invalid address %q: bad port: %w", hostPort, err)
		}
		return nil
	})
}
