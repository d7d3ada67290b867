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

	"go.uber.org/multierr"
)

// Validator checks one rule
type Validator interface {
	Validate() error
}

// Func adapts a plain function to a Validator
type Func func() error

// Validate calls f
func (f Func) Validate() error {
	return f()
}

// Chain runs rules in order. By default every violation is collected into a
// single multierr error; a FailFast chain returns the first one.
type Chain struct {
	failFast bool
	rules    []Validator
}

// ChainOption configures a Chain
type ChainOption func(*Chain)

// New creates an empty chain
func New(opts ...ChainOption) *Chain {
	chain := new(Chain)
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// FailFast stops the chain at the first violation
func FailFast() ChainOption {
	return func(c *Chain) { c.failFast = true }
}

// AddValidator appends a rule
func (c *Chain) AddValidator(v Validator) *Chain {
	c.rules = append(c.rules, v)
	return c
}

// AddAssertion appends a rule failing with message when ok is false
func (c *Chain) AddAssertion(ok bool, message string) *Chain {
	return c.AddValidator(Func(func() error {
		if ok {
			return nil
		}
		return errors.New(message)
	}))
}

// Validate runs the rules. A chain can be validated more than once.
func (c *Chain) Validate() error {
	var violations error
	for _, rule := range c.rules {
		err := rule.Validate()
		if err == nil {
			continue
		}
		if c.failFast {
			return err
		}
		violations = multierr.Append(violations, err)
	}
	return violations
}
