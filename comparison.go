// Copyright (c) 2012-present The upper.io/db authors. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining
// a copy of this software and associated documentation files (the
// "Software"), to deal in the Software without restriction, including
// without limitation the rights to use, copy, modify, merge, publish,
// distribute, sublicense, and/or sell copies of the Software, and to
// permit persons to whom the Software is furnished to do so, subject to
// the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
// LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
// OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
// WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package db

import (
	"fmt"
)

// ComparisonOperator is the base type for comparison operators used by
// search conditions.
type ComparisonOperator uint8

// Comparison operators
const (
	ComparisonOperatorNone ComparisonOperator = iota

	OpEq
	OpNotEq

	OpLt
	OpGt

	OpLte
	OpGte

	OpLike
	OpNotLike

	OpNull
	OpNotNull

	OpIn
	OpNotIn

	OpBetween
	OpNotBetween
)

var comparisonOperatorNames = map[ComparisonOperator]string{
	ComparisonOperatorNone: "NONE",
	OpEq:                   "EQ",
	OpNotEq:                "NEQ",
	OpLt:                   "LT",
	OpGt:                   "GT",
	OpLte:                  "LTEQ",
	OpGte:                  "GTEQ",
	OpLike:                 "LIKE",
	OpNotLike:              "NLIKE",
	OpNull:                 "NULL",
	OpNotNull:              "NNULL",
	OpIn:                   "IN",
	OpNotIn:                "NIN",
	OpBetween:              "BETWEEN",
	OpNotBetween:           "NBETWEEN",
}

func (op ComparisonOperator) String() string {
	if name, ok := comparisonOperatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("ComparisonOperator(%d)", uint8(op))
}

// Arity returns the number of values the operator expects. A negative value
// means "one or more" (IN lists).
func (op ComparisonOperator) Arity() int {
	switch op {
	case OpNull, OpNotNull:
		return 0
	case OpIn, OpNotIn:
		return -1
	case OpBetween, OpNotBetween:
		return 2
	case ComparisonOperatorNone:
		return 0
	}
	return 1
}

// Valid reports whether op is a known operator other than None.
func (op ComparisonOperator) Valid() bool {
	_, ok := comparisonOperatorNames[op]
	return ok && op != ComparisonOperatorNone
}

// AcceptsValues reports whether n bound values are acceptable for op.
func (op ComparisonOperator) AcceptsValues(n int) bool {
	switch arity := op.Arity(); {
	case arity < 0:
		return true
	default:
		return n == arity
	}
}

// Func is an aggregate or scalar SQL function applied to an attribute in
// projections, GROUP BY and HAVING clauses.
type Func uint8

// Functions
const (
	FuncNone Func = iota
	FuncCount
	FuncSum
	FuncMin
	FuncMax
	FuncAvg
	FuncDistinct
)

var funcNames = map[Func]string{
	FuncNone:     "",
	FuncCount:    "COUNT",
	FuncSum:      "SUM",
	FuncMin:      "MIN",
	FuncMax:      "MAX",
	FuncAvg:      "AVG",
	FuncDistinct: "DISTINCT",
}

// Name returns the SQL name of the function.
func (f Func) Name() string {
	return funcNames[f]
}

func (f Func) String() string {
	if f == FuncNone {
		return "NONE"
	}
	if name, ok := funcNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Func(%d)", uint8(f))
}
